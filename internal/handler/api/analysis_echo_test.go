package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/internal/service/ratelimit"
	"ImpulseSaver/internal/services/category"
	"ImpulseSaver/internal/usecase"
	"ImpulseSaver/pkg/cache"
	xhttp "ImpulseSaver/pkg/http"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []usecase.AnalyzeParams
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, p usecase.AnalyzeParams) (*models.ProductAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProductAnalysis{
		ID:           "a-1",
		ASIN:         p.ASIN,
		Marketplace:  string(p.Marketplace),
		Product:      p.Product,
		Verdict:      models.VerdictWait,
		ImpulseScore: 42,
	}, nil
}

type fakeStore struct {
	rows  []models.AnalysisSummary
	limit int
}

func (s *fakeStore) Init(context.Context) error                          { return nil }
func (s *fakeStore) Save(context.Context, *models.ProductAnalysis) error { return nil }
func (s *fakeStore) Recent(_ context.Context, limit int) ([]models.AnalysisSummary, error) {
	s.limit = limit
	return s.rows, nil
}
func (s *fakeStore) Since(_ context.Context, _ time.Time, limit int) ([]models.AnalysisSummary, error) {
	s.limit = limit
	return s.rows, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

var _ domrepo.AnalysisStore = (*fakeStore)(nil)

func newTestEcho(h *AnalysisEchoHandler) *echo.Echo {
	reg := prometheus.NewRegistry()
	return xhttp.NewServer(h, xhttp.WithRegistry(reg, reg)).Echo()
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCodes(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Data []struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	out := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		out = append(out, d.Code)
	}
	return out
}

func TestAnalyze_ExtractsASINAndCaches(t *testing.T) {
	fa := &fakeAnalyzer{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	h := NewAnalysisEchoHandler(nil, fa, nil, category.NewClassifier(), WithResponseCache(mc, time.Minute))
	e := newTestEcho(h)

	body := `{"amazon_url":"https://www.amazon.co.uk/Sony/dp/B09XS7JWHH/ref=x","title":"Sony WH-1000XM5","price":"$299.99"}`
	rec := do(e, http.MethodPost, "/api/analyze", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected cache miss header")
	}
	if len(fa.calls) != 1 {
		t.Fatalf("calls = %d", len(fa.calls))
	}
	p := fa.calls[0]
	if p.ASIN != "B09XS7JWHH" || p.Marketplace != domrepo.MarketplaceUK || p.Product.Price != "$299.99" || p.WindowDays != 30 {
		t.Fatalf("params = %+v", p)
	}

	rec = do(e, http.MethodPost, "/api/analyze", body)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second call: %d %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if len(fa.calls) != 1 {
		t.Fatalf("cached call reached analyzer")
	}
	if !strings.Contains(rec.Body.String(), `"asin":"B09XS7JWHH"`) {
		t.Fatalf("cached body = %s", rec.Body.String())
	}
}

func TestAnalyze_CacheKeyCoversListingInputs(t *testing.T) {
	fa := &fakeAnalyzer{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	e := newTestEcho(NewAnalysisEchoHandler(nil, fa, nil, category.NewClassifier(), WithResponseCache(mc, time.Minute)))

	base := `{"asin":"B09XS7JWHH","title":"Sony WH-1000XM5","price":"$299.99","window_days":30}`
	if rec := do(e, http.MethodPost, "/api/analyze", base); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first call: %d %q", rec.Code, rec.Header().Get("X-Cache"))
	}

	variants := map[string]string{
		"window":       `{"asin":"B09XS7JWHH","title":"Sony WH-1000XM5","price":"$299.99","window_days":7}`,
		"title":        `{"asin":"B09XS7JWHH","title":"FLASH SALE only 2 left","price":"$299.99","window_days":30}`,
		"availability": `{"asin":"B09XS7JWHH","title":"Sony WH-1000XM5","price":"$299.99","window_days":30,"availability":"Only 1 left in stock"}`,
		"reviews":      `{"asin":"B09XS7JWHH","title":"Sony WH-1000XM5","price":"$299.99","window_days":30,"review_count":"12"}`,
	}
	calls := 1
	for name, body := range variants {
		rec := do(e, http.MethodPost, "/api/analyze", body)
		calls++
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
			t.Fatalf("%s: %d %q", name, rec.Code, rec.Header().Get("X-Cache"))
		}
		if len(fa.calls) != calls {
			t.Fatalf("%s: analyzer calls = %d, want %d", name, len(fa.calls), calls)
		}
	}
	if fa.calls[len(fa.calls)-1].WindowDays == 0 {
		t.Fatalf("window days not forwarded")
	}

	if rec := do(e, http.MethodPost, "/api/analyze", base); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("identical request should hit, got %q", rec.Header().Get("X-Cache"))
	}
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	fa := &fakeAnalyzer{}
	e := newTestEcho(NewAnalysisEchoHandler(nil, fa, nil, category.NewClassifier()))

	rec := do(e, http.MethodPost, "/api/analyze", `{"amazon_url":"https://example.com/dp/B09XS7JWHH","title":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if codes := errorCodes(t, rec); len(codes) != 1 || codes[0] != "ERR_INVALID_URL" {
		t.Fatalf("codes = %v", codes)
	}

	rec = do(e, http.MethodPost, "/api/analyze", `{"amazon_url":"https://www.amazon.com/s?k=tv","title":"x"}`)
	if codes := errorCodes(t, rec); rec.Code != http.StatusBadRequest || len(codes) != 1 || codes[0] != "ERR_ASIN_REQUIRED" {
		t.Fatalf("status = %d codes = %v", rec.Code, codes)
	}

	rec = do(e, http.MethodPost, "/api/analyze", `{"asin":"B09XS7JWHH"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title status = %d", rec.Code)
	}
	if len(fa.calls) != 0 {
		t.Fatalf("analyzer should not run on invalid input")
	}
}

func TestAnalyze_UsecaseError(t *testing.T) {
	fa := &fakeAnalyzer{err: errors.New("boom")}
	e := newTestEcho(NewAnalysisEchoHandler(nil, fa, nil, category.NewClassifier()))
	rec := do(e, http.MethodPost, "/api/analyze", `{"asin":"B09XS7JWHH","title":"Kettle"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if codes := errorCodes(t, rec); len(codes) != 1 || codes[0] != "ERR_INTERNAL" {
		t.Fatalf("codes = %v", codes)
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	fa := &fakeAnalyzer{}
	h := NewAnalysisEchoHandler(nil, fa, nil, category.NewClassifier(), WithRateLimiter(ratelimit.New(1, 0)))
	e := newTestEcho(h)
	body := `{"asin":"B09XS7JWHH","title":"Kettle"}`
	if rec := do(e, http.MethodPost, "/api/analyze", body); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/analyze", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	// other routes are not throttled
	if rec := do(e, http.MethodGet, "/api/category?title=kettle", ""); rec.Code != http.StatusOK {
		t.Fatalf("category status = %d", rec.Code)
	}
}

func TestRecent(t *testing.T) {
	store := &fakeStore{rows: []models.AnalysisSummary{{ID: "1", ASIN: "B000000001"}, {ID: "2", ASIN: "B000000002"}}}
	recent := usecase.NewRecentAnalysesUseCase(store, nil)
	e := newTestEcho(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, recent, category.NewClassifier()))

	rec := do(e, http.MethodGet, "/api/recent-analyses?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Rows  []models.AnalysisSummary `json:"rows"`
			Total int64                    `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Total != 2 || len(body.Data.Rows) != 2 || store.limit != 5 {
		t.Fatalf("body = %+v limit = %d", body.Data, store.limit)
	}

	if rec := do(e, http.MethodGet, "/api/recent-analyses", ""); rec.Code != http.StatusOK || store.limit != 10 {
		t.Fatalf("default limit: %d %d", rec.Code, store.limit)
	}
	if rec := do(e, http.MethodGet, "/api/recent-analyses?limit=500", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit bound status = %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/recent-analyses?since=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("since status = %d", rec.Code)
	}
}

func TestCategory(t *testing.T) {
	e := newTestEcho(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, nil, category.NewClassifier()))
	rec := do(e, http.MethodGet, "/api/category?title=Sony+Wireless+Headphones", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"category":"headphones"`) {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/api/category", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title status = %d", rec.Code)
	}
}

func TestRoot_ReportsDegradedDependencies(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	down := checkFunc(func(context.Context) error { return errors.New("connection refused") })

	e := newTestEcho(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, nil, category.NewClassifier(), WithHealthCheck("sqlite", ok)))
	if rec := do(e, http.MethodGet, "/api/", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Impulse Saver API is running!") {
		t.Fatalf("healthy: %d %s", rec.Code, rec.Body.String())
	}

	e = newTestEcho(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, nil, category.NewClassifier(),
		WithHealthCheck("sqlite", ok), WithHealthCheck("redis", down)))
	rec := do(e, http.MethodGet, "/api/", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"redis":"connection refused"`) {
		t.Fatalf("degraded: %d %s", rec.Code, rec.Body.String())
	}
}

func TestStream_DisabledIs404(t *testing.T) {
	e := newTestEcho(NewAnalysisEchoHandler(nil, &fakeAnalyzer{}, nil, category.NewClassifier()))
	if rec := do(e, http.MethodGet, "/api/stream", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
