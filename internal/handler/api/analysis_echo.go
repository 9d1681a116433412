package api

import (
	"context"
	"errors"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
	domsvc "ImpulseSaver/internal/domain/service"
	"ImpulseSaver/internal/service/ratelimit"
	"ImpulseSaver/internal/usecase"
	"ImpulseSaver/pkg/cache"
	xhttp "ImpulseSaver/pkg/http"
	xlogger "ImpulseSaver/pkg/logger"
	"ImpulseSaver/pkg/util"
)

// StreamServer upgrades a request into a live analysis subscription.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// HealthChecker is satisfied by every store and client that can be pinged.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AnalysisEchoHandler serves the analysis API.
type AnalysisEchoHandler struct {
	logger     *xlogger.Logger
	analyzer   usecase.Analyzer
	recent     *usecase.RecentAnalysesUseCase
	classifier domsvc.CategoryClassifier

	cache    cache.Service
	cacheTTL time.Duration
	limiter  *ratelimit.Limiter
	stream   StreamServer
	checks   map[string]HealthChecker
}

type HandlerOption func(*AnalysisEchoHandler)

// WithResponseCache caches analyses by marketplace, ASIN and price.
func WithResponseCache(c cache.Service, ttl time.Duration) HandlerOption {
	return func(h *AnalysisEchoHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithRateLimiter throttles POST /api/analyze per client.
func WithRateLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.limiter = l }
}

func WithStream(s StreamServer) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.stream = s }
}

// WithHealthCheck adds a named dependency to GET /api/.
func WithHealthCheck(name string, c HealthChecker) HandlerOption {
	return func(h *AnalysisEchoHandler) {
		if c != nil {
			h.checks[name] = c
		}
	}
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, recent *usecase.RecentAnalysesUseCase, classifier domsvc.CategoryClassifier, opts ...HandlerOption) *AnalysisEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &AnalysisEchoHandler{
		logger:     logger,
		analyzer:   analyzer,
		recent:     recent,
		classifier: classifier,
		cacheTTL:   10 * time.Minute,
		checks:     map[string]HealthChecker{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/", h.Root)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, ratelimit.Middleware(h.limiter))
	}
	g.POST("/analyze", h.Analyze, mw...)
	g.GET("/recent-analyses", h.Recent)
	g.GET("/category", h.Category)
	g.GET("/stream", h.Stream)
}

// Root reports liveness plus the state of each registered dependency.
func (h *AnalysisEchoHandler) Root(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(h.checks))
	for name, chk := range h.checks {
		if err := chk.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	body := map[string]interface{}{
		"message": "Impulse Saver API is running!",
		"status":  status,
		"checks":  checks,
	}
	if status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, body)
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asin := strings.ToUpper(strings.TrimSpace(req.ASIN))
	mp := domrepo.NormalizeMarketplace(req.Marketplace)
	if req.URL != "" {
		if !domrepo.IsAmazonURL(req.URL) {
			return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_INVALID_URL", "amazon_url", "Please provide a valid Amazon URL"))
		}
		if fromURL, urlMP, ok := domrepo.ParseProductURL(req.URL); ok {
			mp = urlMP
			if asin == "" {
				asin = fromURL
			}
		}
	}
	if asin == "" {
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_ASIN_REQUIRED", "asin", "Could not find a product id in the URL"))
	}

	ctx := c.Request().Context()
	key := ""
	if h.cache != nil && len(req.History) == 0 {
		key = analysisCacheKey(mp, asin, req)
		var cached models.ProductAnalysis
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			c.Response().Header().Set("X-Cache", "HIT")
			return xhttp.SuccessResponse(c, &cached)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("analysis cache read failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}

	res, err := h.analyzer.Analyze(ctx, usecase.AnalyzeParams{
		URL:         req.URL,
		ASIN:        asin,
		Marketplace: mp,
		Product: models.ProductData{
			Title:        req.Title,
			Price:        req.Price,
			ImageURL:     req.ImageURL,
			Rating:       req.Rating,
			ReviewCount:  req.ReviewCount,
			Availability: req.Availability,
		},
		CurrentPrice: req.CurrentPrice,
		RawHistory:   req.History,
		WindowDays:   req.WindowDays,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrASINRequired) {
			return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_ASIN_REQUIRED", "asin", err.Error()))
		}
		h.logger.Error("analyze usecase error", xlogger.String("asin", asin), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Error analyzing product. Please try again.").WithError(err))
	}

	if key != "" {
		if err := h.cache.Set(ctx, key, res, h.cacheTTL); err != nil {
			h.logger.Warn("analysis cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return xhttp.SuccessResponse(c, res)
}

// analysisCacheKey covers every request field the engine reads. Free text
// is hashed to keep keys short.
func analysisCacheKey(mp domrepo.Marketplace, asin string, req *models.AnalyzeRequest) string {
	h := fnv.New64a()
	for _, s := range []string{req.Title, req.Availability, req.ReviewCount, req.Rating, req.ImageURL} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return cache.GenerateKeyWithParams("analysis", mp, asin, req.Price, req.CurrentPrice, req.WindowDays,
		strconv.FormatUint(h.Sum64(), 16))
}

func (h *AnalysisEchoHandler) Recent(c echo.Context) error {
	req := &models.RecentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.RecentParams{Limit: req.Limit}
	if req.Since != "" {
		since, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_INVALID_TIME", "since", "since must be RFC3339 or unix seconds"))
		}
		p.Since = since
	}
	rows := h.recent.Recent(c.Request().Context(), p)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AnalysisEchoHandler) Category(c echo.Context) error {
	req := &models.CategoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, map[string]string{
		"title":    req.Title,
		"category": h.classifier.Classify(req.Title),
	})
}

func (h *AnalysisEchoHandler) Stream(c echo.Context) error {
	if h.stream == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("live stream disabled"))
	}
	// the upgrader already wrote the failure response
	if err := h.stream.ServeWS(c.Response(), c.Request()); err != nil {
		h.logger.Warn("stream upgrade failed", xlogger.String("remote", c.RealIP()), xlogger.Error(err))
	}
	return nil
}

var _ xhttp.Handler = (*AnalysisEchoHandler)(nil)
