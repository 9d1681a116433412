package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	l := New(2, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys must be independent")
	}
	if wait := l.RetryAfter("a"); wait != time.Second {
		t.Fatalf("retry after = %v", wait)
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("token should refill after 1s")
	}
}

func TestLimiter_Prune(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(time.Hour)
	l.Allow("b")
	if n := l.Prune(time.Minute); n != 1 {
		t.Fatalf("pruned = %d", n)
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	e := echo.New()
	l := New(1, 0.5)
	e.POST("/api/analyze", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(l))

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		e.ServeHTTP(rec, req)
		return rec
	}
	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}
