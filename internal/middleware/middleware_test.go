package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/config"
)

func TestLoggingMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-123")

	err := Logging(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"request_id":"rid-123"`) || !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("expected log output to contain request id and status, got %s", buf.String())
	}

	// ensure errors are propagated and logged
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextKeyRequestID, "rid-456")
	expected := errors.New("boom")
	err = Logging(logger)(func(c echo.Context) error {
		return expected
	})(c)
	if !strings.Contains(buf.String(), "rid-456") || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected second log entry at error level, got %s", buf.String())
	}
	if !errors.Is(err, expected) {
		t.Fatalf("expected error to bubble up")
	}
}

func TestTurnRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Requests: 1, Interval: time.Second}
	mw := TurnRateLimiter(cfg)

	e := echo.New()
	nextCalls := 0
	next := func(c echo.Context) error {
		nextCalls++
		return c.NoContent(http.StatusOK)
	}
	call := func(mw echo.MiddlewareFunc, id string) int {
		req := httptest.NewRequest(http.MethodPost, "/conversations/"+id+"/turns", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if id != "" {
			c.SetParamNames("id")
			c.SetParamValues(id)
		}
		_ = mw(next)(c)
		return rec.Code
	}

	if code := call(mw, "a"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := call(mw, "a"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request rejected, got %d", code)
	}

	// Another conversation has its own bucket.
	if code := call(mw, "b"); code != http.StatusOK {
		t.Fatalf("expected other conversation to pass, got %d", code)
	}

	// Requests without an id share a per-IP bucket.
	if code := call(mw, ""); code != http.StatusOK {
		t.Fatalf("expected first anonymous request to pass, got %d", code)
	}
	if code := call(mw, ""); code != http.StatusTooManyRequests {
		t.Fatalf("expected second anonymous request rejected, got %d", code)
	}

	// zero config should behave as passthrough
	mw = TurnRateLimiter(config.RateLimitConfig{})
	for i := 0; i < 3; i++ {
		if code := call(mw, "a"); code != http.StatusOK {
			t.Fatalf("expected passthrough when limiter disabled, got %d", code)
		}
	}
	if nextCalls != 6 {
		t.Fatalf("expected next handler to be invoked 6 times, got %d", nextCalls)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole("admin")

	t.Run("missing role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_ = mw(func(c echo.Context) error { return nil })(c)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("incorrect role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextKeyUserRole, "user")

		_ = mw(func(c echo.Context) error { return nil })(c)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextKeyUserRole, "admin")

		called := false
		if err := mw(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Fatalf("expected handler to run")
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	handler := RequestID()

	t.Run("reuse incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "incoming")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			if RequestIDFromContext(c) != "incoming" {
				t.Fatalf("expected request id to be stored")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") != "incoming" {
			t.Fatalf("expected response header to propagate request id")
		}
	})

	t.Run("generate when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler(func(c echo.Context) error {
			rid := RequestIDFromContext(c)
			if rid == "" {
				t.Fatalf("expected generated request id")
			}
			return c.NoContent(http.StatusOK)
		})(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if rec.Header().Get("X-Request-ID") == "" {
			t.Fatalf("expected response header set")
		}
	})
}
