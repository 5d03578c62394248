package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/stagecast/internal/middleware"
	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/window"
)

// mockChecker はHealthCheckerのモック実装。
type mockChecker struct {
	err error
}

func (m *mockChecker) PingContext(ctx context.Context) error {
	return m.err
}

// mockStatusRecorder はStatusRecorderのモック実装。
type mockStatusRecorder struct {
	codes []int
}

func (m *mockStatusRecorder) RecordHTTPStatus(code int) {
	m.codes = append(m.codes, code)
}

func newBareRouter(t *testing.T, deps RouterDeps) http.Handler {
	t.Helper()
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)
	deps.RateLimiter = limiter
	return NewRouter(&deps)
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no checkers", nil, http.StatusOK, "ok"},
		{"healthy", []HealthChecker{&mockChecker{}, nil}, http.StatusOK, "ok"},
		{"storage down", []HealthChecker{&mockChecker{}, &mockChecker{err: errors.New("connection refused")}}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newBareRouter(t, RouterDeps{HealthCheckers: tt.checkers})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			decodeBody(t, w, &body)
			if body["status"] != tt.wantBody {
				t.Errorf("body status = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}

func TestRouter_OptionalHandlers(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "stagecast_up 1")
	})
	realtime := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router := newBareRouter(t, RouterDeps{MetricsHandler: metrics, Realtime: realtime})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "stagecast_up") {
		t.Errorf("metrics body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("/ws status = %d, want realtime handler", w.Code)
	}

	// 未設定なら登録しない
	router = newBareRouter(t, RouterDeps{})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", w.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodOptions, "/api/live", nil, "Origin", "http://localhost:3000")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, security headers should apply", got)
	}
}

func TestRouter_StatusRecorder(t *testing.T) {
	recorder := &mockStatusRecorder{}
	router := newBareRouter(t, RouterDeps{StatusRecorder: recorder})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if len(recorder.codes) != 2 || recorder.codes[0] != http.StatusOK || recorder.codes[1] != http.StatusNotFound {
		t.Errorf("recorded = %v, want [200 404]", recorder.codes)
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	env := newHandlerEnv(t)

	huge := `{"key":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := env.do(t, http.MethodPost, "/api/keys", huge)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewInvalidRequestError("x"), http.StatusBadRequest},
		{model.NewInvalidImportModeError("x"), http.StatusBadRequest},
		{model.NewInvalidURLError("x"), http.StatusBadRequest},
		{model.NewUnknownKeyError("x"), http.StatusBadRequest},
		{model.NewUnknownRemoteCommandError("x"), http.StatusBadRequest},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewSSRFBlockedError(), http.StatusForbidden},
		{model.NewItemNotFoundError("x"), http.StatusNotFound},
		{model.NewSlideNotFoundError("x"), http.StatusNotFound},
		{model.NewPresetNotFoundError("x"), http.StatusNotFound},
		{model.NewDividerNotLiveError(), http.StatusConflict},
		{model.NewNoActiveItemError(), http.StatusConflict},
		{model.NewNoAudioTrackError(), http.StatusConflict},
		{model.NewNotRefreshableError("x"), http.StatusConflict},
		{model.NewFeedNotDetectedError("x"), http.StatusUnprocessableEntity},
		{model.NewParseFailedError(), http.StatusUnprocessableEntity},
		{model.NewFetchFailedError("x"), http.StatusBadGateway},
		{model.NewSurfaceBlockedError("x"), http.StatusServiceUnavailable},
		{&model.APIError{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", model.NewItemNotFoundError("x"), http.StatusNotFound, model.ErrCodeItemNotFound},
		{"wrapped api error", fmt.Errorf("slide 2: %w", model.NewInvalidRequestError("x")), http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"surface blocked", fmt.Errorf("open: %w", window.ErrSurfaceBlocked), http.StatusServiceUnavailable, model.ErrCodeSurfaceBlocked},
		{"no track", playback.ErrNoTrack, http.StatusConflict, model.ErrCodeNoAudioTrack},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body middleware.ErrorResponseBody
			decodeBody(t, w, &body)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
