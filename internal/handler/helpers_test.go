package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/stagecast/internal/console"
	"github.com/hitoshi/stagecast/internal/ingest"
	"github.com/hitoshi/stagecast/internal/middleware"
	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/security"
	"github.com/hitoshi/stagecast/internal/theme"
	"github.com/hitoshi/stagecast/internal/window"
)

const testTokenSecret = "0123456789abcdef0123456789abcdef"

// --- モック定義 ---

// mockDisplay はDisplayControllerのモック実装。
type mockDisplay struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	toggled   int
	openCalls int
}

func (m *mockDisplay) OpenDisplaySurface(ctx context.Context) (window.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.open = true
	return nil, nil
}

func (m *mockDisplay) CloseDisplaySurface() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
}

func (m *mockDisplay) ToggleDisplayFullscreen(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		m.openCalls++
		if m.openErr != nil {
			return m.openErr
		}
		m.open = true
		return nil
	}
	m.toggled++
	return nil
}

func (m *mockDisplay) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// mockCommander はplayback.Commanderのモック実装。
type mockCommander struct {
	mu   sync.Mutex
	err  error
	cmds []playback.Command
}

func (m *mockCommander) Send(ctx context.Context, cmd playback.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = append(m.cmds, cmd)
	return m.err
}

// fixedClock は手動で進める時計。
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockAnnouncer はAnnouncementImporterのモック実装。
type mockAnnouncer struct {
	importFn func(ctx context.Context, rawURL string) (model.PresentationItem, error)
}

func (m *mockAnnouncer) Import(ctx context.Context, rawURL string) (model.PresentationItem, error) {
	if m.importFn != nil {
		return m.importFn(ctx, rawURL)
	}
	return model.PresentationItem{}, model.NewFeedNotDetectedError(rawURL)
}

// mockRemoteRecorder はRemoteCommandRecorderのモック実装。
type mockRemoteRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (m *mockRemoteRecorder) RecordRemoteCommand(command, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[command+"/"+result]++
}

func (m *mockRemoteRecorder) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[key]
}

// --- テスト環境 ---

type handlerEnv struct {
	session   *console.Session
	display   *mockDisplay
	commander *mockCommander
	clock     *fixedClock
	announcer *mockAnnouncer
	tokens    *security.RemoteTokenService
	recorder  *mockRemoteRecorder
	router    http.Handler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	presets, err := theme.LoadPresets()
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}
	tokens, err := security.NewRemoteTokenService(testTokenSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewRemoteTokenService() error = %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	env := &handlerEnv{
		session:   console.New(console.Deps{OperatorID: "test", Presets: presets, Logger: logger}),
		display:   &mockDisplay{},
		commander: &mockCommander{},
		clock:     &fixedClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
		announcer: &mockAnnouncer{},
		tokens:    tokens,
		recorder:  &mockRemoteRecorder{},
	}

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(6000, 6000))
	t.Cleanup(limiter.Stop)

	env.router = NewRouter(&RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       limiter,
		RemoteValidator:   tokens,
		Console:           env.session,
		Keys:              console.NewKeymap(env.session, env.display),
		Builder:           ingest.NewBuilder(security.NewContentSanitizer()),
		Announcer:         env.announcer,
		Display:           env.display,
		Audio:             playback.NewEstimator(env.clock, env.commander),
		RemoteIssuer:      tokens,
		RemoteRecorder:    env.recorder,
	})
	return env
}

// do はルーターへリクエストを送る。bodyがnilでなければJSONにする。
func (e *handlerEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// addItem はテキストからアイテムを追加してIDを返す。
func (e *handlerEnv) addItem(t *testing.T, title, text string) model.PresentationItem {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/playlist/items", map[string]any{"title": title, "kind": "song", "text": text})
	if w.Code != http.StatusCreated {
		t.Fatalf("add item status = %d, body = %s", w.Code, w.Body.String())
	}
	var item model.PresentationItem
	decodeBody(t, w, &item)
	return item
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
	if body.Category == "" || body.Action == "" {
		t.Errorf("error body should carry category and action: %+v", body)
	}
}
