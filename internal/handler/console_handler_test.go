package handler

import (
	"net/http"
	"testing"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/window"
)

func TestConsoleHandler_GetState_Initial(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodGet, "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var snap model.Snapshot
	decodeBody(t, w, &snap)
	if len(snap.Playlist) != 0 {
		t.Errorf("playlist length = %d, want 0", len(snap.Playlist))
	}
	if snap.LiveSlideIndex != model.NoSelection || snap.ActiveSlideIndex != model.NoSelection {
		t.Errorf("indices = %d/%d, want -1/-1", snap.ActiveSlideIndex, snap.LiveSlideIndex)
	}
}

// 別のアイテムを選択してからライブにすると、選択したスライドがライブになる。
func TestConsoleHandler_SelectThenGoLive(t *testing.T) {
	env := newHandlerEnv(t)
	env.addItem(t, "Song A", "a1\n\na2")
	b := env.addItem(t, "Song B", "b1\n\nb2\n\nb3")

	w := env.do(t, http.MethodPost, "/api/nav/select", map[string]any{"itemId": b.ID, "slideIndex": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/live", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("go live status = %d, body = %s", w.Code, w.Body.String())
	}

	var snap model.Snapshot
	decodeBody(t, w, &snap)
	if snap.LiveItemID != b.ID || snap.LiveSlideIndex != 2 {
		t.Errorf("live = %s#%d, want %s#2", snap.LiveItemID, snap.LiveSlideIndex, b.ID)
	}
	if snap.ActiveItemID != b.ID || snap.ActiveSlideIndex != 2 {
		t.Errorf("active = %s#%d, want %s#2", snap.ActiveItemID, snap.ActiveSlideIndex, b.ID)
	}
}

func TestConsoleHandler_GoLiveExplicitIndexAndStop(t *testing.T) {
	env := newHandlerEnv(t)
	a := env.addItem(t, "Song A", "a1\n\na2\n\na3")

	w := env.do(t, http.MethodPost, "/api/live", map[string]any{"itemId": a.ID, "slideIndex": 1})
	var snap model.Snapshot
	decodeBody(t, w, &snap)
	if snap.LiveSlideIndex != 1 || snap.ActiveSlideIndex != 1 {
		t.Errorf("indices = active %d live %d, want 1/1", snap.ActiveSlideIndex, snap.LiveSlideIndex)
	}

	w = env.do(t, http.MethodPost, "/api/nav/live/next", nil)
	decodeBody(t, w, &snap)
	if snap.LiveSlideIndex != 2 {
		t.Errorf("live after next = %d, want 2", snap.LiveSlideIndex)
	}

	w = env.do(t, http.MethodDelete, "/api/live", nil)
	decodeBody(t, w, &snap)
	if snap.LiveItemID != "" || snap.LiveSlideIndex != model.NoSelection {
		t.Errorf("live after stop = %q#%d, want none", snap.LiveItemID, snap.LiveSlideIndex)
	}
}

func TestConsoleHandler_GoLiveErrors(t *testing.T) {
	env := newHandlerEnv(t)

	// 選択中のアイテムがない
	assertError(t, env.do(t, http.MethodPost, "/api/live", nil), http.StatusConflict, model.ErrCodeNoActiveItem)

	// 存在しないアイテム
	assertError(t, env.do(t, http.MethodPost, "/api/live", map[string]any{"itemId": "missing"}),
		http.StatusNotFound, model.ErrCodeItemNotFound)

	// 区切り
	w := env.do(t, http.MethodPost, "/api/playlist/items", map[string]any{"title": "Section", "kind": "divider"})
	var divider model.PresentationItem
	decodeBody(t, w, &divider)
	assertError(t, env.do(t, http.MethodPost, "/api/live", map[string]any{"itemId": divider.ID}),
		http.StatusConflict, model.ErrCodeDividerNotLive)

	// 壊れたJSON
	assertError(t, env.do(t, http.MethodPost, "/api/live", "{"), http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestConsoleHandler_StepDirections(t *testing.T) {
	env := newHandlerEnv(t)
	a := env.addItem(t, "Song A", "a1\n\na2")
	env.do(t, http.MethodPost, "/api/nav/select", map[string]any{"itemId": a.ID})

	w := env.do(t, http.MethodPost, "/api/nav/active/next", nil)
	var snap model.Snapshot
	decodeBody(t, w, &snap)
	if snap.ActiveSlideIndex != 1 {
		t.Errorf("active after next = %d, want 1", snap.ActiveSlideIndex)
	}

	// 末尾でクランプされる
	w = env.do(t, http.MethodPost, "/api/nav/active/next", nil)
	decodeBody(t, w, &snap)
	if snap.ActiveSlideIndex != 1 {
		t.Errorf("active after clamp = %d, want 1", snap.ActiveSlideIndex)
	}

	assertError(t, env.do(t, http.MethodPost, "/api/nav/active/sideways", nil), http.StatusBadRequest, model.ErrCodeInvalidRequest)
	assertError(t, env.do(t, http.MethodPost, "/api/nav/live/up", nil), http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestConsoleHandler_SelectValidation(t *testing.T) {
	env := newHandlerEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/api/nav/select", map[string]any{}), http.StatusBadRequest, model.ErrCodeInvalidRequest)
	assertError(t, env.do(t, http.MethodPost, "/api/nav/select", map[string]any{"itemId": "nope"}), http.StatusNotFound, model.ErrCodeItemNotFound)
}

func TestConsoleHandler_ToggleFlags(t *testing.T) {
	env := newHandlerEnv(t)

	tests := []struct {
		flag string
		want bool
	}{
		{"blackout", true},
		{"blackout", false},
		{"text", true},
		{"logo", true},
	}

	for _, tt := range tests {
		w := env.do(t, http.MethodPost, "/api/flags/"+tt.flag, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.flag, w.Code)
		}
		var resp flagResponse
		decodeBody(t, w, &resp)
		if resp.Flag != tt.flag || resp.Enabled != tt.want {
			t.Errorf("%s: response = %+v, want enabled=%v", tt.flag, resp, tt.want)
		}
	}

	snap := env.session.Snapshot()
	if snap.Blackout || !snap.TextHidden || !snap.LogoMode {
		t.Errorf("flags = blackout %v text %v logo %v, want false/true/true", snap.Blackout, snap.TextHidden, snap.LogoMode)
	}

	assertError(t, env.do(t, http.MethodPost, "/api/flags/confetti", nil), http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestConsoleHandler_Keys(t *testing.T) {
	env := newHandlerEnv(t)
	a := env.addItem(t, "Song A", "a1\n\na2")
	env.do(t, http.MethodPost, "/api/nav/select", map[string]any{"itemId": a.ID})

	w := env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "Enter"})
	var snap model.Snapshot
	decodeBody(t, w, &snap)
	if snap.LiveItemID != a.ID || snap.LiveSlideIndex != 0 {
		t.Errorf("live = %s#%d, want %s#0", snap.LiveItemID, snap.LiveSlideIndex, a.ID)
	}

	w = env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "ArrowRight"})
	decodeBody(t, w, &snap)
	if snap.LiveSlideIndex != 1 || snap.ActiveSlideIndex != 1 {
		t.Errorf("after ArrowRight = live %d active %d, want 1/1", snap.LiveSlideIndex, snap.ActiveSlideIndex)
	}

	// p でディスプレイを開閉する
	env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "p"})
	if !env.display.IsOpen() {
		t.Error("display should be open after p")
	}
	env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "P"})
	if env.display.IsOpen() {
		t.Error("display should be closed after second P")
	}

	assertError(t, env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "F13"}), http.StatusBadRequest, model.ErrCodeUnknownKey)
	assertError(t, env.do(t, http.MethodPost, "/api/keys", map[string]string{}), http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestConsoleHandler_KeysSurfaceBlocked(t *testing.T) {
	env := newHandlerEnv(t)
	env.display.openErr = window.ErrSurfaceBlocked

	assertError(t, env.do(t, http.MethodPost, "/api/keys", map[string]string{"key": "g"}),
		http.StatusServiceUnavailable, model.ErrCodeSurfaceBlocked)
}

func TestConsoleHandler_StatusAndHistory(t *testing.T) {
	env := newHandlerEnv(t)
	env.addItem(t, "Song A", "a1")
	env.do(t, http.MethodPost, "/api/flags/blackout", nil)
	env.do(t, http.MethodPost, "/api/display/open", nil)

	w := env.do(t, http.MethodGet, "/api/status", nil)
	var status statusResponse
	decodeBody(t, w, &status)
	if status.Sync.State != model.SyncStateIdle {
		t.Errorf("sync state = %q, want idle", status.Sync.State)
	}
	if !status.DisplayOpen {
		t.Error("displayOpen = false, want true")
	}

	w = env.do(t, http.MethodGet, "/api/history", nil)
	var history struct {
		Actions []model.ActionEntry `json:"actions"`
	}
	decodeBody(t, w, &history)
	if len(history.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(history.Actions))
	}
	// 新しい順
	if history.Actions[0].Timestamp.Before(history.Actions[1].Timestamp) {
		t.Error("actions should be newest first")
	}
}

func TestConsoleHandler_Focus(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodPost, "/api/focus", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
