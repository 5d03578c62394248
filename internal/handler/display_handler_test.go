package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/window"
)

func TestDisplayHandler_OpenCloseFullscreen(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodPost, "/api/display/open", nil)
	var resp displayResponse
	decodeBody(t, w, &resp)
	if w.Code != http.StatusOK || !resp.Open {
		t.Fatalf("open = %d %+v, want 200 open", w.Code, resp)
	}

	w = env.do(t, http.MethodPost, "/api/display/fullscreen", nil)
	decodeBody(t, w, &resp)
	if !resp.Open || env.display.toggled != 1 {
		t.Errorf("fullscreen = %+v toggled=%d, want open and toggled once", resp, env.display.toggled)
	}

	w = env.do(t, http.MethodPost, "/api/display/close", nil)
	decodeBody(t, w, &resp)
	if resp.Open {
		t.Error("display should be closed")
	}
}

func TestDisplayHandler_Blocked(t *testing.T) {
	env := newHandlerEnv(t)
	env.display.openErr = window.ErrSurfaceBlocked

	assertError(t, env.do(t, http.MethodPost, "/api/display/open", nil), http.StatusServiceUnavailable, model.ErrCodeSurfaceBlocked)
	assertError(t, env.do(t, http.MethodPost, "/api/display/fullscreen", nil), http.StatusServiceUnavailable, model.ErrCodeSurfaceBlocked)
}

func TestDisplayHandler_AudioEstimate(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(t, http.MethodPost, "/api/audio/track", map[string]string{"videoId": "abc123"})
	var resp audioResponse
	decodeBody(t, w, &resp)
	if !resp.Delivered || !resp.Playing || resp.TrackID != "abc123" {
		t.Fatalf("load = %+v, want delivered and playing abc123", resp)
	}

	env.clock.Advance(30 * time.Second)
	w = env.do(t, http.MethodPost, "/api/audio/toggle", nil)
	decodeBody(t, w, &resp)
	if resp.Playing || resp.PositionMs != 30000 {
		t.Errorf("after pause = %+v, want paused at 30000ms", resp)
	}

	w = env.do(t, http.MethodPost, "/api/audio/seek", map[string]int64{"deltaMs": -45000})
	decodeBody(t, w, &resp)
	if resp.PositionMs != 0 {
		t.Errorf("position after seek = %d, want clamped to 0", resp.PositionMs)
	}

	w = env.do(t, http.MethodDelete, "/api/audio", nil)
	decodeBody(t, w, &resp)
	if resp.TrackID != "" || resp.Playing {
		t.Errorf("after stop = %+v, want no track", resp)
	}

	want := []string{playback.FuncLoad, playback.FuncPause, playback.FuncSeek, playback.FuncStop}
	if len(env.commander.cmds) != len(want) {
		t.Fatalf("commands = %d, want %d", len(env.commander.cmds), len(want))
	}
	for i, f := range want {
		if env.commander.cmds[i].Func != f {
			t.Errorf("command[%d] = %q, want %q", i, env.commander.cmds[i].Func, f)
		}
	}
}

// コマンドの配信に失敗しても推定状態は進み、delivered=falseで返る。
func TestDisplayHandler_AudioDeliveryFailure(t *testing.T) {
	env := newHandlerEnv(t)
	env.commander.err = errors.New("display closed")

	w := env.do(t, http.MethodPost, "/api/audio/track", map[string]string{"videoId": "abc123"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp audioResponse
	decodeBody(t, w, &resp)
	if resp.Delivered {
		t.Error("delivered should be false")
	}
	if resp.TrackID != "abc123" || !resp.Playing {
		t.Errorf("state = %+v, want estimate to advance", resp.State)
	}
}

func TestDisplayHandler_AudioErrors(t *testing.T) {
	env := newHandlerEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/api/audio/toggle", nil), http.StatusConflict, model.ErrCodeNoAudioTrack)
	assertError(t, env.do(t, http.MethodPost, "/api/audio/seek", map[string]int64{"deltaMs": 1000}), http.StatusConflict, model.ErrCodeNoAudioTrack)
	assertError(t, env.do(t, http.MethodPost, "/api/audio/track", map[string]string{"videoId": " "}), http.StatusBadRequest, model.ErrCodeInvalidRequest)

	// トラックがなくても停止は成功する
	w := env.do(t, http.MethodDelete, "/api/audio", nil)
	if w.Code != http.StatusOK {
		t.Errorf("stop status = %d, want 200", w.Code)
	}
}
