package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/security"
)

func pairDevice(t *testing.T, env *handlerEnv, name string) security.RemoteToken {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/remote/pair", map[string]string{"deviceName": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("pair status = %d, body = %s", w.Code, w.Body.String())
	}
	var tok security.RemoteToken
	decodeBody(t, w, &tok)
	return tok
}

func TestRemoteHandler_Pair(t *testing.T) {
	env := newHandlerEnv(t)

	tok := pairDevice(t, env, "  Pastor's phone ")
	if tok.Token == "" || tok.DeviceID == "" {
		t.Fatalf("token = %+v, want token and device id", tok)
	}
	if tok.DeviceName != "Pastor's phone" {
		t.Errorf("device name = %q, want trimmed", tok.DeviceName)
	}

	claims, err := env.tokens.Validate(tok.Token)
	if err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}
	if claims.DeviceID() != tok.DeviceID {
		t.Errorf("claims device = %q, want %q", claims.DeviceID(), tok.DeviceID)
	}
}

func TestRemoteHandler_Pair_Validation(t *testing.T) {
	env := newHandlerEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/api/remote/pair", map[string]string{"deviceName": " "}),
		http.StatusBadRequest, model.ErrCodeInvalidRequest)
	assertError(t, env.do(t, http.MethodPost, "/api/remote/pair", map[string]string{"deviceName": strings.Repeat("端", 65)}),
		http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestRemoteHandler_Command(t *testing.T) {
	env := newHandlerEnv(t)
	item := env.addItem(t, "Song", "a\n\nb\n\nc")
	env.do(t, http.MethodPost, "/api/live", map[string]any{"itemId": item.ID})
	tok := pairDevice(t, env, "tablet")

	w := env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "next"},
		"Authorization", "Bearer "+tok.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp remoteCommandResponse
	decodeBody(t, w, &resp)
	if resp.Command != "next" || resp.Status != "ok" {
		t.Errorf("response = %+v", resp)
	}
	if got := env.session.Snapshot().LiveSlideIndex; got != 1 {
		t.Errorf("live index = %d, want 1", got)
	}

	env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "blackout"},
		"Authorization", "Bearer "+tok.Token)
	if !env.session.Snapshot().Blackout {
		t.Error("blackout should be on")
	}

	if env.recorder.count("next/ok") != 1 || env.recorder.count("blackout/ok") != 1 {
		t.Errorf("recorded = %+v", env.recorder.results)
	}
}

func TestRemoteHandler_Command_Unauthorized(t *testing.T) {
	env := newHandlerEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "next"}),
		http.StatusUnauthorized, model.ErrCodeUnauthorized)
	assertError(t, env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "next"},
		"Authorization", "Bearer forged"), http.StatusUnauthorized, model.ErrCodeUnauthorized)

	if len(env.recorder.results) != 0 {
		t.Errorf("rejected requests should not be recorded: %+v", env.recorder.results)
	}
}

func TestRemoteHandler_Command_Unknown(t *testing.T) {
	env := newHandlerEnv(t)
	tok := pairDevice(t, env, "tablet")

	assertError(t, env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "self_destruct"},
		"Authorization", "Bearer "+tok.Token), http.StatusBadRequest, model.ErrCodeUnknownRemoteCommand)

	if got := env.recorder.count("unknown/error"); got != 1 {
		t.Errorf("unknown/error = %d, want 1", got)
	}
}

// 選択中のアイテムがないときのgo_liveはドメインのエラーをそのまま返す。
func TestRemoteHandler_Command_NoActiveItem(t *testing.T) {
	env := newHandlerEnv(t)
	tok := pairDevice(t, env, "tablet")

	assertError(t, env.do(t, http.MethodPost, "/remote/command", map[string]string{"command": "go_live"},
		"Authorization", "Bearer "+tok.Token), http.StatusConflict, model.ErrCodeNoActiveItem)

	if got := env.recorder.count("go_live/error"); got != 1 {
		t.Errorf("go_live/error = %d, want 1", got)
	}
}
