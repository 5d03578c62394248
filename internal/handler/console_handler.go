package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
)

// StateService はコンソールの状態参照とナビゲーションを提供する。
// console.Sessionが満たす。
type StateService interface {
	Snapshot() model.Snapshot
	Focus()
	SyncStatus() model.SyncStatus
	Actions() []model.ActionEntry
	SelectItem(ctx context.Context, itemID string) error
	SelectSlide(ctx context.Context, itemID string, index int) error
	StepActive(ctx context.Context, delta int) error
	StepLive(ctx context.Context, delta int) error
	GoLive(ctx context.Context, itemID string, index *int) error
	StopLive(ctx context.Context) error
	ToggleBlackout(ctx context.Context) bool
	ToggleTextHidden(ctx context.Context) bool
	ToggleLogo(ctx context.Context) bool
}

// KeyHandler はキーボードショートカットを処理する。
type KeyHandler interface {
	Handle(ctx context.Context, key string) error
}

// DisplayStatus はディスプレイウィンドウの開閉状態を返す。
type DisplayStatus interface {
	IsOpen() bool
}

// AudioStatus はBGMの推定再生状態を返す。
type AudioStatus interface {
	State() playback.State
}

// ConsoleHandler はコンソールの状態とナビゲーションのHTTPハンドラー。
type ConsoleHandler struct {
	console StateService
	keys    KeyHandler
	display DisplayStatus
	audio   AudioStatus
}

// NewConsoleHandler はConsoleHandlerを生成する。display、audioはnilでもよい。
func NewConsoleHandler(console StateService, keys KeyHandler, display DisplayStatus, audio AudioStatus) *ConsoleHandler {
	return &ConsoleHandler{
		console: console,
		keys:    keys,
		display: display,
		audio:   audio,
	}
}

// statusResponse は同期インジケーターと周辺の状態。
type statusResponse struct {
	Sync        model.SyncStatus `json:"sync"`
	DisplayOpen bool             `json:"displayOpen"`
	Playback    playback.State   `json:"playback"`
}

type selectRequest struct {
	ItemID     string `json:"itemId"`
	SlideIndex *int   `json:"slideIndex,omitempty"`
}

type goLiveRequest struct {
	ItemID     string `json:"itemId,omitempty"`
	SlideIndex *int   `json:"slideIndex,omitempty"`
}

type flagResponse struct {
	Flag    string `json:"flag"`
	Enabled bool   `json:"enabled"`
}

type keyRequest struct {
	Key string `json:"key"`
}

// GetState は現在のスナップショットを返す。
// GET /api/state
func (h *ConsoleHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.console.Snapshot())
}

// Focus はコンソールがフォーカスを取り戻したときに状態を再配信する。
// POST /api/focus
func (h *ConsoleHandler) Focus(w http.ResponseWriter, r *http.Request) {
	h.console.Focus()
	w.WriteHeader(http.StatusNoContent)
}

// GetStatus は同期インジケーター、ディスプレイ、BGMの状態を返す。
// GET /api/status
func (h *ConsoleHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Sync: h.console.SyncStatus()}
	if h.display != nil {
		resp.DisplayOpen = h.display.IsOpen()
	}
	if h.audio != nil {
		resp.Playback = h.audio.State()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHistory は操作履歴を新しい順で返す。
// GET /api/history
func (h *ConsoleHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": h.console.Actions()})
}

// Select はアイテムまたはスライドを選択する。
// POST /api/nav/select
func (h *ConsoleHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}
	if req.ItemID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("itemIdは必須です"))
		return
	}

	var err error
	if req.SlideIndex == nil {
		err = h.console.SelectItem(r.Context(), req.ItemID)
	} else {
		err = h.console.SelectSlide(r.Context(), req.ItemID, *req.SlideIndex)
	}
	h.respondState(w, err)
}

// StepActive は選択中のスライドを前後に移動する。
// POST /api/nav/active/{direction}
func (h *ConsoleHandler) StepActive(w http.ResponseWriter, r *http.Request) {
	delta, ok := parseDirection(chi.URLParam(r, "direction"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("directionはnextまたはprevです"))
		return
	}
	h.respondState(w, h.console.StepActive(r.Context(), delta))
}

// StepLive はライブのスライドを前後に移動する。
// POST /api/nav/live/{direction}
func (h *ConsoleHandler) StepLive(w http.ResponseWriter, r *http.Request) {
	delta, ok := parseDirection(chi.URLParam(r, "direction"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("directionはnextまたはprevです"))
		return
	}
	h.respondState(w, h.console.StepLive(r.Context(), delta))
}

// GoLive はアイテムをライブにする。ボディを省略した場合は選択中のスライドをライブにする。
// POST /api/live
func (h *ConsoleHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	var req goLiveRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, true) {
		return
	}
	h.respondState(w, h.console.GoLive(r.Context(), req.ItemID, req.SlideIndex))
}

// StopLive はライブ出力を止める。
// DELETE /api/live
func (h *ConsoleHandler) StopLive(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, h.console.StopLive(r.Context()))
}

// ToggleFlag はblackout、text、logoのいずれかを切り替える。
// POST /api/flags/{flag}
func (h *ConsoleHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	flag := chi.URLParam(r, "flag")

	var enabled bool
	switch flag {
	case "blackout":
		enabled = h.console.ToggleBlackout(r.Context())
	case "text":
		enabled = h.console.ToggleTextHidden(r.Context())
	case "logo":
		enabled = h.console.ToggleLogo(r.Context())
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("flagはblackout、text、logoのいずれかです"))
		return
	}
	writeJSON(w, http.StatusOK, flagResponse{Flag: flag, Enabled: enabled})
}

// HandleKey はキーボードショートカットを実行する。
// POST /api/keys
func (h *ConsoleHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}
	if req.Key == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("keyは必須です"))
		return
	}
	h.respondState(w, h.keys.Handle(r.Context(), req.Key))
}

// respondState は操作の結果に応じてエラーか最新のスナップショットを返す。
func (h *ConsoleHandler) respondState(w http.ResponseWriter, err error) {
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.console.Snapshot())
}
