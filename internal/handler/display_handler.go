package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/window"
)

// DisplayController はディスプレイウィンドウを操作する。window.Controllerが満たす。
type DisplayController interface {
	OpenDisplaySurface(ctx context.Context) (window.Handle, error)
	CloseDisplaySurface()
	ToggleDisplayFullscreen(ctx context.Context) error
	IsOpen() bool
}

// AudioPlayer はBGMの再生位置を推定しつつ埋め込みプレイヤーへコマンドを送る。
// playback.Estimatorが満たす。
type AudioPlayer interface {
	Load(ctx context.Context, trackID string) error
	Toggle(ctx context.Context) error
	Seek(ctx context.Context, delta time.Duration) error
	Stop(ctx context.Context) error
	State() playback.State
}

// DisplayHandler はディスプレイウィンドウとBGMのHTTPハンドラー。
type DisplayHandler struct {
	display DisplayController
	audio   AudioPlayer
}

// NewDisplayHandler はDisplayHandlerを生成する。
func NewDisplayHandler(display DisplayController, audio AudioPlayer) *DisplayHandler {
	return &DisplayHandler{display: display, audio: audio}
}

type displayResponse struct {
	Open bool `json:"open"`
}

// audioResponse はBGMの状態。コマンドの配信に失敗しても推定状態は返す。
type audioResponse struct {
	playback.State
	Delivered bool `json:"delivered"`
}

type trackRequest struct {
	VideoID string `json:"videoId"`
}

type seekRequest struct {
	DeltaMs int64 `json:"deltaMs"`
}

// Open はディスプレイウィンドウを開く。既に開いている場合はフォーカスする。
// POST /api/display/open
func (h *DisplayHandler) Open(w http.ResponseWriter, r *http.Request) {
	if _, err := h.display.OpenDisplaySurface(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, displayResponse{Open: h.display.IsOpen()})
}

// Close はディスプレイウィンドウを閉じる。
// POST /api/display/close
func (h *DisplayHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.display.CloseDisplaySurface()
	writeJSON(w, http.StatusOK, displayResponse{Open: h.display.IsOpen()})
}

// Fullscreen はフルスクリーンを切り替える。閉じている場合は開く。
// POST /api/display/fullscreen
func (h *DisplayHandler) Fullscreen(w http.ResponseWriter, r *http.Request) {
	if err := h.display.ToggleDisplayFullscreen(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, displayResponse{Open: h.display.IsOpen()})
}

// LoadTrack はBGMのトラックを読み込んで再生を始める。
// POST /api/audio/track
func (h *DisplayHandler) LoadTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("videoIdは必須です"))
		return
	}
	h.respondAudio(w, "load", h.audio.Load(r.Context(), videoID))
}

// Toggle はBGMの再生と一時停止を切り替える。
// POST /api/audio/toggle
func (h *DisplayHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.respondAudio(w, "toggle", h.audio.Toggle(r.Context()))
}

// Seek は推定位置から相対的にシークする。
// POST /api/audio/seek
func (h *DisplayHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}
	h.respondAudio(w, "seek", h.audio.Seek(r.Context(), time.Duration(req.DeltaMs)*time.Millisecond))
}

// StopAudio はBGMを止めてトラックを破棄する。
// DELETE /api/audio
func (h *DisplayHandler) StopAudio(w http.ResponseWriter, r *http.Request) {
	h.respondAudio(w, "stop", h.audio.Stop(r.Context()))
}

// respondAudio はBGM操作の結果を返す。
// トラック未読み込みはエラーにし、コマンドの配信失敗はログに残して推定状態を返す。
func (h *DisplayHandler) respondAudio(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, playback.ErrNoTrack) {
		handleServiceError(w, err)
		return
	}
	if err != nil {
		slog.Warn("media command delivery failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusOK, audioResponse{State: h.audio.State(), Delivered: err == nil})
}
