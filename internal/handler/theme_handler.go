package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stagecast/internal/model"
)

// ThemeService はステージ/ライブのテーマ操作を提供する。console.Sessionが満たす。
type ThemeService interface {
	Snapshot() model.Snapshot
	StageTheme(t model.Theme)
	StagePreset(name string) error
	Presets() []model.Theme
	ApplyTheme(ctx context.Context) error
	DiscardTheme(ctx context.Context) error
	UndoTheme(ctx context.Context) (bool, error)
	RestoreOriginalTheme(ctx context.Context) (bool, error)
	RestoreThemeEntry(ctx context.Context, index int) (bool, error)
	StepFontSize(ctx context.Context, up bool) error
	ThemeHistory() []model.ThemeHistoryEntry
	HasOriginalTheme() bool
	SaveCustomTheme(ctx context.Context, t model.Theme) error
}

// ThemeHandler はテーマ編集のHTTPハンドラー。
type ThemeHandler struct {
	themes ThemeService
}

// NewThemeHandler はThemeHandlerを生成する。
func NewThemeHandler(themes ThemeService) *ThemeHandler {
	return &ThemeHandler{themes: themes}
}

type stagedThemeResponse struct {
	StagedTheme model.Theme `json:"stagedTheme"`
}

type changedResponse struct {
	Changed     bool        `json:"changed"`
	StagedTheme model.Theme `json:"stagedTheme"`
}

type fontSizeRequest struct {
	Direction string `json:"direction"`
}

type themeHistoryResponse struct {
	History     []model.ThemeHistoryEntry `json:"history"`
	HasOriginal bool                      `json:"hasOriginal"`
}

// Stage はステージテーマを置き換える。ライブの表示には影響しない。
// PUT /api/theme/staged
func (h *ThemeHandler) Stage(w http.ResponseWriter, r *http.Request) {
	var t model.Theme
	if !decodeJSON(w, r, &t, maxBodyBytes, false) {
		return
	}
	h.themes.StageTheme(t)
	h.writeStaged(w, http.StatusOK)
}

// Apply はステージテーマを選択中アイテムに適用する。
// POST /api/theme/apply
func (h *ThemeHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if err := h.themes.ApplyTheme(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	h.writeStaged(w, http.StatusOK)
}

// Discard はステージテーマを破棄する。
// POST /api/theme/discard
func (h *ThemeHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.themes.DiscardTheme(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	h.writeStaged(w, http.StatusOK)
}

// Undo は直前のテーマ適用を取り消す。
// POST /api/theme/undo
func (h *ThemeHandler) Undo(w http.ResponseWriter, r *http.Request) {
	changed, err := h.themes.UndoTheme(r.Context())
	h.writeChanged(w, changed, err)
}

// RestoreOriginal は選択中アイテムを編集前のテーマに戻す。
// POST /api/theme/restore-original
func (h *ThemeHandler) RestoreOriginal(w http.ResponseWriter, r *http.Request) {
	changed, err := h.themes.RestoreOriginalTheme(r.Context())
	h.writeChanged(w, changed, err)
}

// FontSize は文字サイズを1段階上げ下げする。
// POST /api/theme/font-size
func (h *ThemeHandler) FontSize(w http.ResponseWriter, r *http.Request) {
	var req fontSizeRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	var up bool
	switch req.Direction {
	case "up":
		up = true
	case "down":
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("directionはupまたはdownです"))
		return
	}

	if err := h.themes.StepFontSize(r.Context(), up); err != nil {
		handleServiceError(w, err)
		return
	}
	h.writeStaged(w, http.StatusOK)
}

// ListPresets はテーマプリセットを返す。
// GET /api/theme/presets
func (h *ThemeHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": h.themes.Presets()})
}

// StagePreset はプリセットをステージする。
// POST /api/theme/presets/{name}
func (h *ThemeHandler) StagePreset(w http.ResponseWriter, r *http.Request) {
	if err := h.themes.StagePreset(chi.URLParam(r, "name")); err != nil {
		handleServiceError(w, err)
		return
	}
	h.writeStaged(w, http.StatusOK)
}

// History は選択中アイテムのテーマ適用履歴を返す。
// GET /api/theme/history
func (h *ThemeHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeHistoryResponse{
		History:     h.themes.ThemeHistory(),
		HasOriginal: h.themes.HasOriginalTheme(),
	})
}

// RestoreEntry は履歴の1件（新しい順のindex）をライブとステージに適用する。履歴は変わらない。
// POST /api/theme/history/{index}/restore
func (h *ThemeHandler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("indexは整数です"))
		return
	}
	changed, err := h.themes.RestoreThemeEntry(r.Context(), index)
	h.writeChanged(w, changed, err)
}

// SaveCustom はカスタムテーマを保存する。同名のテーマは上書きする。
// POST /api/theme/custom
func (h *ThemeHandler) SaveCustom(w http.ResponseWriter, r *http.Request) {
	var t model.Theme
	if !decodeJSON(w, r, &t, maxBodyBytes, false) {
		return
	}
	if err := h.themes.SaveCustomTheme(r.Context(), t); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ThemeHandler) writeStaged(w http.ResponseWriter, statusCode int) {
	writeJSON(w, statusCode, stagedThemeResponse{StagedTheme: h.themes.Snapshot().StagedTheme})
}

func (h *ThemeHandler) writeChanged(w http.ResponseWriter, changed bool, err error) {
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{
		Changed:     changed,
		StagedTheme: h.themes.Snapshot().StagedTheme,
	})
}
