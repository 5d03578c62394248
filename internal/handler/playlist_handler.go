package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stagecast/internal/console"
	"github.com/hitoshi/stagecast/internal/ingest"
	"github.com/hitoshi/stagecast/internal/model"
)

// PlaylistService はプレイリストの編集を提供する。console.Sessionが満たす。
type PlaylistService interface {
	Playlist() ([]model.PresentationItem, []model.Theme)
	AddItem(ctx context.Context, item model.PresentationItem) (model.PresentationItem, error)
	DeleteItem(ctx context.Context, id string) error
	UpdateItemTitle(ctx context.Context, id, title string) error
	AddSlide(ctx context.Context, itemID string, slide model.Slide) (model.Slide, error)
	UpdateSlide(ctx context.Context, itemID, slideID string, upd console.SlideUpdate) error
	DeleteSlide(ctx context.Context, itemID, slideID string) error
	DuplicateSlide(ctx context.Context, itemID, slideID string) (model.Slide, error)
	Import(ctx context.Context, items []model.PresentationItem, themes []model.Theme, mode string) error
}

// ItemBuilder は入力から検証済みのアイテムとスライドを組み立てる。ingest.Builderが満たす。
type ItemBuilder interface {
	NewItem(req ingest.ItemRequest) (model.PresentationItem, error)
	NewSlide(req ingest.SlideRequest) (model.Slide, error)
	Clean(s string) string
}

// AnnouncementImporter はURLからお知らせアイテムを組み立てる。
type AnnouncementImporter interface {
	Import(ctx context.Context, rawURL string) (model.PresentationItem, error)
}

// PlaylistHandler はプレイリスト編集のHTTPハンドラー。
type PlaylistHandler struct {
	playlist  PlaylistService
	builder   ItemBuilder
	announcer AnnouncementImporter
}

// NewPlaylistHandler はPlaylistHandlerを生成する。
func NewPlaylistHandler(playlist PlaylistService, builder ItemBuilder, announcer AnnouncementImporter) *PlaylistHandler {
	return &PlaylistHandler{
		playlist:  playlist,
		builder:   builder,
		announcer: announcer,
	}
}

// playlistResponse はプレイリストとカスタムテーマ。取り込みの入力と同じ形にする。
type playlistResponse struct {
	Items  []model.PresentationItem `json:"items"`
	Themes []model.Theme            `json:"themes"`
}

type importRequest struct {
	Mode   string                   `json:"mode"`
	Items  []model.PresentationItem `json:"items"`
	Themes []model.Theme            `json:"themes"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type updateSlideRequest struct {
	Content       *string `json:"content,omitempty"`
	Label         *string `json:"label,omitempty"`
	OperatorNotes *string `json:"operatorNotes,omitempty"`
}

type announcementRequest struct {
	URL string `json:"url"`
}

// GetPlaylist はプレイリストとカスタムテーマを返す。
// GET /api/playlist
func (h *PlaylistHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	items, themes := h.playlist.Playlist()
	writeJSON(w, http.StatusOK, playlistResponse{Items: items, Themes: themes})
}

// AddItem はアイテムを作成してプレイリスト末尾に追加する。
// POST /api/playlist/items
func (h *PlaylistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req ingest.ItemRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	item, err := h.builder.NewItem(req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	added, err := h.playlist.AddItem(r.Context(), item)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// Import はプレイリストを取り込む。modeはreplaceまたはmerge。
// POST /api/playlist/import
func (h *PlaylistHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req, maxImportBodyBytes, false) {
		return
	}

	items := make([]model.PresentationItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = h.cleanItem(it)
	}

	if err := h.playlist.Import(r.Context(), items, req.Themes, req.Mode); err != nil {
		handleServiceError(w, err)
		return
	}
	h.GetPlaylist(w, r)
}

// RenameItem はアイテムのタイトルを変更する。
// PATCH /api/playlist/items/{id}
func (h *PlaylistHandler) RenameItem(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	itemID := chi.URLParam(r, "id")
	if err := h.playlist.UpdateItemTitle(r.Context(), itemID, strings.TrimSpace(req.Title)); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem はアイテムを削除する。
// DELETE /api/playlist/items/{id}
func (h *PlaylistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.playlist.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSlide はスライドを追加する。アイテムIDを省略した場合は選択中のアイテムに追加する。
// POST /api/playlist/items/{id}/slides, POST /api/playlist/slides
func (h *PlaylistHandler) AddSlide(w http.ResponseWriter, r *http.Request) {
	var req ingest.SlideRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	slide, err := h.builder.NewSlide(req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	added, err := h.playlist.AddSlide(r.Context(), chi.URLParam(r, "id"), slide)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateSlide はスライドの本文、ラベル、メモを変更する。省略したフィールドは変更しない。
// PATCH /api/playlist/items/{id}/slides/{slideID}
func (h *PlaylistHandler) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	var req updateSlideRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	upd := console.SlideUpdate{
		Content:       h.cleanPtr(req.Content),
		Label:         h.cleanPtr(req.Label),
		OperatorNotes: h.cleanPtr(req.OperatorNotes),
	}
	if err := h.playlist.UpdateSlide(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "slideID"), upd); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSlide はスライドを削除する。スライドがなくなったアイテムも削除される。
// DELETE /api/playlist/items/{id}/slides/{slideID}
func (h *PlaylistHandler) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	if err := h.playlist.DeleteSlide(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "slideID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateSlide はスライドを複製して直後に挿入する。
// POST /api/playlist/items/{id}/slides/{slideID}/duplicate
func (h *PlaylistHandler) DuplicateSlide(w http.ResponseWriter, r *http.Request) {
	slide, err := h.playlist.DuplicateSlide(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "slideID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slide)
}

// ImportAnnouncements はRSS/Atomフィードからお知らせアイテムを作成する。
// POST /api/playlist/announcements
func (h *PlaylistHandler) ImportAnnouncements(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	item, err := h.announcer.Import(r.Context(), rawURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	added, err := h.playlist.AddItem(r.Context(), item)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// cleanItem は取り込んだアイテムのスライド本文をサニタイズする。
func (h *PlaylistHandler) cleanItem(it model.PresentationItem) model.PresentationItem {
	it = it.Clone()
	it.Title = strings.TrimSpace(it.Title)
	for i := range it.Slides {
		s := &it.Slides[i]
		s.Content = h.builder.Clean(s.Content)
		s.Label = h.builder.Clean(s.Label)
		s.OperatorNotes = h.builder.Clean(s.OperatorNotes)
	}
	return it
}

func (h *PlaylistHandler) cleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := h.builder.Clean(*s)
	return &cleaned
}
