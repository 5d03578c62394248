package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/stagecast/internal/middleware"
	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/window"
)

const (
	// maxBodyBytes は通常のリクエストボディの上限。
	maxBodyBytes = 1 << 20
	// maxImportBodyBytes はプレイリスト取り込みのリクエストボディの上限。
	maxImportBodyBytes = 16 << 20
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvに読み込む。失敗した場合は400を書き込んでfalseを返す。
// optionalがtrueの場合、空のボディはエラーにしない。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewInvalidRequestError("リクエストボディが大きすぎます"))
		return false
	}
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
	return false
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はドメイン層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, window.ErrSurfaceBlocked):
		apiErr = model.NewSurfaceBlockedError(err.Error())
	case errors.Is(err, playback.ErrNoTrack):
		apiErr = model.NewNoAudioTrackError()
	default:
		// APIError以外のエラーは内部サーバーエラーとして扱う
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidImportMode, model.ErrCodeInvalidURL,
		model.ErrCodeUnknownKey, model.ErrCodeUnknownRemoteCommand:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeItemNotFound, model.ErrCodeSlideNotFound, model.ErrCodePresetNotFound:
		return http.StatusNotFound
	case model.ErrCodeDividerNotLive, model.ErrCodeNoActiveItem, model.ErrCodeNoAudioTrack,
		model.ErrCodeNotRefreshable:
		return http.StatusConflict
	case model.ErrCodeFeedNotDetected, model.ErrCodeParseFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeSurfaceBlocked:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseDirection はnext/prevを+1/-1に変換する。
func parseDirection(direction string) (int, bool) {
	switch direction {
	case "next":
		return 1, true
	case "prev":
		return -1, true
	default:
		return 0, false
	}
}
