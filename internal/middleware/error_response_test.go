package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/stagecast/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestWriteErrorResponse_CopiesAPIError はAPIErrorの全フィールドがそのまま書き出されることを検証する。
func TestWriteErrorResponse_CopiesAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	apiErr := model.NewNoActiveItemError()

	WriteErrorResponse(w, http.StatusConflict, apiErr)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	body := decodeErrorBody(t, w)
	want := ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
	if body != want {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

// TestWriteErrorResponse_DomainErrors は各ドメインのエラーがカテゴリ付きで返ることを検証する。
func TestWriteErrorResponse_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        *model.APIError
		category   string
	}{
		{"remote token", http.StatusUnauthorized, model.NewUnauthorizedError(), "remote"},
		{"ssrf", http.StatusForbidden, model.NewSSRFBlockedError(), "validation"},
		{"slide", http.StatusNotFound, model.NewSlideNotFoundError("s-1"), "playlist"},
		{"window", http.StatusServiceUnavailable, model.NewSurfaceBlockedError("popup blocked"), "surface"},
		{"audio", http.StatusConflict, model.NewNoAudioTrackError(), "playback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.statusCode, tt.err)

			if w.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.statusCode)
			}
			body := decodeErrorBody(t, w)
			if body.Code != tt.err.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.err.Code)
			}
			if body.Category != tt.category {
				t.Errorf("category = %q, want %q", body.Category, tt.category)
			}
			if body.Action == "" {
				t.Error("action should tell the operator what to do")
			}
		})
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーが汎用の内容で返ることを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("body = %+v, want INTERNAL_ERROR/system", body)
	}
}

// TestErrorResponseBody_JSONFieldNames はJSONのキー名を検証する。
func TestErrorResponseBody_JSONFieldNames(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("title is required"))

	var raw map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, field := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing field: %s", field)
		}
	}
}
