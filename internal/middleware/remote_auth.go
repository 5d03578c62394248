// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/security"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// deviceIDContextKey はペアリング済み端末のIDを格納するキー。
var deviceIDContextKey = contextKey("device_id")

// ErrNoDevice はコンテキストに端末IDがない場合のエラー。
var ErrNoDevice = errors.New("device id not found in context")

// RemoteTokenValidator はリモートトークンを検証する。
type RemoteTokenValidator interface {
	Validate(token string) (*security.RemoteClaims, error)
}

// NewRemoteAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 端末IDをリクエストコンテキストに注入するミドルウェアを返す。
// トークンがない、または無効な場合は401を返す。
func NewRemoteAuthMiddleware(validator RemoteTokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				slog.Warn("remote token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := WithDeviceID(r.Context(), claims.DeviceID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithDeviceID は端末IDを格納したコンテキストを返す。
// アクセスログのミドルウェアの内側では、ログにも端末IDが載る。
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if holder, ok := ctx.Value(deviceHolderKey).(*deviceHolder); ok {
		holder.deviceID = deviceID
	}
	return context.WithValue(ctx, deviceIDContextKey, deviceID)
}

// DeviceIDFromContext はリクエストコンテキストから端末IDを取得する。
func DeviceIDFromContext(ctx context.Context) (string, error) {
	deviceID, ok := ctx.Value(deviceIDContextKey).(string)
	if !ok || deviceID == "" {
		return "", ErrNoDevice
	}
	return deviceID, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
