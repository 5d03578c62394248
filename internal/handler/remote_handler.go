package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/stagecast/internal/console"
	"github.com/hitoshi/stagecast/internal/middleware"
	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/security"
)

const maxDeviceNameLength = 64

// RemoteExecutor はリモートコマンドを実行する。console.Sessionが満たす。
type RemoteExecutor interface {
	ExecuteRemote(ctx context.Context, command string) error
}

// RemoteTokenIssuer はペアリングした端末にトークンを発行する。
type RemoteTokenIssuer interface {
	Issue(deviceName string) (*security.RemoteToken, error)
}

// RemoteCommandRecorder はリモートコマンドの結果を記録する。
type RemoteCommandRecorder interface {
	RecordRemoteCommand(command, result string)
}

// RemoteHandler はリモコンのペアリングとコマンドのHTTPハンドラー。
type RemoteHandler struct {
	executor RemoteExecutor
	issuer   RemoteTokenIssuer
	recorder RemoteCommandRecorder
}

// NewRemoteHandler はRemoteHandlerを生成する。recorderはnilでもよい。
func NewRemoteHandler(executor RemoteExecutor, issuer RemoteTokenIssuer, recorder RemoteCommandRecorder) *RemoteHandler {
	return &RemoteHandler{
		executor: executor,
		issuer:   issuer,
		recorder: recorder,
	}
}

type pairRequest struct {
	DeviceName string `json:"deviceName"`
}

type remoteCommandRequest struct {
	Command string `json:"command"`
}

type remoteCommandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
}

// Pair はリモコン端末をペアリングしてトークンを発行する。オペレーターのみが呼べる。
// POST /api/remote/pair
func (h *RemoteHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	name := strings.TrimSpace(req.DeviceName)
	if name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("deviceNameは必須です"))
		return
	}
	if utf8.RuneCountInString(name) > maxDeviceNameLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("deviceNameが長すぎます"))
		return
	}

	tok, err := h.issuer.Issue(name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("remote device paired",
		slog.String("device_id", tok.DeviceID),
		slog.String("device_name", tok.DeviceName),
	)
	writeJSON(w, http.StatusCreated, tok)
}

// Command はペアリング済み端末からのコマンドを実行する。
// POST /remote/command
func (h *RemoteHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req remoteCommandRequest
	if !decodeJSON(w, r, &req, maxBodyBytes, false) {
		return
	}

	deviceID, _ := middleware.DeviceIDFromContext(r.Context())

	if err := h.executor.ExecuteRemote(r.Context(), req.Command); err != nil {
		h.record(req.Command, "error")
		slog.Warn("remote command failed",
			slog.String("device_id", deviceID),
			slog.String("command", req.Command),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	h.record(req.Command, "ok")
	writeJSON(w, http.StatusOK, remoteCommandResponse{Command: req.Command, Status: "ok"})
}

func (h *RemoteHandler) record(command, result string) {
	if h.recorder == nil {
		return
	}
	// 未知のコマンドでラベルが増えないようにまとめる
	if !isKnownRemoteCommand(command) {
		command = "unknown"
	}
	h.recorder.RecordRemoteCommand(command, result)
}

func isKnownRemoteCommand(command string) bool {
	return slices.Contains(console.RemoteCommands, command)
}
