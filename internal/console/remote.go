package console

import (
	"context"

	"github.com/hitoshi/stagecast/internal/model"
)

// リモート操作のコマンド
const (
	RemoteNext     = "next"
	RemotePrev     = "prev"
	RemoteBlackout = "blackout"
	RemoteClear    = "clear"
	RemoteLogo     = "logo"
	RemoteGoLive   = "go_live"
	RemoteStop     = "stop"
)

// RemoteCommands は受け付けるリモート操作のコマンド一覧。
var RemoteCommands = []string{
	RemoteNext, RemotePrev, RemoteBlackout, RemoteClear, RemoteLogo, RemoteGoLive, RemoteStop,
}

// ExecuteRemote はペアリング済み端末からのコマンドを実行する。
func (s *Session) ExecuteRemote(ctx context.Context, command string) error {
	switch command {
	case RemoteNext:
		return s.StepLive(ctx, 1)
	case RemotePrev:
		return s.StepLive(ctx, -1)
	case RemoteBlackout:
		s.ToggleBlackout(ctx)
	case RemoteClear:
		s.ToggleTextHidden(ctx)
	case RemoteLogo:
		s.ToggleLogo(ctx)
	case RemoteGoLive:
		return s.GoLive(ctx, "", nil)
	case RemoteStop:
		return s.StopLive(ctx)
	default:
		return model.NewUnknownRemoteCommandError(command)
	}
	return nil
}
