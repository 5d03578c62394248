package surface

import (
	"context"
	"log/slog"

	"github.com/hitoshi/stagecast/internal/bus"
	"github.com/hitoshi/stagecast/internal/model"
)

// 配信理由
const (
	ReasonMutation = "mutation"
	ReasonRequest  = "request"
	ReasonFocus    = "focus"
	ReasonReopen   = "reopen"
)

// SnapshotProvider は現在のスナップショットを返す。
type SnapshotProvider interface {
	Snapshot() model.Snapshot
}

// SyncRecorder は配信の記録インターフェース。
type SyncRecorder interface {
	RecordSyncBroadcast(reason string)
}

// ConsoleSync はコンソール側の複製プロトコル。
// 状態変更のたびにSYNC_STATEを配信し、REQUEST_STATEとFOCUSには現在の
// スナップショットで応答する。
type ConsoleSync struct {
	member   *bus.Member
	logger   *slog.Logger
	recorder SyncRecorder
}

// NewConsoleSync はConsoleSyncを生成する。recorderはnilでもよい。
func NewConsoleSync(member *bus.Member, logger *slog.Logger, recorder SyncRecorder) *ConsoleSync {
	return &ConsoleSync{
		member:   member,
		logger:   logger,
		recorder: recorder,
	}
}

// PublishState はスナップショットをSYNC_STATEとして配信する。
// スナップショットは呼び出し側が明示的に渡す。
func (c *ConsoleSync) PublishState(reason string, snap model.Snapshot) {
	payload, err := Encode(Message{Type: TypeSyncState, Data: &snap})
	if err != nil {
		c.logger.Error("スナップショットの配信に失敗しました",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}

	delivered := c.member.Publish(payload)
	if c.recorder != nil {
		c.recorder.RecordSyncBroadcast(reason)
	}
	c.logger.Debug("スナップショットを配信しました",
		slog.String("reason", reason),
		slog.Int("delivered", delivered),
	)
}

// PublishMedia は埋め込みメディアへのコマンドをMEDIA_COMMANDとして配信する。
func (c *ConsoleSync) PublishMedia(ctx context.Context, media []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := Encode(Message{Type: TypeMediaCommand, Media: media})
	if err != nil {
		return err
	}
	c.member.Publish(payload)
	return nil
}

// Run はctxが終了するまでバスを監視し、要求に応じてスナップショットを配信する。
func (c *ConsoleSync) Run(ctx context.Context, provider SnapshotProvider) {
	c.member.Listen(ctx, func(env bus.Envelope) {
		msg, err := Decode(env.Payload)
		if err != nil {
			c.logger.Warn("不正なメッセージを無視しました",
				slog.String("from", env.From),
				slog.String("error", err.Error()),
			)
			return
		}

		switch msg.Type {
		case TypeRequestState:
			c.PublishState(ReasonRequest, provider.Snapshot())
		case TypeFocus:
			c.PublishState(ReasonFocus, provider.Snapshot())
		}
	})
}

// Leave はバスから退出する。
func (c *ConsoleSync) Leave() {
	c.member.Leave()
}
