package surface

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/stagecast/internal/bus"
	"github.com/hitoshi/stagecast/internal/model"
)

// DisplaySync はディスプレイ側の複製プロトコル。
// 参加時にREQUEST_STATEを1度だけ送り、SYNC_STATEを受けるたびに
// 状態を丸ごと置き換える。独自の変更権限は持たない。
//
// ブートストラップにタイムアウトはない。Readyで到着済みかを確認できる。
type DisplaySync struct {
	member *bus.Member
	logger *slog.Logger

	mu         sync.RWMutex
	state      model.Snapshot
	ready      bool
	fullscreen bool
	onUpdate   func(model.Snapshot)
}

// NewDisplaySync はDisplaySyncを生成する。
func NewDisplaySync(member *bus.Member, logger *slog.Logger) *DisplaySync {
	return &DisplaySync{
		member: member,
		logger: logger,
		state:  model.NewSnapshot(),
	}
}

// OnUpdate はスナップショット置き換え後に呼ばれるコールバックを設定する。
func (d *DisplaySync) OnUpdate(fn func(model.Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUpdate = fn
}

// Start はREQUEST_STATEを送ってから、ctxが終了するまでメッセージを処理する。
func (d *DisplaySync) Start(ctx context.Context) {
	payload, err := Encode(Message{Type: TypeRequestState})
	if err == nil {
		d.member.Publish(payload)
	}

	d.member.Listen(ctx, func(env bus.Envelope) {
		msg, err := Decode(env.Payload)
		if err != nil {
			d.logger.Warn("不正なメッセージを無視しました",
				slog.String("from", env.From),
				slog.String("error", err.Error()),
			)
			return
		}
		d.Apply(msg)
	})
}

// Apply はメッセージを適用する。SYNC_STATEの場合のみ状態を丸ごと置き換えてtrueを返す。
func (d *DisplaySync) Apply(msg Message) bool {
	if msg.Type != TypeSyncState || msg.Data == nil {
		return false
	}

	next := msg.Data.Clone()

	d.mu.Lock()
	d.state = next
	d.ready = true
	fn := d.onUpdate
	d.mu.Unlock()

	if fn != nil {
		fn(next.Clone())
	}
	return true
}

// State は現在の状態のコピーと、スナップショットを受信済みかどうかを返す。
func (d *DisplaySync) State() (model.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Clone(), d.ready
}

// Ready は1度でもスナップショットを受信したかどうかを返す。
func (d *DisplaySync) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// HandleCommand はウィンドウ経由で直接届いたコマンドを処理する。
// 既知のコマンドだった場合はtrueを返す。
func (d *DisplaySync) HandleCommand(cmd string) bool {
	if cmd != CommandToggleFullscreen {
		return false
	}
	d.mu.Lock()
	d.fullscreen = !d.fullscreen
	d.mu.Unlock()
	return true
}

// Fullscreen はフルスクリーン状態を返す。
func (d *DisplaySync) Fullscreen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fullscreen
}

// Leave はバスから退出する。
func (d *DisplaySync) Leave() {
	d.member.Leave()
}
