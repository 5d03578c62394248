// Package bus はプロセス内の名前付きブロードキャストチャネルを提供する。
//
// 同じチャネルに参加したメンバー間で、送信者以外の全員へメッセージを配送する。
// 配送保証はなく、参加前に送られたメッセージは届かない。受信側の受信箱が
// 満杯の場合、その受信者への配送だけを破棄し、送信者はブロックしない。
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// 破棄理由
const (
	DropNoListeners = "no_listeners"
	DropInboxFull   = "inbox_full"
)

const defaultBuffer = 64

// Recorder は配送結果の記録インターフェース。
type Recorder interface {
	RecordBusDelivery(channel string)
	RecordBusDrop(channel, reason string)
}

// Envelope は受信箱に届く1件のメッセージ。
type Envelope struct {
	From    string // 送信メンバーID
	Payload []byte
}

// Bus はチャネル名ごとのメンバー集合を管理する。
type Bus struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Member
	buffer   int
	recorder Recorder
	logger   *slog.Logger
}

// Option はBusの生成オプション。
type Option func(*Bus)

// WithBuffer はメンバーごとの受信箱の容量を設定する。
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithRecorder は配送結果の記録先を設定する。
func WithRecorder(r Recorder) Option {
	return func(b *Bus) { b.recorder = r }
}

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New は新しいBusを生成する。
func New(opts ...Option) *Bus {
	b := &Bus{
		channels: make(map[string]map[string]*Member),
		buffer:   defaultBuffer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Join は指定チャネルに新しいメンバーとして参加する。
// 参加はメンバーのライフタイムに限定され、Leaveで終了する。
func (b *Bus) Join(channel string) *Member {
	m := &Member{
		id:      uuid.NewString(),
		channel: channel,
		inbox:   make(chan Envelope, b.buffer),
		bus:     b,
	}

	b.mu.Lock()
	members, ok := b.channels[channel]
	if !ok {
		members = make(map[string]*Member)
		b.channels[channel] = members
	}
	members[m.id] = m
	b.mu.Unlock()

	b.logger.Debug("bus: member joined",
		slog.String("channel", channel),
		slog.String("member_id", m.id),
	)
	return m
}

// MemberCount は指定チャネルの現在のメンバー数を返す。
func (b *Bus) MemberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// publish は送信者以外の全メンバーへ配送し、配送できた件数を返す。
func (b *Bus) publish(from *Member, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	members := b.channels[from.channel]
	if len(members) <= 1 {
		b.recordDrop(from.channel, DropNoListeners)
		return 0
	}

	delivered := 0
	for id, m := range members {
		if id == from.id {
			continue
		}
		// 受信者ごとに独立したコピーを渡す
		buf := make([]byte, len(payload))
		copy(buf, payload)

		select {
		case m.inbox <- Envelope{From: from.id, Payload: buf}:
			delivered++
			if b.recorder != nil {
				b.recorder.RecordBusDelivery(from.channel)
			}
		default:
			b.recordDrop(from.channel, DropInboxFull)
			b.logger.Warn("bus: inbox full, message dropped",
				slog.String("channel", from.channel),
				slog.String("member_id", id),
			)
		}
	}
	return delivered
}

func (b *Bus) recordDrop(channel, reason string) {
	if b.recorder != nil {
		b.recorder.RecordBusDrop(channel, reason)
	}
}

// leave はメンバーをチャネルから外し、受信箱を閉じる。
// publishはRLock中に受信箱へ送るため、Lock下で閉じれば送信と競合しない。
func (b *Bus) leave(m *Member) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.channels[m.channel]
	if !ok {
		return
	}
	if _, ok := members[m.id]; !ok {
		return
	}
	delete(members, m.id)
	if len(members) == 0 {
		delete(b.channels, m.channel)
	}
	close(m.inbox)

	b.logger.Debug("bus: member left",
		slog.String("channel", m.channel),
		slog.String("member_id", m.id),
	)
}

// Member はチャネルに参加した1つの実行コンテキスト。
type Member struct {
	id      string
	channel string
	inbox   chan Envelope
	bus     *Bus

	mu   sync.Mutex
	left bool
}

// ID はメンバーIDを返す。
func (m *Member) ID() string { return m.id }

// Channel は参加中のチャネル名を返す。
func (m *Member) Channel() string { return m.channel }

// Publish は同じチャネルの自分以外の全メンバーへpayloadを送る。
// 他のメンバーがいない場合は黙って破棄する。退出後は何もしない。
func (m *Member) Publish(payload []byte) int {
	m.mu.Lock()
	left := m.left
	m.mu.Unlock()
	if left {
		return 0
	}
	return m.bus.publish(m, payload)
}

// Messages は受信箱を返す。Leave後に閉じられる。
func (m *Member) Messages() <-chan Envelope {
	return m.inbox
}

// Listen はctxが終了するかメンバーが退出するまで、受信したメッセージを
// 到着順にhandlerへ渡す。handlerは同時に1つしか実行されない。
func (m *Member) Listen(ctx context.Context, handler func(Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-m.inbox:
			if !ok {
				return
			}
			handler(env)
		}
	}
}

// Leave はチャネルから退出する。複数回呼んでも安全。
func (m *Member) Leave() {
	m.mu.Lock()
	if m.left {
		m.mu.Unlock()
		return
	}
	m.left = true
	m.mu.Unlock()

	m.bus.leave(m)
}
