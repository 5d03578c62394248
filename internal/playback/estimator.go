// Package playback は位置を問い合わせできない埋め込みメディアの再生位置を、
// 壁時計の差分から推定する。
package playback

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNoTrack は再生中のトラックがないことを示す。
var ErrNoTrack = errors.New("再生中のトラックがありません")

// メディアへのコマンド名
const (
	FuncPlay  = "playVideo"
	FuncPause = "pauseVideo"
	FuncSeek  = "seekTo"
	FuncLoad  = "loadVideoById"
	FuncStop  = "stopVideo"
)

// Clock は現在時刻を返す。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Command は埋め込みメディアへの一方通行のコマンド。
type Command struct {
	Func string
	Args any
}

// MarshalJSON はYouTube iframe APIの形式で出力する。
func (c Command) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = ""
	}
	return json.Marshal(struct {
		Event string `json:"event"`
		Func  string `json:"func"`
		Args  any    `json:"args"`
	}{Event: "command", Func: c.Func, Args: args})
}

// Commander はコマンドをメディアへ届ける。
type Commander interface {
	Send(ctx context.Context, cmd Command) error
}

// PublisherFunc はJSONにしたコマンドを配信する関数をCommanderとして使う。
type PublisherFunc func(ctx context.Context, payload []byte) error

// Send はコマンドをJSONにして配信する。
func (f PublisherFunc) Send(ctx context.Context, cmd Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return f(ctx, b)
}

// State は再生状態のスナップショット。
type State struct {
	TrackID    string `json:"trackId,omitempty"`
	Playing    bool   `json:"playing"`
	PositionMs int64  `json:"positionMs"`
}

// Estimator は推定再生位置を管理する。
// 推定位置 = elapsedOffset + (再生中なら now - lastStart)。
// コマンドの送信に失敗しても推定値は巻き戻さない。
type Estimator struct {
	clock     Clock
	commander Commander

	mu            sync.Mutex
	trackID       string
	playing       bool
	elapsedOffset time.Duration
	lastStart     time.Time
}

// NewEstimator はEstimatorを生成する。clockがnilの場合はシステム時刻を使う。
func NewEstimator(clock Clock, commander Commander) *Estimator {
	if clock == nil {
		clock = systemClock{}
	}
	return &Estimator{clock: clock, commander: commander}
}

// Load は新しいトラックを位置0から再生中として開始する。
func (e *Estimator) Load(ctx context.Context, trackID string) error {
	e.mu.Lock()
	e.trackID = trackID
	e.playing = true
	e.elapsedOffset = 0
	e.lastStart = e.clock.Now()
	e.mu.Unlock()

	return e.send(ctx, Command{Func: FuncLoad, Args: []any{trackID}})
}

// Toggle は再生と一時停止を切り替える。
func (e *Estimator) Toggle(ctx context.Context) error {
	e.mu.Lock()
	playing := e.playing
	e.mu.Unlock()

	if playing {
		return e.Pause(ctx)
	}
	return e.Resume(ctx)
}

// Pause は再生中の区間を経過時間に畳み込んでから一時停止コマンドを送る。
func (e *Estimator) Pause(ctx context.Context) error {
	e.mu.Lock()
	if e.trackID == "" {
		e.mu.Unlock()
		return ErrNoTrack
	}
	if e.playing {
		e.elapsedOffset += e.clock.Now().Sub(e.lastStart)
		e.playing = false
	}
	e.mu.Unlock()

	return e.send(ctx, Command{Func: FuncPause})
}

// Resume は区間の開始時刻を現在にして再生コマンドを送る。
func (e *Estimator) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.trackID == "" {
		e.mu.Unlock()
		return ErrNoTrack
	}
	if !e.playing {
		e.lastStart = e.clock.Now()
		e.playing = true
	}
	e.mu.Unlock()

	return e.send(ctx, Command{Func: FuncPlay})
}

// Seek は推定位置からdeltaだけ移動した絶対位置（0未満は0）へのシークコマンドを送る。
// 再生中は区間の開始時刻をずらし、一時停止中は経過時間を直接書き換える。
func (e *Estimator) Seek(ctx context.Context, delta time.Duration) error {
	e.mu.Lock()
	if e.trackID == "" {
		e.mu.Unlock()
		return ErrNoTrack
	}
	now := e.clock.Now()
	target := max(0, e.positionLocked(now)+delta)
	if e.playing {
		e.lastStart = now.Add(-(target - e.elapsedOffset))
	} else {
		e.elapsedOffset = target
	}
	e.mu.Unlock()

	return e.send(ctx, Command{Func: FuncSeek, Args: []any{target.Seconds(), true}})
}

// Stop はトラックを破棄する。
func (e *Estimator) Stop(ctx context.Context) error {
	e.mu.Lock()
	had := e.trackID != ""
	e.trackID = ""
	e.playing = false
	e.elapsedOffset = 0
	e.lastStart = time.Time{}
	e.mu.Unlock()

	if !had {
		return nil
	}
	return e.send(ctx, Command{Func: FuncStop})
}

// Position は推定再生位置を返す。
func (e *Estimator) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked(e.clock.Now())
}

// State は現在の再生状態を返す。
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		TrackID:    e.trackID,
		Playing:    e.playing,
		PositionMs: e.positionLocked(e.clock.Now()).Milliseconds(),
	}
}

func (e *Estimator) positionLocked(now time.Time) time.Duration {
	pos := e.elapsedOffset
	if e.playing {
		pos += now.Sub(e.lastStart)
	}
	return pos
}

func (e *Estimator) send(ctx context.Context, cmd Command) error {
	if e.commander == nil {
		return nil
	}
	return e.commander.Send(ctx, cmd)
}
