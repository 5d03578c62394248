package playback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeClock は手動で進める時計。
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// mockCommander はCommanderのモック実装。
type mockCommander struct {
	sent   []Command
	sendFn func(cmd Command) error
}

func (m *mockCommander) Send(_ context.Context, cmd Command) error {
	m.sent = append(m.sent, cmd)
	if m.sendFn != nil {
		return m.sendFn(cmd)
	}
	return nil
}

func (m *mockCommander) last() Command {
	return m.sent[len(m.sent)-1]
}

func newTestEstimator() (*Estimator, *fakeClock, *mockCommander) {
	clock := &fakeClock{now: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)}
	cmd := &mockCommander{}
	return NewEstimator(clock, cmd), clock, cmd
}

func TestCommand_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"引数なし", Command{Func: FuncPause}, `{"event":"command","func":"pauseVideo","args":""}`},
		{"シーク", Command{Func: FuncSeek, Args: []any{12.5, true}}, `{"event":"command","func":"seekTo","args":[12.5,true]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("json = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestPlayWaitPause_Monotonic(t *testing.T) {
	e, clock, cmd := newTestEstimator()
	ctx := context.Background()

	if err := e.Load(ctx, "abc123"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	start := e.Position()

	clock.Advance(3 * time.Second)
	if err := e.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	if got := e.Position(); got != start+3*time.Second {
		t.Errorf("position = %v, want %v", got, start+3*time.Second)
	}

	// 一時停止中は進まない
	clock.Advance(10 * time.Second)
	if got := e.Position(); got != 3*time.Second {
		t.Errorf("position while paused = %v, want 3s", got)
	}
	if cmd.last().Func != FuncPause {
		t.Errorf("last command = %s, want %s", cmd.last().Func, FuncPause)
	}
}

func TestResumeAccumulates(t *testing.T) {
	e, clock, _ := newTestEstimator()
	ctx := context.Background()

	e.Load(ctx, "abc123")
	clock.Advance(2 * time.Second)
	e.Pause(ctx)
	clock.Advance(5 * time.Second)
	e.Resume(ctx)
	clock.Advance(4 * time.Second)

	if got := e.Position(); got != 6*time.Second {
		t.Errorf("position = %v, want 6s", got)
	}
}

func TestToggle(t *testing.T) {
	e, _, cmd := newTestEstimator()
	ctx := context.Background()

	if err := e.Toggle(ctx); !errors.Is(err, ErrNoTrack) {
		t.Errorf("toggle without track = %v, want ErrNoTrack", err)
	}

	e.Load(ctx, "abc123")
	e.Toggle(ctx)
	if e.State().Playing {
		t.Error("toggle while playing should pause")
	}
	e.Toggle(ctx)
	if !e.State().Playing {
		t.Error("toggle while paused should resume")
	}
	if cmd.last().Func != FuncPlay {
		t.Errorf("last command = %s, want %s", cmd.last().Func, FuncPlay)
	}
}

func TestSeek(t *testing.T) {
	t.Run("再生中は開始時刻をずらす", func(t *testing.T) {
		e, clock, cmd := newTestEstimator()
		ctx := context.Background()

		e.Load(ctx, "abc123")
		clock.Advance(10 * time.Second)
		if err := e.Seek(ctx, 5*time.Second); err != nil {
			t.Fatalf("Seek: %v", err)
		}

		args := cmd.last().Args.([]any)
		if args[0].(float64) != 15 || args[1] != true {
			t.Errorf("seek args = %v, want [15 true]", args)
		}
		if got := e.Position(); got != 15*time.Second {
			t.Errorf("position = %v, want 15s", got)
		}

		clock.Advance(time.Second)
		if got := e.Position(); got != 16*time.Second {
			t.Errorf("position after 1s = %v, want 16s", got)
		}
	})

	t.Run("一時停止中は経過時間を書き換える", func(t *testing.T) {
		e, clock, _ := newTestEstimator()
		ctx := context.Background()

		e.Load(ctx, "abc123")
		clock.Advance(10 * time.Second)
		e.Pause(ctx)
		e.Seek(ctx, -4*time.Second)

		if got := e.Position(); got != 6*time.Second {
			t.Errorf("position = %v, want 6s", got)
		}
		clock.Advance(time.Minute)
		if got := e.Position(); got != 6*time.Second {
			t.Errorf("paused position drifted to %v", got)
		}
	})

	t.Run("0未満には戻らない", func(t *testing.T) {
		e, clock, cmd := newTestEstimator()
		ctx := context.Background()

		e.Load(ctx, "abc123")
		clock.Advance(3 * time.Second)
		e.Seek(ctx, -10*time.Second)

		if got := e.Position(); got != 0 {
			t.Errorf("position = %v, want 0", got)
		}
		if args := cmd.last().Args.([]any); args[0].(float64) != 0 {
			t.Errorf("seek target = %v, want 0", args[0])
		}
	})
}

func TestSendFailureKeepsEstimate(t *testing.T) {
	e, clock, cmd := newTestEstimator()
	ctx := context.Background()
	e.Load(ctx, "abc123")

	cmd.sendFn = func(Command) error { return errors.New("iframe gone") }
	clock.Advance(2 * time.Second)

	if err := e.Pause(ctx); err == nil {
		t.Fatal("expected send error")
	}
	st := e.State()
	if st.Playing {
		t.Error("estimate should stay paused even when the command failed")
	}
	if st.PositionMs != 2000 {
		t.Errorf("positionMs = %d, want 2000", st.PositionMs)
	}
}

func TestStop(t *testing.T) {
	e, clock, cmd := newTestEstimator()
	ctx := context.Background()

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop without track: %v", err)
	}
	if len(cmd.sent) != 0 {
		t.Error("stop without track should not send")
	}

	e.Load(ctx, "abc123")
	clock.Advance(time.Second)
	e.Stop(ctx)

	st := e.State()
	if st.TrackID != "" || st.Playing || st.PositionMs != 0 {
		t.Errorf("state after stop = %+v", st)
	}
	if cmd.last().Func != FuncStop {
		t.Errorf("last command = %s", cmd.last().Func)
	}
	if err := e.Seek(ctx, time.Second); !errors.Is(err, ErrNoTrack) {
		t.Errorf("seek after stop = %v, want ErrNoTrack", err)
	}
}

func TestPublisherFunc(t *testing.T) {
	var got []byte
	pub := PublisherFunc(func(_ context.Context, payload []byte) error {
		got = payload
		return nil
	})
	if err := pub.Send(context.Background(), Command{Func: FuncPlay}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(got) != `{"event":"command","func":"playVideo","args":""}` {
		t.Errorf("payload = %s", got)
	}
}
