// Package realtime はブラウザのディスプレイとコンソールビューをwebsocket経由で
// 放送バスに参加させる。
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/stagecast/internal/bus"
	"github.com/hitoshi/stagecast/internal/surface"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// Recorder は接続数を記録する。
type Recorder interface {
	RecordConnectionOpened(role string)
	RecordConnectionClosed(role string)
}

// BridgeConfig はBridgeの設定。
type BridgeConfig struct {
	// AllowedOrigin は接続を許可するOriginヘッダー。空の場合はOriginを検査しない。
	AllowedOrigin  string
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	Recorder       Recorder
}

// Bridge はwebsocket接続1本をバスのメンバー1つとして扱う。
// バスから受け取ったメッセージはそのままクライアントへ書き出し、
// クライアントからのメッセージは役割ごとに許可された種別だけをバスへ流す。
type Bridge struct {
	bus      *bus.Bus
	cfg      BridgeConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewBridge はBridgeを生成する。
func NewBridge(b *bus.Bus, cfg BridgeConfig, logger *slog.Logger) *Bridge {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	br := &Bridge{bus: b, cfg: cfg, logger: logger}
	br.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     br.checkOrigin,
	}
	return br
}

// ServeHTTP は接続をwebsocketにアップグレードし、切断までバスと中継する。
// projector=true で接続したクライアントはディスプレイ役になる。
func (br *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	role := surface.DetectRole(r.URL.Query())

	conn, err := br.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが失敗レスポンスを書き込み済み
		br.logger.Warn("websocketへのアップグレードに失敗しました",
			slog.String("role", role.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	member := br.bus.Join(surface.ChannelName)
	br.recordOpened(role)
	br.logger.Info("サーフェスが接続しました",
		slog.String("role", role.String()),
		slog.String("member_id", member.ID()),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		member.Leave()
		conn.Close()
		br.recordClosed(role)
		br.logger.Info("サーフェスが切断しました",
			slog.String("role", role.String()),
			slog.String("member_id", member.ID()),
		)
	}()

	go br.writeLoop(ctx, cancel, conn, member)

	// 再接続のたびにディスプレイの初期化ハンドシェイクをやり直す
	if role == surface.RoleDisplay {
		if payload, err := surface.Encode(surface.Message{Type: surface.TypeRequestState}); err == nil {
			member.Publish(payload)
		}
	}

	br.readLoop(conn, member, role)
}

// readLoop はクライアントからのメッセージを読み、許可された種別だけをバスへ流す。
func (br *Bridge) readLoop(conn *websocket.Conn, member *bus.Member, role surface.Role) {
	conn.SetReadLimit(br.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(br.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(br.cfg.PongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				br.logger.Warn("websocketの読み込みに失敗しました",
					slog.String("member_id", member.ID()),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		msg, err := surface.Decode(payload)
		if err != nil {
			br.logger.Debug("不正なメッセージを破棄しました",
				slog.String("member_id", member.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !surface.AllowedFrom(role, msg.Type) {
			br.logger.Debug("許可されていないメッセージを破棄しました",
				slog.String("role", role.String()),
				slog.String("type", string(msg.Type)),
			)
			continue
		}
		member.Publish(payload)
	}
}

// writeLoop はバスから届いたメッセージをクライアントへ書き出し、定期的にpingを送る。
func (br *Bridge) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, member *bus.Member) {
	ticker := time.NewTicker(br.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		cancel()
		// 読み込み側のReadMessageを解除する
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(br.cfg.WriteWait))
			return
		case env, ok := <-member.Messages():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(br.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, env.Payload); err != nil {
				br.logger.Warn("websocketへの書き込みに失敗しました",
					slog.String("member_id", member.ID()),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(br.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (br *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || br.cfg.AllowedOrigin == "" {
		return true
	}
	if origin == br.cfg.AllowedOrigin {
		return true
	}
	// 同一オリジンのディスプレイページ
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (br *Bridge) recordOpened(role surface.Role) {
	if br.cfg.Recorder != nil {
		br.cfg.Recorder.RecordConnectionOpened(role.String())
	}
}

func (br *Bridge) recordClosed(role surface.Role) {
	if br.cfg.Recorder != nil {
		br.cfg.Recorder.RecordConnectionClosed(role.String())
	}
}
