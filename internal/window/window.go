// Package window はディスプレイ用の別ウィンドウの開閉と、ウィンドウへの直接コマンド送信を扱う。
package window

import (
	"context"
	"errors"
)

// ErrSurfaceBlocked はホストがウィンドウの生成を拒否したことを示す。
// 自動での再試行は行わない。
var ErrSurfaceBlocked = errors.New("ディスプレイウィンドウの生成がブロックされました")

// Screen はホストが公開する画面の情報。
type Screen struct {
	Left    int
	Top     int
	Width   int
	Height  int
	Primary bool
}

// Placement はウィンドウの配置ヒント。
type Placement struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Handle は開いているディスプレイウィンドウへの参照。
type Handle interface {
	// Focus はウィンドウを前面に出す。
	Focus(ctx context.Context) error
	// Send はバスを経由せずにウィンドウへコマンド文字列を届ける。
	Send(ctx context.Context, cmd string) error
	// Close はウィンドウを閉じる。
	Close() error
	// OnClose はウィンドウが閉じられたときに呼ばれるコールバックを登録する。
	OnClose(fn func())
}

// Manager はウィンドウを生成するホスト側の実装。
type Manager interface {
	Screens(ctx context.Context) ([]Screen, error)
	Open(ctx context.Context, url string, p Placement) (Handle, error)
}

// Unavailable はウィンドウを生成できない環境向けのManager。
// 生成要求は常にErrSurfaceBlockedで失敗する。
type Unavailable struct{}

// Screens は画面情報を返さない。
func (Unavailable) Screens(context.Context) ([]Screen, error) {
	return nil, nil
}

// Open は常にErrSurfaceBlockedを返す。
func (Unavailable) Open(context.Context, string, Placement) (Handle, error) {
	return nil, ErrSurfaceBlocked
}

// ComputePlacement は配置ヒントを計算する。
// プライマリ以外の画面があれば最初のものの原点、なければプライマリ画面の右隣に置く。
func ComputePlacement(screens []Screen, width, height int) Placement {
	p := Placement{Width: width, Height: height}
	for _, s := range screens {
		if !s.Primary {
			p.Left = s.Left
			p.Top = s.Top
			return p
		}
	}
	for _, s := range screens {
		if s.Primary {
			p.Left = s.Width
			return p
		}
	}
	return p
}
