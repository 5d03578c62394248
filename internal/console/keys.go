package console

import (
	"context"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/window"
)

// Surfaces はキー操作から呼ぶディスプレイウィンドウの操作。
type Surfaces interface {
	OpenDisplaySurface(ctx context.Context) (window.Handle, error)
	CloseDisplaySurface()
	ToggleDisplayFullscreen(ctx context.Context) error
	IsOpen() bool
}

// Keymap はキーボードショートカットをセッション操作に対応づける。
type Keymap struct {
	session  *Session
	surfaces Surfaces
}

// NewKeymap はKeymapを生成する。surfacesはnilでもよい。
func NewKeymap(session *Session, surfaces Surfaces) *Keymap {
	return &Keymap{session: session, surfaces: surfaces}
}

// Handle はキーに対応する操作を実行する。未割り当てのキーはエラーを返す。
func (k *Keymap) Handle(ctx context.Context, key string) error {
	s := k.session
	switch key {
	case "ArrowRight":
		return s.StepLive(ctx, 1)
	case "ArrowLeft":
		return s.StepLive(ctx, -1)
	case "ArrowDown":
		return s.StepActive(ctx, 1)
	case "ArrowUp":
		return s.StepActive(ctx, -1)
	case "Enter", " ", "Space":
		return s.GoLive(ctx, "", nil)
	case "Escape":
		return s.StopLive(ctx)
	case "b", "B", ".":
		s.ToggleBlackout(ctx)
	case "c", "C":
		s.ToggleTextHidden(ctx)
	case "l", "L":
		s.ToggleLogo(ctx)
	case "+", "=":
		return s.StepFontSize(ctx, true)
	case "-", "_":
		return s.StepFontSize(ctx, false)
	case "g", "G":
		if k.surfaces == nil {
			return model.NewSurfaceBlockedError("ディスプレイウィンドウを操作できません")
		}
		return k.surfaces.ToggleDisplayFullscreen(ctx)
	case "p", "P":
		if k.surfaces == nil {
			return model.NewSurfaceBlockedError("ディスプレイウィンドウを操作できません")
		}
		if k.surfaces.IsOpen() {
			k.surfaces.CloseDisplaySurface()
			return nil
		}
		_, err := k.surfaces.OpenDisplaySurface(ctx)
		return err
	default:
		return model.NewUnknownKeyError(key)
	}
	return nil
}
