package app

import (
	"fmt"
	"strings"

	"github.com/hitoshi/stagecast/internal/config"
)

// Command はstagecastの起動モード。
type Command string

const (
	// CommandServe はコンソールAPIとディスプレイ画面を配信するサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は操作履歴の日次クリーンアップを行う。
	CommandWorker Command = "worker"
	// CommandMigrate はリモート保存先(PostgreSQL)のマイグレーションを適用する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを叩く。コンテナのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭の引数から起動モードを決める。
// 前後の空白と大文字小文字は無視し、空や未知の値はserveとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch c := Command(strings.ToLower(strings.TrimSpace(args[0]))); c {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck:
		return c
	default:
		return CommandServe
	}
}

// RequiresRemote はDATABASE_URLなしでは動かないモードかを返す。
// serveはリモート保存先がなくてもローカル保存だけで動作する。
func (c Command) RequiresRemote() bool {
	return c == CommandWorker || c == CommandMigrate
}

func (c Command) requireRemote(cfg *config.Config) error {
	if c.RequiresRemote() && cfg.DatabaseURL == "" {
		return fmt.Errorf("%s: %w", c, ErrDatabaseRequired)
	}
	return nil
}
