// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/stagecast/internal/model"
)

// SettingsRepository はオペレーター設定（プレイリストとカスタムテーマ）の永続化インターフェース。
type SettingsRepository interface {
	// FindByOperatorID は指定オペレーターの設定を取得する。見つからない場合はnilを返す。
	FindByOperatorID(ctx context.Context, operatorID string) (*model.OperatorSettings, error)

	// Save は設定を作成または上書きする。
	Save(ctx context.Context, settings *model.OperatorSettings) error
}

// ActionRepository は操作履歴の永続化インターフェース。
type ActionRepository interface {
	// InsertBatch は操作履歴をまとめて保存する。同じIDの履歴は無視する。
	InsertBatch(ctx context.Context, operatorID string, entries []model.ActionEntry) error

	// ListRecent は指定オペレーターの操作履歴を新しい順にlimit件まで返す。
	ListRecent(ctx context.Context, operatorID string, limit int) ([]model.ActionEntry, error)
}
