package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/stagecast/internal/model"
)

// SQLiteSettingsRepo はローカルのSQLiteファイルを使用したオペレーター設定リポジトリ。
// 状態変更のたびに同期的に書き込む即時保存先として使う。
type SQLiteSettingsRepo struct {
	db *sql.DB
}

// NewSQLiteSettingsRepo はSQLiteSettingsRepoを生成する。
func NewSQLiteSettingsRepo(db *sql.DB) *SQLiteSettingsRepo {
	return &SQLiteSettingsRepo{db: db}
}

// FindByOperatorID は指定オペレーターの設定を取得する。見つからない場合はnilを返す。
func (r *SQLiteSettingsRepo) FindByOperatorID(ctx context.Context, operatorID string) (*model.OperatorSettings, error) {
	var playlist, themes string
	var updatedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT playlist, custom_themes, updated_at
		 FROM operator_settings
		 WHERE operator_id = ?`,
		operatorID,
	).Scan(&playlist, &themes, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find local settings: %w", err)
	}

	settings := &model.OperatorSettings{
		OperatorID: operatorID,
		UpdatedAt:  time.UnixMilli(updatedAt).UTC(),
	}
	if err := decodeSettings(settings, []byte(playlist), []byte(themes)); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save は設定を作成または上書きする。
func (r *SQLiteSettingsRepo) Save(ctx context.Context, settings *model.OperatorSettings) error {
	playlist, themes, err := encodeSettings(settings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO operator_settings (operator_id, playlist, custom_themes, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (operator_id) DO UPDATE
		 SET playlist = excluded.playlist,
		     custom_themes = excluded.custom_themes,
		     updated_at = excluded.updated_at`,
		settings.OperatorID, string(playlist), string(themes), settings.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save local settings: %w", err)
	}
	return nil
}

// SaveSettings はSaveの別名。コンソールのローカル保存先として使う。
func (r *SQLiteSettingsRepo) SaveSettings(ctx context.Context, settings *model.OperatorSettings) error {
	return r.Save(ctx, settings)
}

// compile-time interface check
var _ SettingsRepository = (*SQLiteSettingsRepo)(nil)
