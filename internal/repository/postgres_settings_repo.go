package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用したオペレーター設定リポジトリ。
// プレイリストとカスタムテーマはJSONB列に保存する。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// FindByOperatorID は指定オペレーターの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresSettingsRepo) FindByOperatorID(ctx context.Context, operatorID string) (*model.OperatorSettings, error) {
	var playlist, themes []byte
	settings := &model.OperatorSettings{OperatorID: operatorID}
	err := r.db.QueryRowContext(ctx,
		`SELECT playlist, custom_themes, updated_at
		 FROM operator_settings
		 WHERE operator_id = $1`,
		operatorID,
	).Scan(&playlist, &themes, &settings.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find operator settings: %w", err)
	}

	if err := decodeSettings(settings, playlist, themes); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save は設定を作成または上書きする。
func (r *PostgresSettingsRepo) Save(ctx context.Context, settings *model.OperatorSettings) error {
	playlist, themes, err := encodeSettings(settings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO operator_settings (operator_id, playlist, custom_themes, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (operator_id) DO UPDATE
		 SET playlist = EXCLUDED.playlist,
		     custom_themes = EXCLUDED.custom_themes,
		     updated_at = EXCLUDED.updated_at`,
		settings.OperatorID, playlist, themes, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save operator settings: %w", err)
	}
	return nil
}

func encodeSettings(settings *model.OperatorSettings) ([]byte, []byte, error) {
	items := settings.Playlist
	if items == nil {
		items = []model.PresentationItem{}
	}
	custom := settings.CustomThemes
	if custom == nil {
		custom = []model.Theme{}
	}

	playlist, err := json.Marshal(items)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode playlist: %w", err)
	}
	themes, err := json.Marshal(custom)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode custom themes: %w", err)
	}
	return playlist, themes, nil
}

func decodeSettings(settings *model.OperatorSettings, playlist, themes []byte) error {
	settings.Playlist = []model.PresentationItem{}
	settings.CustomThemes = []model.Theme{}
	if err := json.Unmarshal(playlist, &settings.Playlist); err != nil {
		return fmt.Errorf("failed to decode playlist: %w", err)
	}
	if err := json.Unmarshal(themes, &settings.CustomThemes); err != nil {
		return fmt.Errorf("failed to decode custom themes: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
