package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// PostgresActionRepo はPostgreSQLを使用した操作履歴リポジトリ。
type PostgresActionRepo struct {
	db *sql.DB
}

// NewPostgresActionRepo はPostgresActionRepoを生成する。
func NewPostgresActionRepo(db *sql.DB) *PostgresActionRepo {
	return &PostgresActionRepo{db: db}
}

// InsertBatch は操作履歴を1つのトランザクションで保存する。同じIDの履歴は無視する。
func (r *PostgresActionRepo) InsertBatch(ctx context.Context, operatorID string, entries []model.ActionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO action_history (id, operator_id, action, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare action insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, operatorID, e.Action, e.Detail, e.Timestamp); err != nil {
			return fmt.Errorf("failed to insert action %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRecent は指定オペレーターの操作履歴を新しい順にlimit件まで返す。
func (r *PostgresActionRepo) ListRecent(ctx context.Context, operatorID string, limit int) ([]model.ActionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, detail, occurred_at
		 FROM action_history
		 WHERE operator_id = $1
		 ORDER BY occurred_at DESC
		 LIMIT $2`,
		operatorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	entries := []model.ActionEntry{}
	for rows.Next() {
		var e model.ActionEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}
	return entries, nil
}

// compile-time interface check
var _ ActionRepository = (*PostgresActionRepo)(nil)
