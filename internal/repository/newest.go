package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// LoadNewest は複数の保存先から更新日時が最も新しい設定を返す。
// nilの保存先は無視し、どこにもなければnilを返す。
func LoadNewest(ctx context.Context, operatorID string, repos ...SettingsRepository) (*model.OperatorSettings, error) {
	var newest *model.OperatorSettings
	for _, r := range repos {
		if r == nil {
			continue
		}
		s, err := r.FindByOperatorID(ctx, operatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		if s == nil {
			continue
		}
		if newest == nil || s.UpdatedAt.After(newest.UpdatedAt) {
			newest = s
		}
	}
	return newest, nil
}
