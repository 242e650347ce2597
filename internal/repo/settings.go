package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jarekbird/telegram-receiver/internal/domain"
)

// GetSetting fetches the boolean value of a feature flag. A missing row
// reports (false, gorm.ErrRecordNotFound) so callers can distinguish "unset"
// from "set to false" when they care; most treat both as false.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var row domain.SystemSetting
	if err := db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return false, err
	}
	return row.Value, nil
}

// SetSetting upserts a feature flag. Used by tests and operational tooling;
// the service itself only reads flags.
func SetSetting(ctx context.Context, db *gorm.DB, key string, value bool) error {
	var row domain.SystemSetting
	err := db.WithContext(ctx).First(&row, "key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.WithContext(ctx).Create(&domain.SystemSetting{Key: key, Value: value}).Error
	case err != nil:
		return err
	default:
		return db.WithContext(ctx).Model(&domain.SystemSetting{}).
			Where("key = ?", key).Update("value", value).Error
	}
}
