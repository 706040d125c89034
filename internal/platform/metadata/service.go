package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetValue 返回key对应的值，如果从未设置则返回 ""。
func GetValue(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.WithContext(ctx).Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue 插入或更新key。
func SetValue(ctx context.Context, db *gorm.DB, key, value string) error {
	meta := Metadata{Key: key, Value: value}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

func GetInt(ctx context.Context, db *gorm.DB, key string) (int64, error) {
	raw, err := GetValue(ctx, db, key)
	if err != nil || raw == "" {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse metadata %q: %w", key, err)
	}
	return n, nil
}

func SetInt(ctx context.Context, db *gorm.DB, key string, n int64) error {
	return SetValue(ctx, db, key, strconv.FormatInt(n, 10))
}
