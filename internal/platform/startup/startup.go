package startup

import (
	"context"
	"fmt"
	"log"

	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/health"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/metadata"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/SlpAus/spot-the-lie-backend/internal/vote"
	"gorm.io/gorm"
)

type migration struct {
	name string
	run  func(*gorm.DB) error
}

// 先迁移用户表，其他表都引用它
var migrations = []migration{
	{"user", user.Migrate},
	{"game", game.Migrate},
	{"vote", vote.Migrate},
	{"activity", activity.Migrate},
	{"metadata", metadata.Migrate},
}

// Migrate 将所有模块的表结构更新到最新。
func Migrate(db *gorm.DB) error {
	for _, m := range migrations {
		if err := m.run(db); err != nil {
			return fmt.Errorf("migrate %s tables: %w", m.name, err)
		}
		log.Printf("startup: %s tables migrated", m.name)
	}
	return nil
}

// InitializeApplication 迁移表结构，并清空上一个进程遗留的缓存，
// 因为其内容可能早于之后的写入。
func InitializeApplication(ctx context.Context, db *gorm.DB, caches ...health.Invalidator) error {
	log.Println("startup: initializing application")
	if err := Migrate(db); err != nil {
		return err
	}
	for _, c := range caches {
		if err := c.Invalidate(ctx); err != nil {
			log.Printf("startup: %v", err)
		}
	}
	log.Println("startup: application initialized")
	return nil
}
