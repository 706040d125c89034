package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/config"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/metadata"
	"github.com/SlpAus/spot-the-lie-backend/internal/vote"
	"github.com/SlpAus/spot-the-lie-backend/pkg/lifecycle"
	"gorm.io/gorm"
)

const DefaultInterval = 10 * time.Minute

// ErrUnsupported 表示当前存储无法在进程内生成快照。
var ErrUnsupported = errors.New("backup: snapshots need a sqlite database")

// Snapshotter 使用 VACUUM INTO 将SQLite数据库复制为带时间戳的文件。
// 如果自上次快照以来没有新的投票，则跳过本次快照。
type Snapshotter struct {
	db       *gorm.DB
	dir      string
	interval time.Duration
	mu       sync.Mutex
	Now      func() time.Time
}

func NewSnapshotter(db *gorm.DB, cfg config.BackupConfig) *Snapshotter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Snapshotter{db: db, dir: cfg.Dir, interval: interval, Now: func() time.Time { return time.Now().UTC() }}
}

// Snapshot 写入一次快照并返回其路径；
// 如果自上次以来没有变化，则返回 ""。
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.Dialector.Name() != "sqlite" {
		return "", ErrUnsupported
	}

	var votes, covered int64
	var lastFile string
	err := database.RetryRead(ctx, func() error {
		if err := s.db.WithContext(ctx).Model(&vote.Vote{}).Count(&votes).Error; err != nil {
			return err
		}
		var err error
		if covered, err = metadata.GetInt(ctx, s.db, metadata.LastSnapshotVotesKey); err != nil {
			return err
		}
		lastFile, err = metadata.GetValue(ctx, s.db, metadata.LastSnapshotFileKey)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("read snapshot state: %w", err)
	}
	if lastFile != "" && votes == covered {
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("spot-the-lie-%s.db", s.Now().Format("20060102-150405.000")))
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := metadata.SetInt(ctx, tx, metadata.LastSnapshotVotesKey, votes); err != nil {
			return err
		}
		return metadata.SetValue(ctx, tx, metadata.LastSnapshotFileKey, path)
	})
	if err != nil {
		return path, fmt.Errorf("record snapshot: %w", err)
	}
	return path, nil
}

// Run 按间隔执行快照，直到h被取消，退出前再做最后一次快照。
func (s *Snapshotter) Run(h *lifecycle.Handle) {
	defer h.Close()
	log.Printf("backup: scheduler started, interval %s, dir %s", s.interval, s.dir)

	for {
		if err := h.Sleep(s.interval); err != nil {
			break
		}
		s.runOnce(h.Ctx())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.runOnce(ctx)
	log.Println("backup: scheduler stopped")
}

func (s *Snapshotter) runOnce(ctx context.Context) {
	path, err := s.Snapshot(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case err != nil:
		log.Printf("backup: snapshot failed: %v", err)
	case path != "":
		log.Printf("backup: snapshot written to %s", path)
	}
}
