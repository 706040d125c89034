package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Log appends to and reads the activity feed.
type Log struct {
	db     *gorm.DB
	ledger *user.Ledger
	Now    func() time.Time
}

func NewLog(db *gorm.DB, ledger *user.Ledger) *Log {
	return &Log{db: db, ledger: ledger, Now: func() time.Time { return time.Now().UTC() }}
}

// WithTx returns a Log whose appends join tx.
func (l *Log) WithTx(tx *gorm.DB) *Log {
	return &Log{db: tx, ledger: l.ledger.WithTx(tx), Now: l.Now}
}

// Append records an event for userID. metadata may be nil.
func (l *Log) Append(ctx context.Context, userID string, typ Type, description string, metadata map[string]any) (*Activity, error) {
	a := &Activity{
		UserID:      userID,
		Type:        typ,
		Description: description,
		CreatedAt:   l.Now(),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, apperr.Validation("activity metadata is not serializable: %v", err)
		}
		a.Metadata = datatypes.JSON(raw)
	}
	if err := l.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, apperr.Storage(err, "append activity")
	}
	return a, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (l *Log) list(ctx context.Context, limit int, scope func(*gorm.DB) *gorm.DB) ([]Activity, error) {
	var rows []Activity
	err := database.RetryRead(ctx, func() error {
		rows = nil
		return scope(l.db.WithContext(ctx)).
			Order("created_at DESC").Order("id DESC").
			Limit(clampLimit(limit)).
			Find(&rows).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "load activities")
	}
	return rows, nil
}

// Recent returns the newest activities across all users, each with its
// user's profile. Entries whose user no longer resolves are skipped.
func (l *Log) Recent(ctx context.Context, limit int) ([]FeedItem, error) {
	rows, err := l.list(ctx, limit, func(db *gorm.DB) *gorm.DB { return db })
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.UserID)
	}
	users, err := l.ledger.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]FeedItem, 0, len(rows))
	for _, a := range rows {
		u, ok := users[a.UserID]
		if !ok {
			continue
		}
		items = append(items, FeedItem{Activity: a, User: u})
	}
	return items, nil
}

// ForUser returns userID's newest activities.
func (l *Log) ForUser(ctx context.Context, userID string, limit int) ([]Activity, error) {
	return l.list(ctx, limit, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}
