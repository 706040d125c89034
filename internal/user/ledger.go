package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxHandleLength = 64

// ChangeListener is told after a committed write changed users or their stats.
type ChangeListener interface {
	ScoresChanged(ctx context.Context)
}

// Ledger owns user rows and is the only writer of their counters.
type Ledger struct {
	db        *gorm.DB
	listeners []ChangeListener
	inTx      bool
	Now       func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

// WithTx returns a Ledger whose writes join tx. It notifies no listeners;
// the owner of tx does that once it commits.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, inTx: true, Now: l.Now}
}

// OnChange registers listeners for writes made outside a caller's transaction.
func (l *Ledger) OnChange(listeners ...ChangeListener) {
	l.listeners = append(l.listeners, listeners...)
}

func (l *Ledger) notify(ctx context.Context) {
	if l.inTx {
		return
	}
	for _, c := range l.listeners {
		c.ScoresChanged(ctx)
	}
}

func (p *Profile) normalize() error {
	p.ExternalHandle = strings.TrimSpace(p.ExternalHandle)
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	if p.ExternalID == "" {
		return apperr.Validation("external id is required")
	}
	if p.ExternalHandle == "" {
		return apperr.Validation("external handle is required")
	}
	if len(p.ExternalHandle) > maxHandleLength {
		return apperr.Validation("external handle exceeds %d characters", maxHandleLength)
	}
	return nil
}

// CreateUser registers a new user with zeroed counters.
func (l *Ledger) CreateUser(ctx context.Context, p Profile) (*User, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	u := &User{
		ExternalID:     p.ExternalID,
		ExternalHandle: p.ExternalHandle,
		Avatar:         p.Avatar,
		CreatedAt:      l.Now(),
	}
	if err := l.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return nil, ErrIdentityTaken
		}
		return nil, apperr.Storage(err, "create user")
	}
	l.notify(ctx)
	return u, nil
}

// Login resolves a provider profile to a user, creating it on first login.
// Two concurrent first logins for the same identity return the same user.
func (l *Ledger) Login(ctx context.Context, p Profile) (*User, bool, error) {
	if err := p.normalize(); err != nil {
		return nil, false, err
	}
	u, err := l.GetUserByExternalID(ctx, p.ExternalID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	u, err = l.CreateUser(ctx, p)
	if errors.Is(err, ErrIdentityTaken) {
		// Lost the race, or the handle belongs to someone else.
		existing, lookupErr := l.GetUserByExternalID(ctx, p.ExternalID)
		if lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (l *Ledger) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := database.RetryRead(ctx, func() error {
		return l.db.WithContext(ctx).Where(query, arg).First(&u).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}
	return &u, nil
}

func (l *Ledger) GetUser(ctx context.Context, id string) (*User, error) {
	return l.findOne(ctx, "id = ?", id)
}

func (l *Ledger) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return l.findOne(ctx, "external_id = ?", externalID)
}

func (l *Ledger) GetUserByExternalHandle(ctx context.Context, handle string) (*User, error) {
	return l.findOne(ctx, "external_handle = ?", handle)
}

// GetUsers loads several users keyed by ID. Missing IDs are absent from the map.
func (l *Ledger) GetUsers(ctx context.Context, ids []string) (map[string]User, error) {
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []User
	err := database.RetryRead(ctx, func() error {
		return l.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "load users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// UpdateUserPoints adds delta to a user's points.
func (l *Ledger) UpdateUserPoints(ctx context.Context, userID string, delta int64) error {
	return l.UpdateUserStats(ctx, userID, AwardPoints(delta, ReasonAdjustment))
}

// UpdateUserStats applies mutations as a single atomic UPDATE. A point award
// also appends a PointEntry in the same transaction.
func (l *Ledger) UpdateUserStats(ctx context.Context, userID string, mutations ...Mutation) error {
	if len(mutations) == 0 {
		return apperr.Validation("no stat mutation given")
	}
	var d statDelta
	for _, m := range mutations {
		m(&d)
	}
	if err := d.validate(); err != nil {
		return err
	}
	cols := d.columns()
	if len(cols) == 0 {
		// Every mutation cancelled out; still require the user to exist.
		_, err := l.GetUser(ctx, userID)
		return err
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&User{}).Where("id = ?", userID).Updates(cols)
		if res.Error != nil {
			return apperr.Storage(res.Error, "update user stats")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update stats of %s: %w", userID, ErrUserNotFound)
		}
		if d.points > 0 {
			entry := PointEntry{UserID: userID, Delta: d.points, Reason: d.reason, CreatedAt: l.Now()}
			if err := tx.Create(&entry).Error; err != nil {
				return apperr.Storage(err, "record point entry")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.notify(ctx)
	return nil
}

// AddFriend links two users in both directions. Repeating it is a no-op.
func (l *Ledger) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return apperr.Validation("cannot befriend yourself")
	}
	found, err := l.GetUsers(ctx, []string{userID, friendID})
	if err != nil {
		return err
	}
	if len(found) != 2 {
		return ErrUserNotFound
	}
	now := l.Now()
	rows := []Friendship{
		{UserID: userID, FriendID: friendID, CreatedAt: now},
		{UserID: friendID, FriendID: userID, CreatedAt: now},
	}
	err = l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return apperr.Storage(err, "add friend")
	}
	return nil
}

// IsFriend reports whether friendID is among userID's friends.
func (l *Ledger) IsFriend(ctx context.Context, userID, friendID string) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&n).Error
	if err != nil {
		return false, apperr.Storage(err, "check friendship")
	}
	return n > 0, nil
}

// FriendIDs lists the IDs of userID's friends.
func (l *Ledger) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := database.RetryRead(ctx, func() error {
		return l.db.WithContext(ctx).Model(&Friendship{}).
			Where("user_id = ?", userID).
			Pluck("friend_id", &ids).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "load friends")
	}
	return ids, nil
}
