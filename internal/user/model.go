package user

import (
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = apperr.New(apperr.KindNotFound, "user not found")
	ErrIdentityTaken = apperr.New(apperr.KindValidation, "external identity is already registered")
)

// User is the ledger row for one player. Counters only change through
// UpdateUserStats.
type User struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ExternalID     string  `gorm:"uniqueIndex;not null" json:"externalId"`
	ExternalHandle string  `gorm:"uniqueIndex;not null" json:"externalHandle"`
	Avatar         *string `json:"avatar,omitempty"`

	Points              int64 `gorm:"not null" json:"points"`
	TotalGamesCreated   int   `gorm:"not null" json:"totalGamesCreated"`
	TotalGamesPlayed    int   `gorm:"not null" json:"totalGamesPlayed"`
	TotalCorrectGuesses int   `gorm:"not null" json:"totalCorrectGuesses"`
	TotalPlayersStumped int   `gorm:"not null" json:"totalPlayersStumped"`
	CurrentStreak       int   `gorm:"not null" json:"currentStreak"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate assigns a time-ordered ID when the caller did not.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id.String()
	}
	return nil
}

// Profile is what the identity provider resolves a login to.
type Profile struct {
	ExternalHandle string  `json:"externalHandle" binding:"required"`
	ExternalID     string  `json:"externalId" binding:"required"`
	Avatar         *string `json:"avatar"`
}

// PointEntry records one point award. Weekly totals are summed from these.
type PointEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(36);index:idx_point_entries_user_time,priority:1;not null" json:"userId"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(32);not null" json:"reason"`
	CreatedAt time.Time `gorm:"index:idx_point_entries_user_time,priority:2;index" json:"createdAt"`
}

// Friendship is stored in both directions.
type Friendship struct {
	UserID    string `gorm:"primaryKey;type:varchar(36)"`
	FriendID  string `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time
}

// Migrate creates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &PointEntry{}, &Friendship{})
}
