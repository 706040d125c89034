package activity

import (
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type tags what happened.
type Type string

const (
	TypeGameCreated   Type = "game_created"
	TypeCorrectGuess  Type = "correct_guess"
	TypeStumpedPlayer Type = "stumped_player"
)

// Activity is an append-only feed entry.
type Activity struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string         `gorm:"type:varchar(36);index;not null" json:"userId"`
	Type        Type           `gorm:"type:varchar(32);not null" json:"type"`
	Description string         `gorm:"not null" json:"description"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id.String()
	}
	return nil
}

// FeedItem is an activity joined with the profile of the user it belongs to.
type FeedItem struct {
	Activity
	User user.User `json:"user"`
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Activity{})
}
