package vote

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote is one voter's guess on one game. Rows are never updated.
type Vote struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	GameID            string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_game_voter,priority:1" json:"gameId"`
	VoterID           string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_game_voter,priority:2;index" json:"voterId"`
	SelectedStatement int       `gorm:"not null" json:"selectedStatement"`
	IsCorrect         bool      `gorm:"not null" json:"isCorrect"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (v *Vote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		v.ID = id.String()
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Vote{})
}
