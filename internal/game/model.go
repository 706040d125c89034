package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// Lifetime is how long a game accepts votes.
	Lifetime = 24 * time.Hour

	StatementCount       = 3
	MaxStatementLength   = 280
	MaxExplanationLength = 500
)

var ErrGameNotFound = apperr.New(apperr.KindNotFound, "game not found")

// Game is one published set of statements. LieStatement and Explanation stay
// out of the default JSON so they only leave the service through results.
type Game struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatorID        string         `gorm:"type:varchar(36);index;not null" json:"creatorId"`
	Statements       datatypes.JSON `gorm:"not null" json:"statements"`
	LieStatement     int            `gorm:"not null" json:"-"`
	Explanation      *string        `json:"-"`
	IsActive         bool           `gorm:"not null" json:"isActive"`
	AllowFriendsOnly bool           `gorm:"not null" json:"allowFriendsOnly"`
	ExpiresAt        time.Time      `gorm:"index;not null" json:"expiresAt"`
	CreatedAt        time.Time      `gorm:"index" json:"createdAt"`
}

func (g *Game) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		g.ID = id.String()
	}
	return nil
}

// StatementList decodes the stored statements.
func (g *Game) StatementList() ([]string, error) {
	var out []string
	if err := json.Unmarshal(g.Statements, &out); err != nil {
		return nil, fmt.Errorf("decode statements of game %s: %w", g.ID, err)
	}
	return out, nil
}

// Status is the lifecycle state of a game at a point in time.
type Status string

const (
	StatusActive      Status = "active"
	StatusExpired     Status = "expired"
	StatusDeactivated Status = "deactivated"
)

// StatusAt derives the state at now. Expiry is never stored.
func (g *Game) StatusAt(now time.Time) Status {
	switch {
	case !g.IsActive:
		return StatusDeactivated
	case !now.Before(g.ExpiresAt):
		return StatusExpired
	default:
		return StatusActive
	}
}

// ActiveAt reports isActive && now < expiresAt.
func (g *Game) ActiveAt(now time.Time) bool {
	return g.StatusAt(now) == StatusActive
}

// Ballot is a read-only view of a row in the votes table.
type Ballot struct {
	ID                string    `json:"id"`
	GameID            string    `json:"gameId"`
	VoterID           string    `json:"voterId"`
	SelectedStatement int       `json:"selectedStatement"`
	IsCorrect         bool      `json:"isCorrect"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (Ballot) TableName() string {
	return "votes"
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Game{})
}
