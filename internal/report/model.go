package report

import (
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/game"
)

// RecentGamesShown is how many of the user's own games a report lists.
const RecentGamesShown = 5

// UserStats is the profile card of one player.
type UserStats struct {
	UserID      string    `json:"userId"`
	Handle      string    `json:"handle"`
	GeneratedAt time.Time `json:"generatedAt"`

	Points         int64 `json:"points"`
	GamesCreated   int   `json:"gamesCreated"`
	GamesPlayed    int   `json:"gamesPlayed"`
	CorrectGuesses int   `json:"correctGuesses"`
	PlayersStumped int   `json:"stumpedPlayers"`
	Streak         int   `json:"streak"`

	// Accuracy is the share of correct guesses in percent, present once the
	// user has played.
	Accuracy *int `json:"accuracy,omitempty"`

	// Rank is the weekly rank, 0 when outside the ranked window.
	Rank        int `json:"rank"`
	AllTimeRank int `json:"allTimeRank"`

	RecentGames []game.GameWithCreator `json:"recentGames"`
}
