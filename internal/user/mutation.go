package user

import (
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"gorm.io/gorm"
)

// Point award reasons stored on PointEntry.
const (
	ReasonCorrectGuess = "correct_guess"
	ReasonStump        = "stumped_player"
	ReasonAdjustment   = "adjustment"
)

type streakOp int

const (
	streakKeep streakOp = iota
	streakExtend
	streakReset
	streakSet
)

// statDelta accumulates mutations so they land in one UPDATE statement.
type statDelta struct {
	points         int64
	reason         string
	gamesCreated   int
	gamesPlayed    int
	correctGuesses int
	playersStumped int
	streak         streakOp
	streakValue    int
}

// Mutation is one named change to a user's counters.
type Mutation func(*statDelta)

// AwardPoints adds delta points and records a PointEntry with reason.
func AwardPoints(delta int64, reason string) Mutation {
	return func(d *statDelta) {
		d.points += delta
		d.reason = reason
	}
}

func IncrementGamesCreated() Mutation {
	return func(d *statDelta) { d.gamesCreated++ }
}

func IncrementGamesPlayed() Mutation {
	return func(d *statDelta) { d.gamesPlayed++ }
}

func IncrementCorrectGuesses() Mutation {
	return func(d *statDelta) { d.correctGuesses++ }
}

func IncrementPlayersStumped() Mutation {
	return func(d *statDelta) { d.playersStumped++ }
}

// ExtendStreak adds one to the current streak.
func ExtendStreak() Mutation {
	return func(d *statDelta) { d.streak = streakExtend }
}

func ResetStreak() Mutation {
	return func(d *statDelta) { d.streak = streakReset }
}

func SetStreak(n int) Mutation {
	return func(d *statDelta) {
		d.streak = streakSet
		d.streakValue = n
	}
}

func (d *statDelta) validate() error {
	if d.points < 0 {
		return apperr.Validation("points can only increase, got delta %d", d.points)
	}
	if d.streak == streakSet && d.streakValue < 0 {
		return apperr.Validation("streak cannot be negative, got %d", d.streakValue)
	}
	return nil
}

// columns renders the delta as column expressions evaluated by the database,
// so concurrent writers never overwrite each other's increments.
func (d *statDelta) columns() map[string]any {
	cols := make(map[string]any)
	add := func(column string, n int64) {
		if n != 0 {
			cols[column] = gorm.Expr(column+" + ?", n)
		}
	}
	add("points", d.points)
	add("total_games_created", int64(d.gamesCreated))
	add("total_games_played", int64(d.gamesPlayed))
	add("total_correct_guesses", int64(d.correctGuesses))
	add("total_players_stumped", int64(d.playersStumped))

	switch d.streak {
	case streakExtend:
		cols["current_streak"] = gorm.Expr("current_streak + 1")
	case streakReset:
		cols["current_streak"] = 0
	case streakSet:
		cols["current_streak"] = d.streakValue
	}
	return cols
}
