package game

import (
	"fmt"
	"math"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/user"
)

// GameWithCreator is what listings and single-game reads return.
type GameWithCreator struct {
	Game
	Creator       *user.User `json:"creator,omitempty"`
	Status        Status     `json:"status"`
	VoteCount     int64      `json:"voteCount"`
	HasVoted      bool       `json:"hasVoted"`
	UserVote      *Ballot    `json:"userVote,omitempty"`
	TimeRemaining string     `json:"timeRemaining"`
}

// ResultsVisible reports whether the viewer this view was built for may see
// the vote breakdown: the game is over, or the viewer already voted.
func (v *GameWithCreator) ResultsVisible() bool {
	return v.Status != StatusActive || v.HasVoted
}

// GameWithResults adds the answer and the vote breakdown.
type GameWithResults struct {
	GameWithCreator
	LieStatement      int           `json:"lieStatement"`
	Explanation       *string       `json:"explanation,omitempty"`
	Votes             []Ballot      `json:"votes"`
	VoteCounts        map[int]int64 `json:"voteCounts"`
	Percentages       map[int]int   `json:"percentages"`
	CorrectPercentage int           `json:"correctPercentage"`
}

func percent(part, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

func newResults(base GameWithCreator, votes []Ballot) *GameWithResults {
	r := &GameWithResults{
		GameWithCreator: base,
		LieStatement:    base.LieStatement,
		Explanation:     base.Explanation,
		Votes:           votes,
		VoteCounts:      make(map[int]int64, StatementCount),
		Percentages:     make(map[int]int, StatementCount),
	}
	var correct int64
	for i := 1; i <= StatementCount; i++ {
		r.VoteCounts[i] = 0
	}
	for _, v := range votes {
		r.VoteCounts[v.SelectedStatement]++
		if v.IsCorrect {
			correct++
		}
	}
	total := int64(len(votes))
	for i := 1; i <= StatementCount; i++ {
		r.Percentages[i] = percent(r.VoteCounts[i], total)
	}
	r.CorrectPercentage = percent(correct, total)
	r.VoteCount = total
	return r
}

// TimeRemaining renders the time left to vote as "Xh Ym left", "Ym left" or
// "Expired".
func TimeRemaining(status Status, expiresAt, now time.Time) string {
	left := expiresAt.Sub(now)
	if status != StatusActive || left <= 0 {
		return "Expired"
	}
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	}
	return fmt.Sprintf("%dm left", minutes)
}
