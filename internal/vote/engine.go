package vote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// CorrectGuessPoints go to a voter who finds the lie.
	CorrectGuessPoints = 1
	// StumpPoints go to the creator for every voter who misses it.
	StumpPoints = 2
)

var (
	ErrDuplicateVote = apperr.New(apperr.KindConflict, "you have already voted on this game")
	ErrGameClosed    = apperr.New(apperr.KindValidation, "game is no longer accepting votes")
	ErrSelfVote      = apperr.New(apperr.KindValidation, "creators cannot vote on their own game")
	ErrFriendsOnly   = apperr.New(apperr.KindValidation, "this game is only open to the creator's friends")
)

// ScoreListener is told after a vote commits that points may have moved.
type ScoreListener interface {
	ScoresChanged(ctx context.Context)
}

// Engine records votes and applies their scoring.
type Engine struct {
	db         *gorm.DB
	ledger     *user.Ledger
	activities *activity.Log
	listeners  []ScoreListener
	locks      keyLock
	Now        func() time.Time
}

func NewEngine(db *gorm.DB, ledger *user.Ledger, activities *activity.Log, listeners ...ScoreListener) *Engine {
	return &Engine{
		db:         db,
		ledger:     ledger,
		activities: activities,
		listeners:  listeners,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// CastVote records voterID's guess on gameID. The vote, the voter's stats,
// the creator's stump reward and the activity entries commit together; on
// any error nothing is written.
func (e *Engine) CastVote(ctx context.Context, gameID, voterID string, selected int) (*Vote, error) {
	if selected < 1 || selected > game.StatementCount {
		return nil, apperr.Validation("selectedStatement must be between 1 and %d", game.StatementCount)
	}
	if voterID == "" {
		return nil, apperr.Validation("voter is required")
	}

	// The unique index is the final word; the lock keeps same-pair retries
	// from racing to it inside this process.
	unlock := e.locks.Lock(gameID + "/" + voterID)
	defer unlock()

	var v *Vote
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = e.castInTx(ctx, tx, gameID, voterID, selected)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, l := range e.listeners {
		l.ScoresChanged(ctx)
	}
	return v, nil
}

func (e *Engine) castInTx(ctx context.Context, tx *gorm.DB, gameID, voterID string, selected int) (*Vote, error) {
	now := e.Now()

	var g game.Game
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Where("id = ?", gameID).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load game")
	}
	if g.CreatorID == voterID {
		return nil, ErrSelfVote
	}
	if !g.ActiveAt(now) {
		return nil, ErrGameClosed
	}
	if g.AllowFriendsOnly {
		ok, err := e.ledger.WithTx(tx).IsFriend(ctx, voterID, g.CreatorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrFriendsOnly
		}
	}

	var existing int64
	if err := tx.Model(&Vote{}).Where("game_id = ? AND voter_id = ?", gameID, voterID).Count(&existing).Error; err != nil {
		return nil, apperr.Storage(err, "check existing vote")
	}
	if existing > 0 {
		return nil, ErrDuplicateVote
	}

	v := &Vote{
		GameID:            gameID,
		VoterID:           voterID,
		SelectedStatement: selected,
		IsCorrect:         selected == g.LieStatement,
		CreatedAt:         now,
	}
	if err := tx.Create(v).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateVote
		}
		return nil, apperr.Storage(err, "insert vote")
	}

	ledger := e.ledger.WithTx(tx)
	mutations := []user.Mutation{user.IncrementGamesPlayed()}
	if v.IsCorrect {
		mutations = append(mutations,
			user.IncrementCorrectGuesses(),
			user.ExtendStreak(),
			user.AwardPoints(CorrectGuessPoints, user.ReasonCorrectGuess))
	} else {
		mutations = append(mutations, user.ResetStreak())
	}
	if err := ledger.UpdateUserStats(ctx, voterID, mutations...); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperr.Wrap(apperr.KindValidation, err, "voter does not exist")
		}
		return nil, err
	}

	log := e.activities.WithTx(tx)
	meta := map[string]any{"gameId": gameID}
	if v.IsCorrect {
		_, err = log.Append(ctx, voterID, activity.TypeCorrectGuess, "Spotted the lie", meta)
		return v, err
	}

	if err := ledger.UpdateUserStats(ctx, g.CreatorID,
		user.AwardPoints(StumpPoints, user.ReasonStump),
		user.IncrementPlayersStumped()); err != nil {
		return nil, fmt.Errorf("reward creator %s: %w", g.CreatorID, err)
	}
	meta["voterId"] = voterID
	_, err = log.Append(ctx, g.CreatorID, activity.TypeStumpedPlayer, "Stumped a player", meta)
	return v, err
}
