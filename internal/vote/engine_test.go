package vote

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/activity"
	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingListener struct {
	calls atomic.Int32
}

func (l *countingListener) ScoresChanged(context.Context) {
	l.calls.Add(1)
}

type fixture struct {
	db       *gorm.DB
	ledger   *user.Ledger
	games    *game.Service
	engine   *Engine
	listener *countingListener
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, user.Migrate(db))
	require.NoError(t, activity.Migrate(db))
	require.NoError(t, game.Migrate(db))
	require.NoError(t, Migrate(db))

	f := &fixture{db: db, now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC), listener: &countingListener{}}
	f.ledger = user.NewLedger(db)
	log := activity.NewLog(db, f.ledger)
	f.games = game.NewService(db, f.ledger, log)
	f.engine = NewEngine(db, f.ledger, log, f.listener)
	clock := func() time.Time { return f.now }
	f.ledger.Now, log.Now, f.games.Now, f.engine.Now = clock, clock, clock, clock
	return f
}

func (f *fixture) user(t *testing.T, handle string) *user.User {
	t.Helper()
	u, err := f.ledger.CreateUser(context.Background(), user.Profile{ExternalHandle: handle, ExternalID: "ext-" + handle})
	require.NoError(t, err)
	return u
}

func (f *fixture) reload(t *testing.T, id string) *user.User {
	t.Helper()
	u, err := f.ledger.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) newGame(t *testing.T, creatorID string) *game.Game {
	t.Helper()
	g, err := f.games.CreateGame(context.Background(), creatorID, game.CreateInput{
		Statements:   []string{"A", "B", "C"},
		LieStatement: 2,
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) voteCount(t *testing.T, gameID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&Vote{}).Where("game_id = ?", gameID).Count(&n).Error)
	return n
}

func TestScenarioCorrectWrongDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	v1 := f.user(t, "v1")
	v2 := f.user(t, "v2")
	g := f.newGame(t, creator.ID)

	vote1, err := f.engine.CastVote(ctx, g.ID, v1.ID, 2)
	require.NoError(t, err)
	assert.True(t, vote1.IsCorrect)

	got := f.reload(t, v1.ID)
	assert.EqualValues(t, 1, got.Points)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.TotalGamesPlayed)
	assert.Equal(t, 1, got.TotalCorrectGuesses)

	c := f.reload(t, creator.ID)
	assert.Zero(t, c.Points)
	assert.Zero(t, c.TotalPlayersStumped)

	vote2, err := f.engine.CastVote(ctx, g.ID, v2.ID, 1)
	require.NoError(t, err)
	assert.False(t, vote2.IsCorrect)

	got = f.reload(t, v2.ID)
	assert.Zero(t, got.Points)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, 1, got.TotalGamesPlayed)

	c = f.reload(t, creator.ID)
	assert.EqualValues(t, 2, c.Points)
	assert.Equal(t, 1, c.TotalPlayersStumped)

	_, err = f.engine.CastVote(ctx, g.ID, v1.ID, 3)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	again := f.reload(t, v1.ID)
	assert.EqualValues(t, 1, again.Points)
	assert.Equal(t, 1, again.TotalGamesPlayed)
	assert.EqualValues(t, 2, f.voteCount(t, g.ID))
	assert.EqualValues(t, 2, f.listener.calls.Load())
}

func TestConcurrentVotesSamePairExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	voter := f.user(t, "voter")
	g := f.newGame(t, creator.ID)

	const attempts = 16
	var (
		wg         sync.WaitGroup
		successes  atomic.Int32
		duplicates atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CastVote(ctx, g.ID, voter.ID, 1)
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.KindOf(err) == apperr.KindConflict:
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, attempts-1, duplicates.Load())
	assert.EqualValues(t, 1, f.voteCount(t, g.ID))

	c := f.reload(t, creator.ID)
	assert.EqualValues(t, StumpPoints, c.Points)
	assert.Equal(t, 1, c.TotalPlayersStumped)
	assert.Equal(t, 1, f.reload(t, voter.ID).TotalGamesPlayed)
}

func TestConcurrentStumpsOnOneCreatorLoseNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	g := f.newGame(t, creator.ID)

	const voters = 12
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = f.user(t, "voter"+string(rune('a'+i))).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(voterID string) {
			defer wg.Done()
			_, err := f.engine.CastVote(ctx, g.ID, voterID, 3)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	c := f.reload(t, creator.ID)
	assert.EqualValues(t, voters*StumpPoints, c.Points)
	assert.Equal(t, voters, c.TotalPlayersStumped)
}

func TestStreakLawAcrossGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	voter := f.user(t, "voter")

	picks := []struct {
		selected int
		streak   int
	}{{2, 1}, {2, 2}, {1, 0}, {2, 1}}
	for _, p := range picks {
		g := f.newGame(t, creator.ID)
		_, err := f.engine.CastVote(ctx, g.ID, voter.ID, p.selected)
		require.NoError(t, err)
		assert.Equal(t, p.streak, f.reload(t, voter.ID).CurrentStreak)
	}
	u := f.reload(t, voter.ID)
	assert.EqualValues(t, 3, u.Points)
	assert.Equal(t, 4, u.TotalGamesPlayed)
	assert.Equal(t, 3, u.TotalCorrectGuesses)
}

func TestCastVoteRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	voter := f.user(t, "voter")
	g := f.newGame(t, creator.ID)

	for _, selected := range []int{0, 4, -1} {
		_, err := f.engine.CastVote(ctx, g.ID, voter.ID, selected)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	_, err := f.engine.CastVote(ctx, "missing", voter.ID, 1)
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	_, err = f.engine.CastVote(ctx, g.ID, "ghost", 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	_, err = f.engine.CastVote(ctx, g.ID, creator.ID, 1)
	assert.ErrorIs(t, err, ErrSelfVote)

	f.now = f.now.Add(game.Lifetime)
	_, err = f.engine.CastVote(ctx, g.ID, voter.ID, 1)
	assert.ErrorIs(t, err, ErrGameClosed)

	assert.Zero(t, f.voteCount(t, g.ID))
	assert.Zero(t, f.reload(t, creator.ID).Points)
	assert.Zero(t, f.listener.calls.Load())
}

func TestCorrectnessFixedAtCreation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	voter := f.user(t, "voter")
	g := f.newGame(t, creator.ID)

	v, err := f.engine.CastVote(ctx, g.ID, voter.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&game.Game{}).Where("id = ?", g.ID).Update("lie_statement", 3).Error)

	var stored Vote
	require.NoError(t, f.db.First(&stored, "id = ?", v.ID).Error)
	assert.True(t, stored.IsCorrect)
}

func TestFriendsOnlyGameAcceptsFriendsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator")
	voter := f.user(t, "voter")
	g, err := f.games.CreateGame(ctx, creator.ID, game.CreateInput{
		Statements:       []string{"A", "B", "C"},
		LieStatement:     2,
		AllowFriendsOnly: true,
	})
	require.NoError(t, err)

	_, err = f.engine.CastVote(ctx, g.ID, voter.ID, 2)
	assert.ErrorIs(t, err, ErrFriendsOnly)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, f.voteCount(t, g.ID))

	require.NoError(t, f.ledger.AddFriend(ctx, creator.ID, voter.ID))
	v, err := f.engine.CastVote(ctx, g.ID, voter.ID, 2)
	require.NoError(t, err)
	assert.True(t, v.IsCorrect)
	assert.EqualValues(t, 1, f.reload(t, voter.ID).Points)
}
