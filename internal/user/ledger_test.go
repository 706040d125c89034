package user

import (
	"context"
	"sync"
	"testing"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewLedger(db)
}

func mustCreate(t *testing.T, l *Ledger, handle string) *User {
	t.Helper()
	u, err := l.CreateUser(context.Background(), Profile{ExternalHandle: handle, ExternalID: "ext-" + handle})
	require.NoError(t, err)
	return u
}

func TestCreateUserZeroesCountersAndRejectsDuplicates(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	u := mustCreate(t, l, "alice")
	assert.NotEmpty(t, u.ID)
	assert.Zero(t, u.Points)
	assert.Zero(t, u.CurrentStreak)

	_, err := l.CreateUser(ctx, Profile{ExternalHandle: "alice2", ExternalID: "ext-alice"})
	assert.ErrorIs(t, err, ErrIdentityTaken)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = l.CreateUser(ctx, Profile{ExternalHandle: "  ", ExternalID: "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	found, err := l.GetUserByExternalID(ctx, "ext-alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	found, err = l.GetUserByExternalHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = l.GetUserByExternalID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginCreatesOnceThenReturnsExisting(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	p := Profile{ExternalHandle: "bob", ExternalID: "fid-7"}

	first, created, err := l.Login(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := l.Login(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdateUserPointsConcurrentNoLostUpdates(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	u := mustCreate(t, l, "carol")

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.UpdateUserPoints(ctx, u.ID, 1))
		}()
	}
	wg.Wait()

	got, err := l.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, writers, got.Points)

	var entries int64
	require.NoError(t, l.db.Model(&PointEntry{}).Where("user_id = ?", u.ID).Count(&entries).Error)
	assert.EqualValues(t, writers, entries)
}

func TestUpdateUserStatsMutations(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	u := mustCreate(t, l, "dave")

	require.NoError(t, l.UpdateUserStats(ctx, u.ID,
		IncrementGamesPlayed(), IncrementCorrectGuesses(), ExtendStreak(), AwardPoints(1, ReasonCorrectGuess)))
	require.NoError(t, l.UpdateUserStats(ctx, u.ID, IncrementGamesPlayed(), ExtendStreak()))

	got, err := l.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalGamesPlayed)
	assert.Equal(t, 1, got.TotalCorrectGuesses)
	assert.Equal(t, 2, got.CurrentStreak)
	assert.EqualValues(t, 1, got.Points)

	require.NoError(t, l.UpdateUserStats(ctx, u.ID, ResetStreak()))
	got, err = l.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentStreak)

	require.NoError(t, l.UpdateUserStats(ctx, u.ID, SetStreak(5), IncrementGamesCreated(), IncrementPlayersStumped()))
	got, err = l.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.CurrentStreak)
	assert.Equal(t, 1, got.TotalGamesCreated)
	assert.Equal(t, 1, got.TotalPlayersStumped)
}

func TestUpdateUserStatsFailures(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	u := mustCreate(t, l, "erin")

	err := l.UpdateUserPoints(ctx, "missing", 3)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = l.UpdateUserPoints(ctx, u.ID, -1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = l.UpdateUserStats(ctx, u.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = l.UpdateUserStats(ctx, u.ID, SetStreak(-2))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAddFriendIsSymmetricAndIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "fay")
	b := mustCreate(t, l, "gus")

	require.NoError(t, l.AddFriend(ctx, a.ID, b.ID))
	require.NoError(t, l.AddFriend(ctx, b.ID, a.ID))

	ids, err := l.FriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	ids, err = l.FriendIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(l.AddFriend(ctx, a.ID, a.ID)))
	assert.ErrorIs(t, l.AddFriend(ctx, a.ID, "ghost"), ErrUserNotFound)
}

type changeCounter struct {
	mu    sync.Mutex
	calls int
}

func (c *changeCounter) ScoresChanged(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func TestListenersHearCommittedWritesOnly(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	counter := &changeCounter{}
	l.OnChange(counter)

	u := mustCreate(t, l, "dave")
	assert.Equal(t, 1, counter.calls, "a new user joins the rankings")

	require.NoError(t, l.UpdateUserPoints(ctx, u.ID, 2))
	assert.Equal(t, 2, counter.calls)

	require.NoError(t, l.db.Transaction(func(tx *gorm.DB) error {
		return l.WithTx(tx).UpdateUserPoints(ctx, u.ID, 1)
	}))
	assert.Equal(t, 2, counter.calls, "transactional writes are announced by the transaction owner")

	assert.Error(t, l.UpdateUserPoints(ctx, "ghost", 1))
	assert.Equal(t, 2, counter.calls)
}

func TestIsFriend(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "erin")
	b := mustCreate(t, l, "frank")

	ok, err := l.IsFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.AddFriend(ctx, a.ID, b.ID))
	ok, err = l.IsFriend(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
