package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentIsNewestFirstWithProfiles(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, user.Migrate(db))
	require.NoError(t, Migrate(db))

	ctx := context.Background()
	ledger := user.NewLedger(db)
	alice, err := ledger.CreateUser(ctx, user.Profile{ExternalHandle: "alice", ExternalID: "1"})
	require.NoError(t, err)
	bob, err := ledger.CreateUser(ctx, user.Profile{ExternalHandle: "bob", ExternalID: "2"})
	require.NoError(t, err)

	log := NewLog(db, ledger)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	log.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err = log.Append(ctx, alice.ID, TypeGameCreated, "Created a new truth or lie game", map[string]any{"gameId": "g1"})
	require.NoError(t, err)
	_, err = log.Append(ctx, bob.ID, TypeCorrectGuess, "Spotted the lie", nil)
	require.NoError(t, err)
	_, err = log.Append(ctx, "deleted-user", TypeCorrectGuess, "orphan", nil)
	require.NoError(t, err)

	items, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "bob", items[0].User.ExternalHandle)
	assert.Equal(t, TypeGameCreated, items[1].Type)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(items[1].Metadata, &meta))
	assert.Equal(t, "g1", meta["gameId"])

	own, err := log.ForUser(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, alice.ID, own[0].UserID)
}
