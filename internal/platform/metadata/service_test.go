package metadata

import (
	"context"
	"testing"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesUpsert(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, Migrate(db))
	ctx := context.Background()

	n, err := GetInt(ctx, db, LastSnapshotVotesKey)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, SetInt(ctx, db, LastSnapshotVotesKey, 4))
	require.NoError(t, SetInt(ctx, db, LastSnapshotVotesKey, 9))
	n, err = GetInt(ctx, db, LastSnapshotVotesKey)
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)

	var rows int64
	require.NoError(t, db.Model(&Metadata{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	require.NoError(t, SetValue(ctx, db, LastSnapshotFileKey, "not-a-number"))
	_, err = GetInt(ctx, db, LastSnapshotFileKey)
	assert.Error(t, err)
}
