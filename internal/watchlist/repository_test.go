package watchlist

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/testutil"
)

func createUser(t *testing.T, tdb *testutil.TestDB, name string) int64 {
	t.Helper()
	var id int64
	err := tdb.DB.Conn().QueryRowContext(context.Background(),
		`INSERT INTO users (username, password_hash) VALUES (?, 'x') RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestSQLRepository_AddIsIdempotent(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewSQLRepository(tdb.DB)
	ctx := context.Background()
	user := createUser(t, tdb, "alice")

	entry := Entry{UserID: user, ItemID: 603, ItemType: catalog.Movie, ItemData: json.RawMessage(`{"title":"The Matrix"}`)}

	added, err := repo.Add(ctx, entry)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, entry)
	require.NoError(t, err)
	assert.False(t, added)

	entries, err := repo.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "The Matrix", entries[0].Item().Title)
	assert.Equal(t, "movie:603", entries[0].Key())
}

func TestSQLRepository_SameIDDifferentType(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewSQLRepository(tdb.DB)
	ctx := context.Background()
	user := createUser(t, tdb, "bob")

	_, err := repo.Add(ctx, Entry{UserID: user, ItemID: 1, ItemType: catalog.Movie})
	require.NoError(t, err)
	added, err := repo.Add(ctx, Entry{UserID: user, ItemID: 1, ItemType: catalog.Series})
	require.NoError(t, err)
	assert.True(t, added)

	entries, err := repo.List(ctx, user)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSQLRepository_ContainsAndRemove(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewSQLRepository(tdb.DB)
	ctx := context.Background()
	user := createUser(t, tdb, "carol")

	_, err := repo.Add(ctx, Entry{UserID: user, ItemID: 1399, ItemType: catalog.Series})
	require.NoError(t, err)

	ok, err := repo.Exists(ctx, user, 1399, catalog.Series)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := repo.Remove(ctx, user, 1399, catalog.Series)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = repo.Exists(ctx, user, 1399, catalog.Series)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err = repo.Remove(ctx, user, 1399, catalog.Series)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLRepository_ListNewestFirstPerUser(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := NewSQLRepository(tdb.DB)
	ctx := context.Background()
	alice := createUser(t, tdb, "alice")
	bob := createUser(t, tdb, "bob")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []int{10, 20, 30} {
		_, err := repo.Add(ctx, Entry{UserID: alice, ItemID: id, ItemType: catalog.Movie, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	_, err := repo.Add(ctx, Entry{UserID: bob, ItemID: 99, ItemType: catalog.Movie})
	require.NoError(t, err)

	entries, err := repo.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{30, 20, 10}, []int{entries[0].ItemID, entries[1].ItemID, entries[2].ItemID})

	empty, err := repo.List(ctx, 12345)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
