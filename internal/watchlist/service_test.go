package watchlist_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/testutil"
	"github.com/reelscout/reelscout/internal/watchlist"
	"github.com/reelscout/reelscout/internal/watchlist/mocks"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishToUser(_ int64, msgType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msgType)
}

func newMockService(t *testing.T) (*watchlist.Service, *mocks.MockRepository, *recordingPublisher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	pub := &recordingPublisher{}
	svc := watchlist.NewService(repo, testutil.NopLogger())
	svc.SetPublisher(pub)
	return svc, repo, pub
}

func TestService_AddPublishesOnlyWhenCreated(t *testing.T) {
	svc, repo, pub := newMockService(t)
	ctx := context.Background()

	gomock.InOrder(
		repo.EXPECT().Add(ctx, gomock.Any()).Return(true, nil),
		repo.EXPECT().Add(ctx, gomock.Any()).Return(false, nil),
	)

	added, err := svc.Add(ctx, 1, 603, catalog.Movie, []byte(`{"title":"The Matrix"}`))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.Add(ctx, 1, 603, catalog.Movie, nil)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []string{watchlist.EventAdded}, pub.events)
}

func TestService_AddReplacesInvalidSnapshot(t *testing.T) {
	svc, repo, _ := newMockService(t)

	repo.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e watchlist.Entry) (bool, error) {
		assert.JSONEq(t, `{}`, string(e.ItemData))
		assert.Equal(t, int64(9), e.UserID)
		return true, nil
	})

	_, err := svc.Add(context.Background(), 9, 1, catalog.Series, []byte(`{not json`))
	require.NoError(t, err)
}

func TestService_ValidatesBeforeTouchingStorage(t *testing.T) {
	svc, _, _ := newMockService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 0, catalog.Movie, nil)
	var ierr *watchlist.InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "itemId", ierr.Field)

	err = svc.Remove(ctx, 1, 5, catalog.MediaType("series"))
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "itemType", ierr.Field)

	_, err = svc.IsWatchlisted(ctx, 1, -3, catalog.Movie)
	require.ErrorAs(t, err, &ierr)
}

func TestService_RemoveMissingIsNotFound(t *testing.T) {
	svc, repo, pub := newMockService(t)

	repo.EXPECT().Remove(gomock.Any(), int64(1), 42, catalog.Movie).Return(false, nil)

	err := svc.Remove(context.Background(), 1, 42, catalog.Movie)
	assert.ErrorIs(t, err, watchlist.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestService_PersistenceErrorsPropagate(t *testing.T) {
	svc, repo, _ := newMockService(t)
	boom := errors.New("disk full")

	repo.EXPECT().Add(gomock.Any(), gomock.Any()).Return(false, boom)
	repo.EXPECT().List(gomock.Any(), int64(3)).Return(nil, boom)

	_, err := svc.Add(context.Background(), 3, 1, catalog.Movie, nil)
	assert.ErrorIs(t, err, boom)

	_, err = svc.StoreFor(context.Background(), 3)
	assert.ErrorIs(t, err, boom)
}

func TestService_StoreForAndPersister(t *testing.T) {
	svc, repo, pub := newMockService(t)
	ctx := context.Background()

	repo.EXPECT().List(ctx, int64(1)).Return([]watchlist.Entry{
		{ItemID: 10, ItemType: catalog.Movie},
	}, nil)
	repo.EXPECT().Remove(ctx, int64(1), 10, catalog.Movie).Return(true, nil)
	repo.EXPECT().Add(ctx, gomock.Any()).Return(true, nil)

	store, err := svc.StoreFor(ctx, 1)
	require.NoError(t, err)
	require.True(t, store.Has(catalog.Movie, 10))

	now, err := store.Toggle(ctx, testutil.Movie(10, "Ten"), svc.Persister(1))
	require.NoError(t, err)
	assert.False(t, now)

	now, err = store.Toggle(ctx, testutil.Series(11, "Eleven"), svc.Persister(1))
	require.NoError(t, err)
	assert.True(t, now)

	assert.Equal(t, []string{watchlist.EventRemoved, watchlist.EventAdded}, pub.events)
}
