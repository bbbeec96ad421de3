package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/metadata"
)

type fetchCall struct {
	query metadata.Query
	page  int
}

// scriptedFetcher answers immediately from a function of the request.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	respond func(q metadata.Query, page int) (catalog.Page, error)
}

func (f *scriptedFetcher) FetchPage(_ context.Context, q metadata.Query, page int) (catalog.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{query: q, page: page})
	respond := f.respond
	f.mu.Unlock()
	return respond(q, page)
}

func (f *scriptedFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

type reply struct {
	page catalog.Page
	err  error
}

type pendingFetch struct {
	query metadata.Query
	page  int
	reply chan reply
}

func (p pendingFetch) answer(page catalog.Page, err error) {
	p.reply <- reply{page: page, err: err}
}

// gatedFetcher parks every request until the test answers it, so tests
// control the order in which responses arrive.
type gatedFetcher struct {
	requests chan pendingFetch
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{requests: make(chan pendingFetch, 8)}
}

func (g *gatedFetcher) FetchPage(ctx context.Context, q metadata.Query, page int) (catalog.Page, error) {
	p := pendingFetch{query: q, page: page, reply: make(chan reply, 1)}
	g.requests <- p
	select {
	case r := <-p.reply:
		return r.page, r.err
	case <-ctx.Done():
		return catalog.Page{}, ctx.Err()
	}
}

func (g *gatedFetcher) next(t *testing.T) pendingFetch {
	t.Helper()
	select {
	case p := <-g.requests:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fetch request")
		return pendingFetch{}
	}
}

func settle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

// moviesPage builds a page of movies with ids from..to inclusive.
func moviesPage(from, to, totalPages int) catalog.Page {
	p := catalog.Page{TotalPages: totalPages}
	for id := from; id <= to; id++ {
		p.Items = append(p.Items, catalog.Item{
			ID:          id,
			MediaType:   catalog.Movie,
			Title:       fmt.Sprintf("Movie %d", id),
			Date:        "2001-05-04",
			VoteAverage: 7.5,
		})
	}
	return p
}
