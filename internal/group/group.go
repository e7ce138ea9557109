// Package group implements the Group domain object (spec.md's C7).
// Grounded on adbb/animeobjs.py's Group class; like Episode and File it
// uses a class bias of 0, below the Anime bias.
package group

import (
	"context"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/store"
)

// ClassBias is 0 per spec.md §4.7 step 4: group rows carry no
// class-specific bias; the weekly escalation schedule alone governs
// staleness once a row is old enough.
const ClassBias = 0

// Fetcher retrieves a fresh group row from the live API.
type Fetcher interface {
	FetchGroup(ctx context.Context, gid int) (store.GroupRow, error)
}

// Group is a cache-backed, lazily-refreshed view of one AniDB group.
type Group struct {
	mu sync.Mutex

	s       *store.Store
	fetcher Fetcher
	gid     int

	row  store.GroupRow
	have bool

	inFlight chan struct{}
}

// New returns a Group handle for gid.
func New(s *store.Store, fetcher Fetcher, gid int) *Group {
	return &Group{s: s, fetcher: fetcher, gid: gid}
}

// GID returns the group ID this handle was constructed for.
func (g *Group) GID() int { return g.gid }

// Row returns the current cached row, refreshing per the shared policy.
func (g *Group) Row(ctx context.Context) (store.GroupRow, error) {
	if err := g.ensure(ctx); err != nil {
		return store.GroupRow{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.row, nil
}

func (g *Group) ensure(ctx context.Context) error {
	g.mu.Lock()
	if g.inFlight != nil {
		ch := g.inFlight
		g.mu.Unlock()
		select {
		case <-ch:
			return g.ensure(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !g.have {
		row, ok, err := g.s.GetGroup(g.gid)
		if err != nil {
			g.mu.Unlock()
			return err
		}
		if ok {
			g.row, g.have = row, true
		}
	}

	if g.have {
		refresh, newRoll := store.ShouldRefresh(time.Now(), g.row.UpdatedAt, g.row.LastRefreshRoll, ClassBias)
		g.row.LastRefreshRoll = newRoll
		if !refresh {
			g.mu.Unlock()
			return nil
		}
	}

	ch := make(chan struct{})
	g.inFlight = ch
	g.mu.Unlock()

	row, err := g.fetcher.FetchGroup(ctx, g.gid)

	g.mu.Lock()
	defer func() {
		close(ch)
		g.inFlight = nil
		g.mu.Unlock()
	}()

	if err != nil {
		if g.have {
			return nil
		}
		return err
	}

	row.UpdatedAt = time.Now()
	row.LastRefreshRoll = g.row.LastRefreshRoll
	g.row, g.have = row, true
	return g.s.UpsertGroup(g.row)
}
