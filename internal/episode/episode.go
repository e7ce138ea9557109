// Package episode implements the Episode domain object (spec.md's C7),
// following the same lazy-refresh shape as internal/anime. Grounded on
// adbb/animeobjs.py's Episode class.
package episode

import (
	"context"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/store"
)

// ClassBias is 0 per spec.md §4.7 step 4: episode rows carry no
// class-specific bias; the weekly escalation schedule alone governs
// staleness once a row is old enough.
const ClassBias = 0

// Fetcher retrieves a fresh episode row from the live API.
type Fetcher interface {
	FetchEpisode(ctx context.Context, eid int) (store.EpisodeRow, error)
}

// Episode is a cache-backed, lazily-refreshed view of one AniDB episode.
type Episode struct {
	mu sync.Mutex

	s       *store.Store
	fetcher Fetcher
	eid     int

	row  store.EpisodeRow
	have bool

	inFlight chan struct{}
}

// New returns an Episode handle for eid.
func New(s *store.Store, fetcher Fetcher, eid int) *Episode {
	return &Episode{s: s, fetcher: fetcher, eid: eid}
}

// EID returns the episode ID this handle was constructed for.
func (e *Episode) EID() int { return e.eid }

// Row returns the current cached row, refreshing per the same policy as
// anime.Anime.Row.
func (e *Episode) Row(ctx context.Context) (store.EpisodeRow, error) {
	if err := e.ensure(ctx); err != nil {
		return store.EpisodeRow{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.row, nil
}

func (e *Episode) ensure(ctx context.Context) error {
	e.mu.Lock()
	if e.inFlight != nil {
		ch := e.inFlight
		e.mu.Unlock()
		select {
		case <-ch:
			return e.ensure(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !e.have {
		row, ok, err := e.s.GetEpisode(e.eid)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		if ok {
			e.row, e.have = row, true
		}
	}

	if e.have {
		refresh, newRoll := store.ShouldRefresh(time.Now(), e.row.UpdatedAt, e.row.LastRefreshRoll, ClassBias)
		e.row.LastRefreshRoll = newRoll
		if !refresh {
			e.mu.Unlock()
			return nil
		}
	}

	ch := make(chan struct{})
	e.inFlight = ch
	e.mu.Unlock()

	row, err := e.fetcher.FetchEpisode(ctx, e.eid)

	e.mu.Lock()
	defer func() {
		close(ch)
		e.inFlight = nil
		e.mu.Unlock()
	}()

	if err != nil {
		if e.have {
			return nil
		}
		return err
	}

	row.UpdatedAt = time.Now()
	row.LastRefreshRoll = e.row.LastRefreshRoll
	e.row, e.have = row, true
	return e.s.UpsertEpisode(e.row)
}
