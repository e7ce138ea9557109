// Package anime implements the Anime domain object (spec.md's C7):
// lazy attribute resolution backed by the cache store, with a single
// in-flight refresh shared by concurrent callers and a probabilistic
// staleness-driven refresh policy. Grounded on adbb/animeobjs.py's
// AniDBObj base class (_fetch_anidb_data, _get_db_data) and its related
// getter, plus adbb/utils.py's get_related_anime traversal.
package anime

import (
	"context"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/store"
)


// Fetcher retrieves a fresh anime row and its relation graph from the
// live API. Implemented by internal/client against the wire/dispatch
// stack; kept as an interface so this package has no network
// dependency of its own.
type Fetcher interface {
	FetchAnime(ctx context.Context, aid int) (store.AnimeRow, map[int]string, error)
}

// Anime is a cache-backed, lazily-refreshed view of one AniDB anime
// entry.
type Anime struct {
	mu sync.Mutex

	s       *store.Store
	fetcher Fetcher
	aid     int

	row       store.AnimeRow
	relations map[int]string
	have      bool

	inFlight chan struct{}
}

// New returns an Anime handle for aid. No network or database access
// happens until a field is requested.
func New(s *store.Store, fetcher Fetcher, aid int) *Anime {
	return &Anime{s: s, fetcher: fetcher, aid: aid}
}

// AID returns the anime ID this handle was constructed for.
func (a *Anime) AID() int { return a.aid }

// Row returns the current cached row, refreshing first if the cache is
// empty, or rolling the staleness dice if it's present (spec.md §4.7).
// A refresh failure when a cached row already exists is swallowed and
// the stale row is returned, matching adbb's "serve what we have"
// behavior when the network is unavailable.
func (a *Anime) Row(ctx context.Context) (store.AnimeRow, error) {
	if err := a.ensure(ctx); err != nil {
		return store.AnimeRow{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.row, nil
}

// Relations returns the cached relation graph (related aid -> relation
// type), refreshing under the same policy as Row.
func (a *Anime) Relations(ctx context.Context) (map[int]string, error) {
	if err := a.ensure(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]string, len(a.relations))
	for k, v := range a.relations {
		out[k] = v
	}
	return out, nil
}

// ensure loads the row from cache if needed, awaits any in-flight
// refresh another goroutine already started, and otherwise decides
// whether to fetch fresh data.
func (a *Anime) ensure(ctx context.Context) error {
	a.mu.Lock()
	if a.inFlight != nil {
		ch := a.inFlight
		a.mu.Unlock()
		select {
		case <-ch:
			return a.ensure(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !a.have {
		row, ok, err := a.s.GetAnime(a.aid)
		if err != nil {
			a.mu.Unlock()
			return err
		}
		if ok {
			rels, err := a.s.AnimeRelations(a.aid)
			if err != nil {
				a.mu.Unlock()
				return err
			}
			a.row, a.relations, a.have = row, rels, true
		}
	}

	if a.have {
		now := time.Now()
		bias := store.AnimeClassBias(now, a.row.RegistryUpdated)
		refresh, newRoll := store.ShouldRefresh(now, a.row.UpdatedAt, a.row.LastRefreshRoll, bias)
		a.row.LastRefreshRoll = newRoll
		if !refresh {
			row := a.row
			a.mu.Unlock()
			// Persist the roll even without a live refresh, so the
			// ~1/week dice (spec.md §4.7) stays durable across restarts
			// instead of re-rolling from a zero LastRefreshRoll every
			// process start.
			return a.s.UpsertAnime(row)
		}
	}

	ch := make(chan struct{})
	a.inFlight = ch
	a.mu.Unlock()

	row, rels, err := a.fetcher.FetchAnime(ctx, a.aid)

	a.mu.Lock()
	defer func() {
		close(ch)
		a.inFlight = nil
		a.mu.Unlock()
	}()

	if err != nil {
		if a.have {
			return nil
		}
		return err
	}

	row.UpdatedAt = time.Now()
	row.LastRefreshRoll = a.row.LastRefreshRoll
	a.row, a.relations, a.have = row, rels, true

	if err := a.s.UpsertAnime(a.row); err != nil {
		return err
	}
	for relAID, relType := range rels {
		if err := a.s.UpsertAnimeRelation(a.aid, relAID, relType); err != nil {
			return err
		}
	}
	return nil
}

// InMylist is the derived query of spec.md §4.7.1: true iff any cached
// file row for this anime (generic or concrete) carries a non-zero
// mylist ID.
func (a *Anime) InMylist() (bool, error) {
	files, err := a.s.FilesByAID(a.aid)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f.MylistID != 0 {
			return true, nil
		}
	}
	return false, nil
}
