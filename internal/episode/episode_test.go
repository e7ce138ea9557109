package episode

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/snapetech/anidbclient/internal/store"
)

type fakeFetcher struct {
	calls atomic.Int32
	row   store.EpisodeRow
	err   error
}

func (f *fakeFetcher) FetchEpisode(ctx context.Context, eid int) (store.EpisodeRow, error) {
	f.calls.Add(1)
	if f.err != nil {
		return store.EpisodeRow{}, f.err
	}
	row := f.row
	row.EID = eid
	return row, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRowFetchesOnceThenCaches(t *testing.T) {
	s := openTestStore(t)
	f := &fakeFetcher{row: store.EpisodeRow{RomajiName: "Example"}}
	e := New(s, f, 1)

	row, err := e.Row(context.Background())
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.RomajiName != "Example" {
		t.Fatalf("RomajiName = %q", row.RomajiName)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("fetch called %d times, want 1", f.calls.Load())
	}

	if _, err := e.Row(context.Background()); err != nil {
		t.Fatalf("Row (2nd): %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("fetch called %d times after 2nd Row, want 1", f.calls.Load())
	}
}

func TestRowSurvivesFetchErrorWhenCached(t *testing.T) {
	s := openTestStore(t)
	f := &fakeFetcher{row: store.EpisodeRow{RomajiName: "Cached"}}
	e := New(s, f, 1)
	if _, err := e.Row(context.Background()); err != nil {
		t.Fatalf("initial Row: %v", err)
	}

	f2 := &fakeFetcher{err: context.DeadlineExceeded}
	e2 := New(s, f2, 1)
	row, err := e2.Row(context.Background())
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.RomajiName != "Cached" {
		t.Fatalf("RomajiName = %q, want Cached", row.RomajiName)
	}
}

func TestRowPropagatesErrorWhenUncached(t *testing.T) {
	s := openTestStore(t)
	f := &fakeFetcher{err: context.DeadlineExceeded}
	e := New(s, f, 99)

	if _, err := e.Row(context.Background()); err == nil {
		t.Fatal("Row: want error for uncached episode with failing fetcher")
	}
}

func TestEIDReturnsConstructedID(t *testing.T) {
	s := openTestStore(t)
	e := New(s, &fakeFetcher{}, 42)
	if got := e.EID(); got != 42 {
		t.Fatalf("EID() = %d, want 42", got)
	}
}
