package group

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/snapetech/anidbclient/internal/store"
)

type fakeFetcher struct {
	calls atomic.Int32
	row   store.GroupRow
	err   error
}

func (f *fakeFetcher) FetchGroup(ctx context.Context, gid int) (store.GroupRow, error) {
	f.calls.Add(1)
	if f.err != nil {
		return store.GroupRow{}, f.err
	}
	row := f.row
	row.GID = gid
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
	f := &fakeFetcher{row: store.GroupRow{Name: "Example Group"}}
	g := New(s, f, 1)

	row, err := g.Row(context.Background())
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.Name != "Example Group" {
		t.Fatalf("Name = %q", row.Name)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("fetch called %d times, want 1", f.calls.Load())
	}

	if _, err := g.Row(context.Background()); err != nil {
		t.Fatalf("Row (2nd): %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("fetch called %d times after 2nd Row, want 1", f.calls.Load())
	}
}

func TestRowSurvivesFetchErrorWhenCached(t *testing.T) {
	s := openTestStore(t)
	f := &fakeFetcher{row: store.GroupRow{Name: "Cached Group"}}
	g := New(s, f, 1)
	if _, err := g.Row(context.Background()); err != nil {
		t.Fatalf("initial Row: %v", err)
	}

	f2 := &fakeFetcher{err: context.DeadlineExceeded}
	g2 := New(s, f2, 1)
	row, err := g2.Row(context.Background())
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if row.Name != "Cached Group" {
		t.Fatalf("Name = %q, want Cached Group", row.Name)
	}
}

func TestRowPropagatesErrorWhenUncached(t *testing.T) {
	s := openTestStore(t)
	f := &fakeFetcher{err: context.DeadlineExceeded}
	g := New(s, f, 99)

	if _, err := g.Row(context.Background()); err == nil {
		t.Fatal("Row: want error for uncached group with failing fetcher")
	}
}

func TestGIDReturnsConstructedID(t *testing.T) {
	s := openTestStore(t)
	g := New(s, &fakeFetcher{}, 42)
	if got := g.GID(); got != 42 {
		t.Fatalf("GID() = %d, want 42", got)
	}
}
