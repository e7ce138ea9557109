// Package file implements the File domain object (spec.md's C7), ED2K
// hashing, and filename-to-episode inference (spec.md's C8). Grounded
// on adbb/animeobjs.py's File class (file state bitflags, multiep
// handling) and adbb/fileinfo.py (ED2K chunking, episode-number regex
// tiers).
package file

import (
	"context"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/store"
)

// ClassBias is 0 per spec.md §4.7 step 4: file rows carry no
// class-specific bias of their own. Mylist state (viewed/storage) is
// updated directly by the mylist coordinator rather than through a
// staleness roll.
const ClassBias = 0

// State is the AniDB file state bitmask, grounded on adbb/mapper.py's
// file state bit layout.
type State uint8

const (
	StateCRCOK       State = 0x1
	StateCRCErr      State = 0x2
	StateV2          State = 0x4
	StateV3          State = 0x8
	StateV4          State = 0x10
	StateV5          State = 0x20
	StateUncensored  State = 0x40
	StateCensored    State = 0x80
)

// Has reports whether bit is set in s.
func (s State) Has(bit State) bool { return s&bit != 0 }

// Fetcher retrieves file rows from the live API, by fid or by the
// ed2k+size fallback spec.md §4.9 describes for mylist lookups without
// a known fid.
type Fetcher interface {
	FetchFile(ctx context.Context, fid int) (store.FileRow, error)
	FetchFileByHash(ctx context.Context, ed2k string, size int64) (store.FileRow, error)
}

// File is a cache-backed, lazily-refreshed view of one AniDB file.
type File struct {
	mu sync.Mutex

	s       *store.Store
	fetcher Fetcher
	fid     int

	row  store.FileRow
	have bool

	inFlight chan struct{}
}

// New returns a File handle for fid. fid may be 0 if the handle will be
// resolved by hash via ByHash instead.
func New(s *store.Store, fetcher Fetcher, fid int) *File {
	return &File{s: s, fetcher: fetcher, fid: fid}
}

// ByHash resolves (or creates) a File handle from its cache row matched
// by ed2k+size, the generic-to-concrete transition spec.md §4.9
// describes: a file identified only by hash before AniDB has assigned
// it an fid.
func ByHash(ctx context.Context, s *store.Store, fetcher Fetcher, ed2k string, size int64) (*File, error) {
	row, ok, err := s.FileByED2k(ed2k, size)
	if err != nil {
		return nil, err
	}
	if ok {
		f := &File{s: s, fetcher: fetcher, fid: row.FID, row: row, have: true}
		return f, nil
	}
	row, err = fetcher.FetchFileByHash(ctx, ed2k, size)
	if err != nil {
		return nil, err
	}
	row.UpdatedAt = time.Now()
	if err := s.UpsertFile(row); err != nil {
		return nil, err
	}
	return &File{s: s, fetcher: fetcher, fid: row.FID, row: row, have: true}, nil
}

// FID returns the file ID this handle was constructed for (0 if the
// handle hasn't resolved a concrete fid yet).
func (f *File) FID() int { return f.fid }

// Row returns the current cached row, refreshing per the shared policy.
func (f *File) Row(ctx context.Context) (store.FileRow, error) {
	if err := f.ensure(ctx); err != nil {
		return store.FileRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.row, nil
}

func (f *File) ensure(ctx context.Context) error {
	f.mu.Lock()
	if f.inFlight != nil {
		ch := f.inFlight
		f.mu.Unlock()
		select {
		case <-ch:
			return f.ensure(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !f.have && f.fid != 0 {
		row, ok, err := f.s.FileByFID(f.fid)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		if ok {
			f.row, f.have = row, true
		}
	}

	if f.have {
		refresh, newRoll := store.ShouldRefresh(time.Now(), f.row.UpdatedAt, f.row.LastRefreshRoll, ClassBias)
		f.row.LastRefreshRoll = newRoll
		if !refresh {
			f.mu.Unlock()
			return nil
		}
	}

	ch := make(chan struct{})
	f.inFlight = ch
	f.mu.Unlock()

	row, err := f.fetcher.FetchFile(ctx, f.fid)

	f.mu.Lock()
	defer func() {
		close(ch)
		f.inFlight = nil
		f.mu.Unlock()
	}()

	if err != nil {
		if f.have {
			return nil
		}
		return err
	}

	row.UpdatedAt = time.Now()
	row.LastRefreshRoll = f.row.LastRefreshRoll
	f.row, f.have = row, true
	return f.s.UpsertFile(f.row)
}
