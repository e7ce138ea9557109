// Package mylist implements the mylist coordinator (spec.md's C9):
// add/edit/delete against the user's personal list, the fid -> lid ->
// (aid, epno) -> (size, ed2k) fallback chain, and multi-episode
// iteration. Grounded on adbb/animeobjs.py's add_to_mylist/
// remove_from_mylist and adbb/commands.py's MylistAdd/MylistDel command
// shapes.
package mylist

import (
	"context"
	"fmt"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/store"
)

// AddResult reports the outcome of an Add call.
type AddResult struct {
	LID     int
	Edited  bool
	Entries int // > 1 means response code 311 fired and LID is the real entry
}

// API is the subset of the live client mylist needs, kept narrow so
// this package has no direct wire/dispatch dependency.
type API interface {
	MylistAdd(ctx context.Context, fid int, state, viewed string, edit bool) (AddResult, error)
	MylistDelByFID(ctx context.Context, fid int) error
	MylistDelByLID(ctx context.Context, lid int) error
	MylistDelByAIDEpno(ctx context.Context, aid int, epno string) error
	MylistDelBySizeED2k(ctx context.Context, size int64, ed2k string) error
	// MylistLookup queries the server for an existing entry covering
	// (aid, epno) when the local cache has none, used by the
	// before-add duplicate check of spec.md §4.9.
	MylistLookup(ctx context.Context, aid int, epno string) (lid int, found bool, err error)
}

// Coordinator wires the mylist API against the cache store.
type Coordinator struct {
	api API
	s   *store.Store
}

// New returns a Coordinator.
func New(api API, s *store.Store) *Coordinator {
	return &Coordinator{api: api, s: s}
}

// Add adds or edits fid in the mylist, editing in place if the file is
// already present (edit=1 is sent whenever the caller already knows
// lid, per spec.md §4.9 and adbb's add_to_mylist).
func (c *Coordinator) Add(ctx context.Context, fid int, state, viewed string, alreadyKnownLID int) (AddResult, error) {
	res, err := c.api.MylistAdd(ctx, fid, state, viewed, alreadyKnownLID != 0)
	if err != nil {
		return AddResult{}, err
	}
	if res.Entries > 1 {
		return res, &anierrors.Conflict{Detail: fmt.Sprintf("mylist add for fid %d resolved to %d entries", fid, res.Entries)}
	}
	return res, nil
}

// Delete removes a file from the mylist, trying the identifier chain
// spec.md §4.9 specifies: fid, then lid, then (aid, epno), then
// (size, ed2k) as a last resort for files AniDB has never seen.
func (c *Coordinator) Delete(ctx context.Context, fid int, lid int, aid int, epno string, size int64, ed2k string) error {
	if fid != 0 {
		if err := c.api.MylistDelByFID(ctx, fid); err == nil {
			return nil
		}
	}
	if lid != 0 {
		if err := c.api.MylistDelByLID(ctx, lid); err == nil {
			return nil
		}
	}
	if aid != 0 && epno != "" {
		if err := c.api.MylistDelByAIDEpno(ctx, aid, epno); err == nil {
			return nil
		}
	}
	if size > 0 && ed2k != "" {
		return c.api.MylistDelBySizeED2k(ctx, size, ed2k)
	}
	return &anierrors.InputError{Reason: "mylist delete: no usable identifier (fid/lid, aid+epno, or size+ed2k)"}
}

// DeleteMultiEpisode iterates Delete across every episode number in
// epnos, the multi-episode file handling spec.md §4.9 requires since a
// single AniDB file can cover a contiguous episode range.
func (c *Coordinator) DeleteMultiEpisode(ctx context.Context, aid int, epnos []string) error {
	for _, epno := range epnos {
		if err := c.Delete(ctx, 0, 0, aid, epno, 0, ""); err != nil {
			return fmt.Errorf("mylist: delete episode %s: %w", epno, err)
		}
	}
	return nil
}

// EnsureNoDuplicate implements the pre-add dedup check of spec.md §4.9:
// before adding a file that doesn't already carry a known lid, make
// sure no other mylist entry exists for the same (aid, epno) — first by
// checking the local cache, then (if the cache has nothing) by asking
// the server directly and deleting what it reports.
func (c *Coordinator) EnsureNoDuplicate(ctx context.Context, aid int, epno string) error {
	existing, ok, err := c.s.FileByAIDEpno(aid, epno)
	if err != nil {
		return err
	}
	if ok && existing.MylistID != 0 {
		if err := c.api.MylistDelByAIDEpno(ctx, aid, epno); err != nil {
			return fmt.Errorf("mylist: remove existing local entry for aid=%d epno=%s: %w", aid, epno, err)
		}
		return nil
	}
	lid, found, err := c.api.MylistLookup(ctx, aid, epno)
	if err != nil {
		return fmt.Errorf("mylist: lookup aid=%d epno=%s: %w", aid, epno, err)
	}
	if found && lid != 0 {
		if err := c.api.MylistDelByAIDEpno(ctx, aid, epno); err != nil {
			return fmt.Errorf("mylist: remove server-reported entry for aid=%d epno=%s: %w", aid, epno, err)
		}
	}
	return nil
}

// ReconcileGenericToConcrete implements the generic->concrete
// transition of spec.md §4.9: when a previously-generic local file
// (tracked only by (aid, epno), response code 220 now resolving it to a
// concrete fid) turns out to already be identified by the registry,
// this carries the existing mylist fields onto the new concrete row,
// removes the generic entry, and persists the concrete one — so the
// viewed/storage state the user already set is never orphaned (the
// "generic <-> concrete preservation" law of spec.md §8.1).
func (c *Coordinator) ReconcileGenericToConcrete(aid int, epno string, concrete store.FileRow) (store.FileRow, error) {
	generic, ok, err := c.s.FileByAIDEpno(aid, epno)
	if err != nil {
		return store.FileRow{}, err
	}
	if ok && generic.IsGeneric {
		concrete.MylistID = generic.MylistID
		concrete.MylistState = generic.MylistState
		concrete.MylistFilestate = generic.MylistFilestate
		concrete.MylistViewed = generic.MylistViewed
		concrete.MylistViewDate = generic.MylistViewDate
		concrete.MylistStorage = generic.MylistStorage
		concrete.MylistSource = generic.MylistSource
		concrete.MylistOther = generic.MylistOther
	}
	concrete.IsGeneric = false
	if err := c.s.UpsertFile(concrete); err != nil {
		return store.FileRow{}, err
	}
	if ok && generic.IsGeneric && generic.FID != concrete.FID {
		if err := c.s.DeleteFile(generic.FID); err != nil {
			return store.FileRow{}, fmt.Errorf("mylist: remove superseded generic file: %w", err)
		}
	}
	return concrete, nil
}
