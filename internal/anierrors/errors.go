// Package anierrors defines the error taxonomy of spec.md §7.
//
// Each kind is a distinct type so callers can classify with errors.As,
// following the teacher's sentinel-error idiom (fetch.ErrNotModified)
// generalized to typed errors since several kinds carry data (response
// code, command name).
package anierrors

import "fmt"

// ProtocolViolation indicates an unparsable or unexpected response; fatal
// for the current session (spec.md §7, §4.5 step 7).
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string { return "anidb: protocol violation: " + e.Reason }

// Banned indicates the server has signalled a ban; never terminal, retried
// with exponential backoff by the pacer (spec.md §4.2).
type Banned struct {
	Code int
}

func (e *Banned) Error() string { return fmt.Sprintf("anidb: banned (code %d)", e.Code) }

// NotFound indicates the server reports absence of a requested entity.
// Surfaced as an absent record unless the caller asked by identifier, in
// which case it becomes IllegalEntity (spec.md §7).
type NotFound struct {
	Entity string
	Code   int
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("anidb: %s not found (code %d)", e.Entity, e.Code)
}

// IllegalEntity indicates a NotFound surfaced for a caller-identified lookup.
type IllegalEntity struct {
	Entity string
}

func (e *IllegalEntity) Error() string { return "anidb: illegal entity: " + e.Entity }

// Conflict indicates a multiple-entry mylist response (312); surfaced to the
// caller, never auto-resolved (spec.md §7, §4.9).
type Conflict struct {
	Detail string
}

func (e *Conflict) Error() string { return "anidb: conflict: " + e.Detail }

// Timeout indicates no response arrived before the deadline. Retried up to a
// bounded count, then treated as Banned (spec.md §4.4, §7).
type Timeout struct {
	Command string
	Tag     string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("anidb: command %s (tag %s) timed out", e.Command, e.Tag)
}

// InputError indicates a caller-side mistake, e.g. a missing required
// construction argument (spec.md §7, mirrors adbb's AniDBIncorrectParameterError).
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "anidb: input error: " + e.Reason }

// IOError indicates the filesystem or network is unavailable. Catalog
// fetches degrade to the cached copy if present (spec.md §7).
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("anidb: io error during %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
