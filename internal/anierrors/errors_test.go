package anierrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessagesIncludeContext(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ProtocolViolation{Reason: "bad mask"}, "anidb: protocol violation: bad mask"},
		{&Banned{Code: 555}, "anidb: banned (code 555)"},
		{&NotFound{Entity: "ANIME", Code: 320}, "anidb: ANIME not found (code 320)"},
		{&IllegalEntity{Entity: "anime 123"}, "anidb: illegal entity: anime 123"},
		{&Conflict{Detail: "multiple mylist entries"}, "anidb: conflict: multiple mylist entries"},
		{&Timeout{Command: "FILE", Tag: "abc"}, "anidb: command FILE (tag abc) timed out"},
		{&InputError{Reason: "missing fid"}, "anidb: input error: missing fid"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Errorf("Error() = %q, want %q", got, c.want)
		}
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := &IOError{Op: "fetch catalog", Err: inner}

	if !errors.Is(wrapped, inner) {
		t.Fatal("errors.Is did not see through IOError.Unwrap")
	}
	want := fmt.Sprintf("anidb: io error during fetch catalog: %v", inner)
	if got := wrapped.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorsAsDistinguishesKinds(t *testing.T) {
	var err error = &NotFound{Entity: "FILE", Code: 320}

	var nf *NotFound
	if !errors.As(err, &nf) {
		t.Fatal("errors.As(NotFound) failed")
	}
	var ie *IllegalEntity
	if errors.As(err, &ie) {
		t.Fatal("errors.As(IllegalEntity) unexpectedly matched a NotFound")
	}
}
