package netrc

import (
	"os"
	"path/filepath"
	"testing"
)

func writeNetrc(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".netrc")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLookupFindsNamedMachine(t *testing.T) {
	path := writeNetrc(t, "machine api.anidb.net login alice password s3cret\n")

	e, ok := Lookup(path, "api.anidb.net")
	if !ok {
		t.Fatal("Lookup: want entry found")
	}
	if e.Login != "alice" || e.Password != "s3cret" {
		t.Fatalf("got %+v", e)
	}
}

func TestLookupMissingMachineReturnsFalse(t *testing.T) {
	path := writeNetrc(t, "machine someother.example login bob password pw\n")

	if _, ok := Lookup(path, "api.anidb.net"); ok {
		t.Fatal("Lookup: want false for an absent machine")
	}
}

func TestLookupDefaultEntryMatchesEmptyMachine(t *testing.T) {
	path := writeNetrc(t, "machine someother.example login bob password pw\ndefault login carol password pw2\n")

	e, ok := Lookup(path, "")
	if !ok {
		t.Fatal("Lookup: want the default entry for an empty machine")
	}
	if e.Login != "carol" {
		t.Fatalf("Login = %q, want carol", e.Login)
	}
}

func TestLookupNonexistentFile(t *testing.T) {
	if _, ok := Lookup(filepath.Join(t.TempDir(), "missing"), "api.anidb.net"); ok {
		t.Fatal("Lookup: want false when the file doesn't exist")
	}
}

func TestApplyCredentialsPrefersExplicitValues(t *testing.T) {
	path := writeNetrc(t, "machine api.anidb.net login alice password s3cret\n")

	user, pass := ApplyCredentials(path, "api.anidb.net", "explicit-user", "explicit-pass")
	if user != "explicit-user" || pass != "explicit-pass" {
		t.Fatalf("got (%q, %q), want explicit values untouched", user, pass)
	}
}

func TestApplyCredentialsFillsFromNetrc(t *testing.T) {
	path := writeNetrc(t, "machine api.anidb.net login alice password s3cret\n")

	user, pass := ApplyCredentials(path, "api.anidb.net", "", "")
	if user != "alice" || pass != "s3cret" {
		t.Fatalf("got (%q, %q), want (alice, s3cret)", user, pass)
	}
}

func TestApplyCredentialsPartialFill(t *testing.T) {
	path := writeNetrc(t, "machine api.anidb.net login alice password s3cret\n")

	user, pass := ApplyCredentials(path, "api.anidb.net", "override-user", "")
	if user != "override-user" || pass != "s3cret" {
		t.Fatalf("got (%q, %q), want (override-user, s3cret)", user, pass)
	}
}
