package langcode

import "testing"

func TestLookupKnownCode(t *testing.T) {
	got, ok := Lookup("en")
	if !ok || got != "eng" {
		t.Fatalf("Lookup(en) = (%q, %v), want (eng, true)", got, ok)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	if _, ok := Lookup("xx-nonexistent"); ok {
		t.Fatalf("Lookup(xx-nonexistent) = true, want false")
	}
}
