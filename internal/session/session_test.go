package session

import "testing"

func TestNewWithAPIKeyNeedsEncrypt(t *testing.T) {
	s := New("apikey", 12345, nil)
	if !s.NeedsEncrypt() {
		t.Fatalf("NeedsEncrypt() = false, want true with api key configured")
	}
}

func TestNewWithoutAPIKeySkipsEncrypt(t *testing.T) {
	s := New("", 12345, nil)
	if s.NeedsEncrypt() {
		t.Fatalf("NeedsEncrypt() = true, want false without api key")
	}
}

func TestAuthenticateDetectsNAT(t *testing.T) {
	s := New("", 12345, nil)
	s.Authenticate("sesskey", 54321)
	if !s.NATDetected() {
		t.Fatalf("NATDetected() = false, want true when returned port differs")
	}
	if s.State() != Authed {
		t.Fatalf("State() = %v, want Authed", s.State())
	}
	if s.Key() != "sesskey" {
		t.Fatalf("Key() = %q, want sesskey", s.Key())
	}
}

func TestAuthenticateNoNATWhenPortsMatch(t *testing.T) {
	s := New("", 12345, nil)
	s.Authenticate("sesskey", 12345)
	if s.NATDetected() {
		t.Fatalf("NATDetected() = true, want false when ports match")
	}
}

func TestRequiresReauth(t *testing.T) {
	s := New("", 0, nil)
	cases := []struct {
		code             int
		onlyLogoutQueued bool
		want             bool
	}{
		{CodeInvalidSession, false, true},
		{CodeAccessDenied, false, true},
		{CodeOutOfService, false, true},
		{CodeEncryptedLostSess, false, true},
		{CodeEncryptedLostSess, true, false},
		{CodeLoginAccepted, false, false},
	}
	for _, tc := range cases {
		if got := s.RequiresReauth(tc.code, tc.onlyLogoutQueued); got != tc.want {
			t.Errorf("RequiresReauth(%d, %v) = %v, want %v", tc.code, tc.onlyLogoutQueued, got, tc.want)
		}
	}
}

func TestInvalidateSessionReturnsToEncryptedUnauthWithAPIKey(t *testing.T) {
	s := New("apikey", 0, nil)
	s.BeginEncrypted("saltvalue")
	s.Authenticate("sesskey", 0)
	s.InvalidateSession()
	if s.State() != EncryptedUnauth {
		t.Fatalf("State() = %v, want EncryptedUnauth", s.State())
	}
	if s.Key() != "" {
		t.Fatalf("Key() = %q, want empty after invalidate", s.Key())
	}
	if s.Salt() != "saltvalue" {
		t.Fatalf("Salt() = %q, want cipher preserved across InvalidateSession", s.Salt())
	}
}

func TestInvalidateCipherForcesFullUnauthEvenWithAPIKey(t *testing.T) {
	s := New("apikey", 0, nil)
	s.BeginEncrypted("saltvalue")
	s.Authenticate("sesskey", 0)
	s.InvalidateCipher()
	if s.State() != Unauth {
		t.Fatalf("State() = %v, want Unauth", s.State())
	}
	if s.Key() != "" {
		t.Fatalf("Key() = %q, want empty after invalidate", s.Key())
	}
	if s.Salt() != "" {
		t.Fatalf("Salt() = %q, want empty after InvalidateCipher", s.Salt())
	}
	if !s.NeedsEncrypt() {
		t.Fatalf("NeedsEncrypt() = false, want true so the next login renegotiates ENCRYPT")
	}
}

func TestShouldSkipLogout(t *testing.T) {
	if !ShouldSkipLogout(CodeLoggedOut) {
		t.Fatalf("ShouldSkipLogout(203) = false, want true")
	}
	if ShouldSkipLogout(CodeInvalidSession) {
		t.Fatalf("ShouldSkipLogout(501) = true, want false")
	}
}
