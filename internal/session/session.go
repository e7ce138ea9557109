// Package session implements the AniDB session state machine: UNAUTH ->
// (ENCRYPTED_UNAUTH if an api key is configured) -> AUTHED, including
// reauth triggers, NAT detection, and idle keepalive. Grounded on
// adbb/link.py's AniDBLink (tag life cycle, _do_delay, set_banned,
// nat_tries/mport handling).
package session

import (
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/anilog"
)

// State is a node in the session state machine.
type State int

const (
	Unauth State = iota
	EncryptedUnauth
	Authed
)

func (s State) String() string {
	switch s {
	case Unauth:
		return "UNAUTH"
	case EncryptedUnauth:
		return "ENCRYPTED_UNAUTH"
	case Authed:
		return "AUTHED"
	default:
		return "UNKNOWN"
	}
}

// Reauth codes that require the current command be requeued with
// priority and the session key cleared (spec.md §4.5): invalid session
// (501/506/403) and a lost encrypted session (598, handled separately
// since it only forces reauth when more than LOGOUT is queued).
const (
	CodeLoginFailed         = 500
	CodeInvalidSession      = 501
	CodeSessionTimeout      = 503
	CodeAccessDenied        = 403
	CodeOutOfService        = 506
	CodeEncryptionNotSupp   = 508
	CodeEncryptedLostSess   = 598
	CodeLoginAccepted       = 200
	CodeLoginAcceptedNewVer = 201
	CodeLoggedOut           = 203
)

// Session tracks auth state, the session key, and NAT detection for one
// logical connection to the API.
type Session struct {
	mu sync.Mutex

	log *anilog.Logger

	state      State
	key        string
	salt       string
	apiKey     string
	natDetected bool
	localPort  int

	lastActivity time.Time
}

// New returns a Session. apiKey may be empty, in which case the
// connection skips straight from Unauth to Authed without encryption.
func New(apiKey string, localPort int, log *anilog.Logger) *Session {
	if log == nil {
		log = anilog.New(nil, "session")
	}
	return &Session{
		log:       log,
		apiKey:    apiKey,
		localPort: localPort,
		state:     Unauth,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NeedsEncrypt reports whether ENCRYPT must run before AUTH.
func (s *Session) NeedsEncrypt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey != "" && s.state == Unauth
}

// BeginEncrypted transitions Unauth -> EncryptedUnauth after a
// successful ENCRYPT response and records the salt the cipher is keyed
// on. From this point spec.md §4.1.4 requires every datagram, including
// the AUTH that follows, to be sent and read encrypted under this salt
// -- well before the AUTH session key exists.
func (s *Session) BeginEncrypted(salt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salt = salt
	s.state = EncryptedUnauth
	s.log.Debugf("state -> %s", s.state)
}

// Salt returns the ENCRYPT salt the transport cipher is keyed on, or ""
// if no cipher has been negotiated. Encryption is gated on this, not on
// Key(), since the salt is established before AUTH and its session key
// ever exist.
func (s *Session) Salt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salt
}

// Authenticate records the session key returned by AUTH and transitions
// to Authed. ip/port are the values AniDB echoes back, used for NAT
// detection (spec.md §4.3): if port does not match the locally bound
// port, the caller is behind NAT and must keep the session alive with
// periodic PING.
func (s *Session) Authenticate(key string, returnedPort int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.state = Authed
	s.lastActivity = time.Now()
	if returnedPort != 0 && returnedPort != s.localPort {
		s.natDetected = true
		s.log.Printf("NAT detected: local port %d, server reports %d", s.localPort, returnedPort)
	}
	s.log.Debugf("state -> %s", s.state)
}

// Key returns the current AUTH session key, or "" if not authenticated.
func (s *Session) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// NATDetected reports whether the client is believed to sit behind NAT
// and therefore needs periodic keepalive PINGs.
func (s *Session) NATDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.natDetected
}

// Touch records activity for idle/keepalive accounting.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleFor returns how long it has been since the last recorded activity.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastActivity.IsZero() {
		return 0
	}
	return time.Since(s.lastActivity)
}

// RequiresReauth reports whether a response code forces the session
// back to Unauth with the triggering command requeued at priority
// (spec.md §4.5): 501/506/403 always; 598 only when more than a queued
// LOGOUT remains outstanding, which the dispatcher decides and passes
// in via onlyLogoutQueued.
func (s *Session) RequiresReauth(code int, onlyLogoutQueued bool) bool {
	switch code {
	case CodeInvalidSession, CodeOutOfService, CodeAccessDenied:
		return true
	case CodeEncryptedLostSess:
		return !onlyLogoutQueued
	}
	return false
}

// InvalidateSession drops the AUTH session key and returns to Unauth
// (or EncryptedUnauth if an api key is configured and the cipher is
// still considered valid), as required before a requeued reauth
// triggered by 501/506/403: the transport cipher survives, only AUTH
// needs to run again.
func (s *Session) InvalidateSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	if s.apiKey != "" {
		s.state = EncryptedUnauth
	} else {
		s.state = Unauth
	}
	s.log.Printf("session invalidated, state -> %s", s.state)
}

// InvalidateCipher drops both the AUTH session key and the ENCRYPT
// salt, forcing a full Unauth reset even when an api key is configured,
// for the 598 "encrypted session lost" trigger: the cipher itself is
// gone server-side, so the next login must renegotiate ENCRYPT before
// AUTH (spec.md §4.3, Scenario C).
func (s *Session) InvalidateCipher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.salt = ""
	s.state = Unauth
	s.log.Printf("encrypted session lost, state -> %s", s.state)
}

// ShouldSkipLogout reports whether a code indicates the session is already
// gone server-side, so no LOGOUT command is needed (spec.md §4.5):
// login failure, session timeout, or already logged out.
func ShouldSkipLogout(code int) bool {
	switch code {
	case CodeLoginFailed, CodeSessionTimeout, CodeLoggedOut:
		return true
	}
	return false
}

// IsLoginSuccess reports whether a response code indicates AUTH
// succeeded (200 new client, 201 new server version available).
func IsLoginSuccess(code int) bool {
	return code == CodeLoginAccepted || code == CodeLoginAcceptedNewVer
}
