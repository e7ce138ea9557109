// Package pacer implements the UDP API's steady-state send pacing and
// ban backoff (spec.md §4.2), grounded on adbb/link.py's _do_delay and
// set_banned, with the retry-policy shape borrowed from the teacher's
// internal/httpclient/retry.go (RetryPolicy struct, jitter helper).
package pacer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	shortDelay  = 2 * time.Second
	longDelay   = 4 * time.Second
	idleWindow  = 600 * time.Second
	burstLength = 5

	banBase    = 30 * time.Minute
	banDefault = 48 * time.Hour
)

// Pacer serializes outgoing sends against AniDB's rate limits and tracks
// a separate, much longer, backoff while the API reports a ban.
//
// Steady-state pacing is delegated to a golang.org/x/time/rate.Limiter
// primed for a burst of 5 immediate sends (the "2s for the first 5
// sends" allowance of spec.md §4.2) that then refills at one token per
// longDelay (the "4s" steady rate); ban backoff is not a steady rate so
// it's tracked separately below.
type Pacer struct {
	limiter *rate.Limiter

	mtx sync.Mutex

	lastSend time.Time

	banned      bool
	banAttempts int
	banUntil    time.Time
	banCap      time.Duration
}

// New returns a Pacer. banCap overrides the default 48h ceiling on ban
// backoff when positive (config.BanCap, spec.md §4.2).
func New(banCap time.Duration) *Pacer {
	if banCap <= 0 {
		banCap = banDefault
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(longDelay), burstLength),
		banCap:  banCap,
	}
}

// Wait blocks until the next send is allowed by either the steady-state
// limiter or, if banned, the backoff window, then records the send.
func (p *Pacer) Wait(ctx context.Context) error {
	if wait := p.banWait(); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if p.idleSinceLastSend() {
		p.limiter.SetBurst(burstLength)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	p.recordSend()
	return nil
}

func (p *Pacer) banWait() time.Duration {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if !p.banned {
		return 0
	}
	if time.Now().Before(p.banUntil) {
		return time.Until(p.banUntil)
	}
	return 0
}

func (p *Pacer) idleSinceLastSend() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.lastSend.IsZero() || time.Since(p.lastSend) > idleWindow
}

func (p *Pacer) recordSend() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.lastSend = time.Now()
}

// SetBanned marks the pacer as banned, computing an exponentially
// doubling backoff window from banBase capped at p.banCap (spec.md §4.2;
// the original Python's linear 1800*banned_count is superseded here by
// the spec's explicit doubling schedule).
func (p *Pacer) SetBanned() time.Duration {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.banned = true
	backoff := banBase << p.banAttempts
	if backoff > p.banCap || backoff <= 0 {
		backoff = p.banCap
	}
	p.banAttempts++
	p.banUntil = time.Now().Add(backoff)
	return backoff
}

// ClearBanned resets the ban state after a successful send.
func (p *Pacer) ClearBanned() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.banned = false
	p.banAttempts = 0
}

// Banned reports whether the pacer currently considers the API banned.
func (p *Pacer) Banned() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.banned && time.Now().Before(p.banUntil)
}

// Idle reports whether the connection has been idle long enough for the
// session manager to consider sending an UPTIME ping (spec.md §4.3).
func (p *Pacer) Idle(after time.Duration) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.lastSend.IsZero() {
		return false
	}
	return time.Since(p.lastSend) > after
}
