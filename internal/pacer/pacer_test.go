package pacer

import (
	"context"
	"testing"
	"time"
)

func TestWaitAllowsInitialBurst(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < burstLength; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() burst send %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("burst of %d sends took %v, want near-instant", burstLength, elapsed)
	}
}

func TestSetBannedCapsBackoff(t *testing.T) {
	p := New(10 * time.Minute)
	first := p.SetBanned()
	if first != banBase && first != p.banCap {
		t.Fatalf("first backoff = %v, want %v or cap %v", first, banBase, p.banCap)
	}
	if !p.Banned() {
		t.Fatalf("Banned() = false after SetBanned")
	}
	second := p.SetBanned()
	if second > p.banCap {
		t.Fatalf("second backoff %v exceeds cap %v", second, p.banCap)
	}
}

func TestClearBannedResetsAttempts(t *testing.T) {
	p := New(0)
	p.SetBanned()
	p.ClearBanned()
	if p.Banned() {
		t.Fatalf("Banned() = true after ClearBanned")
	}
	if p.banAttempts != 0 {
		t.Fatalf("banAttempts = %d, want 0", p.banAttempts)
	}
}

func TestIdleReportsFalseBeforeFirstSend(t *testing.T) {
	p := New(0)
	if p.Idle(time.Millisecond) {
		t.Fatalf("Idle() = true before any send")
	}
}
