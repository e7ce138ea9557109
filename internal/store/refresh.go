package store

import (
	"math"
	"math/rand"
	"time"
)

// RefreshRollInterval bounds how often a domain object rolls the dice on
// a background refresh, regardless of how stale it is (spec.md §4.7
// step 3): at most once every 20 hours.
const RefreshRollInterval = 20 * time.Hour

// minRefreshAge is the row-age below which refresh_if_old is always a
// no-op (spec.md §4.7 step 2, and the "refresh monotonicity" law of
// §8.1).
const minRefreshAge = 24 * time.Hour

// staleStart is the row-age at which the weekly escalation schedule
// begins (spec.md §4.7 step 4: "add 2% if row is 2 weeks old").
const staleStart = 14 * 24 * time.Hour

const week = 7 * 24 * time.Hour

// AnimeClassBias computes the Anime-specific bias percentage of spec.md
// §4.7 step 4: 30 minus 10 per week since the registry's own
// last-updated timestamp, clamped to >= 0. registryUpdated may be zero
// (never fetched), in which case the bias is the full 30.
func AnimeClassBias(now, registryUpdated time.Time) float64 {
	if registryUpdated.IsZero() {
		return 30
	}
	weeksSince := math.Floor(now.Sub(registryUpdated).Hours() / week.Hours())
	bias := 30 - 10*weeksSince
	if bias < 0 {
		bias = 0
	}
	return bias
}

// ShouldRefresh implements the refresh_if_old policy of spec.md §4.7.
// classBiasPercent is the caller's class-specific starting percentage
// (AnimeClassBias for Anime; 0 for Episode/File/Group). It returns
// whether the caller should issue a refresh, and the lastRoll
// timestamp to persist (unchanged when no roll happened this call).
func ShouldRefresh(now, updatedAt, lastRoll time.Time, classBiasPercent float64) (refresh bool, newLastRoll time.Time) {
	if updatedAt.IsZero() {
		// Step 1: no persisted row -> full refresh, unconditionally.
		return true, lastRoll
	}

	age := now.Sub(updatedAt)
	if age < minRefreshAge {
		// Step 2.
		return false, lastRoll
	}
	if !lastRoll.IsZero() && now.Sub(lastRoll) < RefreshRollInterval {
		// Step 3.
		return false, lastRoll
	}

	// Step 4: start from the class bias, then add 2% once the row has
	// been stale for 2 weeks, then compound by 1.5x (rounding up) for
	// every additional week past that, until the probability reaches
	// (or is capped at) 100%.
	p := classBiasPercent
	if age >= staleStart {
		p += 2
		extraWeeks := int((age - staleStart) / week)
		for i := 0; i < extraWeeks && p < 100; i++ {
			p = math.Ceil(p * 1.5)
		}
	}
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}

	// Step 5: record the roll regardless of outcome.
	newLastRoll = now
	// Step 6.
	return rand.Float64()*100 < p, newLastRoll
}
