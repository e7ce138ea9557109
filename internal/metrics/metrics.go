// Package metrics exposes the client's operational counters through
// github.com/prometheus/client_golang, grounded on the teacher's
// Prometheus wiring style (internal/health/*.go's use of promauto) and
// SPEC_FULL.md's domain-stack table, which names prometheus as the
// metrics library for commands sent, bans entered, cache hits/misses,
// and refresh rolls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter the client records. Callers that don't
// want metrics can pass a nil registry to New and get a Metrics backed
// by a private, unexported registry that's simply never scraped.
type Metrics struct {
	Registry *prometheus.Registry

	CommandsSent   *prometheus.CounterVec
	CommandErrors  *prometheus.CounterVec
	BansEntered    prometheus.Counter
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	RefreshRolls   *prometheus.CounterVec
	MylistMutation *prometheus.CounterVec
}

// New registers every counter against reg (a fresh *prometheus.Registry
// if reg is nil) and returns the bundle.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		CommandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_commands_sent_total",
			Help: "UDP API commands sent, by command name.",
		}, []string{"command"}),
		CommandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_command_errors_total",
			Help: "UDP API commands that resolved to an error, by command name and response code.",
		}, []string{"command", "code"}),
		BansEntered: factory.NewCounter(prometheus.CounterOpts{
			Name: "anidbclient_bans_entered_total",
			Help: "Number of times the pacer entered a ban backoff window.",
		}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_cache_hits_total",
			Help: "Domain object reads served from the cache without a live refresh, by object type.",
		}, []string{"object"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_cache_misses_total",
			Help: "Domain object reads that triggered a live refresh, by object type.",
		}, []string{"object"}),
		RefreshRolls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_refresh_rolls_total",
			Help: "Probabilistic staleness rolls performed, by object type and outcome (refresh/skip).",
		}, []string{"object", "outcome"}),
		MylistMutation: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anidbclient_mylist_mutations_total",
			Help: "Mylist add/edit/delete operations, by kind.",
		}, []string{"kind"}),
	}
}
