package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	completions      *prometheus.CounterVec
	presence         prometheus.Counter
	leaderboardCache *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trailhunt",
			Name:      "completions_total",
			Help:      "Completion attempts by target kind and outcome.",
		}, []string{"kind", "outcome"}),
		presence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trailhunt",
			Name:      "presence_publishes_total",
			Help:      "Stored live location updates.",
		}),
		leaderboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trailhunt",
			Name:      "leaderboard_cache_lookups_total",
			Help:      "Leaderboard cache lookups by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.completions,
		m.presence,
		m.leaderboardCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) CompletionOutcome(kind, outcome string) {
	m.completions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) PresencePublished() {
	m.presence.Inc()
}

func (m *Metrics) LeaderboardCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.leaderboardCache.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
