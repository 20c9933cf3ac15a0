package metric

import "github.com/prometheus/client_golang/prometheus"

// Snapshot is a point-in-time view of live service state, supplied by
// the services on every scrape.
type Snapshot struct {
	ActiveSessions    int
	OpenChannels      int
	AnonymousMappings int
	ReplayCacheSize   int
}

// Collector exposes live service gauges without the services pushing
// on every mutation. The source func is called once per scrape.
type Collector struct {
	source func() Snapshot

	sessions *prometheus.Desc
	channels *prometheus.Desc
	mappings *prometheus.Desc
	replay   *prometheus.Desc
}

// NewCollector creates a collector over the given snapshot source.
func NewCollector(source func() Snapshot) *Collector {
	return &Collector{
		source: source,
		sessions: prometheus.NewDesc("pqcall_live_sessions",
			"Live call sessions at scrape time.", nil, nil),
		channels: prometheus.NewDesc("pqcall_live_signaling_channels",
			"Open signaling channels at scrape time.", nil, nil),
		mappings: prometheus.NewDesc("pqcall_live_anonymous_mappings",
			"Ephemeral anonymous identity mappings at scrape time.", nil, nil),
		replay: prometheus.NewDesc("pqcall_replay_cache_size",
			"Entries held by the signaling replay cache.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessions
	ch <- c.channels
	ch <- c.mappings
	ch <- c.replay
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source()
	ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, float64(snap.ActiveSessions))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(snap.OpenChannels))
	ch <- prometheus.MustNewConstMetric(c.mappings, prometheus.GaugeValue, float64(snap.AnonymousMappings))
	ch <- prometheus.MustNewConstMetric(c.replay, prometheus.GaugeValue, float64(snap.ReplayCacheSize))
}

// RegisterCollector attaches a custom collector to the registry.
func (r *Registry) RegisterCollector(c prometheus.Collector) {
	if r != nil {
		r.registry.MustRegister(c)
	}
}
