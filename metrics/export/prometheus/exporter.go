package prometheus

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() passgate.MetricsSnapshot
}

type counterDesc struct {
	id   passgate.MetricID
	desc *prom.Desc
}

type histogramDesc struct {
	id   passgate.MetricID
	desc *prom.Desc
}

// Collector bridges engine counters into a Prometheus registry. Every
// scrape reads one snapshot and emits const metrics, so the collector
// holds no metric state of its own and one instance can serve any number
// of registries.
type Collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []histogramDesc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector builds a collector over a live engine.
func NewCollector(engine *passgate.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource builds a collector over any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
	}

	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prom.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prom.NewDesc(def.Name, def.Help, nil, nil),
		})
	}

	return c
}

// Describe implements prom.Collector.
func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, counter := range c.counters {
		ch <- counter.desc
	}
	for _, histogram := range c.histograms {
		ch <- histogram.desc
	}
}

// Collect implements prom.Collector. A disabled engine snapshots empty
// maps; those IDs are skipped rather than exported as zeros, so a scrape
// of a metrics-off engine carries no families at all.
func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, counter := range c.counters {
		value, ok := snapshot.Counters[counter.id]
		if !ok {
			continue
		}
		ch <- prom.MustNewConstMetric(counter.desc, prom.CounterValue, float64(value))
	}

	for _, histogram := range c.histograms {
		raw, ok := snapshot.Histograms[histogram.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]

		// The engine keeps bucket counts only, so the sum is reported
		// as zero.
		ch <- prom.MustNewConstHistogram(histogram.desc, count, 0, buckets)
	}
}

// Handler returns a scrape endpoint backed by a private registry holding
// only this collector.
func (c *Collector) Handler() http.Handler {
	registry := prom.NewRegistry()
	registry.MustRegister(c)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
