package feedback

import "github.com/prometheus/client_golang/prometheus"

// Collector exports CmpMap counters to Prometheus.
type Collector struct {
	m            *CmpMap
	reports      *prometheus.Desc
	improvements *prometheus.Desc
	used         *prometheus.Desc
}

// NewCollector creates a collector for m.
func NewCollector(m *CmpMap) *Collector {
	return &Collector{
		m: m,
		reports: prometheus.NewDesc("cmphook_feedback_reports_total",
			"Progress scores reported to the comparison map.", nil, nil),
		improvements: prometheus.NewDesc("cmphook_feedback_improvements_total",
			"Progress scores that raised a call site maximum.", nil, nil),
		used: prometheus.NewDesc("cmphook_feedback_slots_used",
			"Comparison map slots holding a non-zero score.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reports
	ch <- c.improvements
	ch <- c.used
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Stats()
	ch <- prometheus.MustNewConstMetric(c.reports, prometheus.CounterValue, float64(s.Reports))
	ch <- prometheus.MustNewConstMetric(c.improvements, prometheus.CounterValue, float64(s.Improvements))
	ch <- prometheus.MustNewConstMetric(c.used, prometheus.GaugeValue, float64(s.Used))
}
