package constmem

import "github.com/prometheus/client_golang/prometheus"

// Collector exports Registry counters to Prometheus.
type Collector struct {
	r       *Registry
	reports *prometheus.Desc
	size    *prometheus.Desc
}

// NewCollector creates a collector for r.
func NewCollector(r *Registry) *Collector {
	return &Collector{
		r: r,
		reports: prometheus.NewDesc("cmphook_constants_reports_total",
			"Constant candidates reported, by outcome.", []string{"outcome"}, nil),
		size: prometheus.NewDesc("cmphook_constants_kept",
			"Constants currently kept by the registry.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reports
	ch <- c.size
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.r.Stats()
	for _, o := range []struct {
		outcome string
		n       uint64
	}{
		{"accepted", s.Accepted},
		{"duplicate", s.Duplicates},
		{"ignored", s.Ignored},
		{"writable", s.Writable},
		{"dropped", s.Dropped},
	} {
		ch <- prometheus.MustNewConstMetric(c.reports, prometheus.CounterValue, float64(o.n), o.outcome)
	}
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(c.r.Len()))
}
