package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the server's Prometheus instruments.
type metrics struct {
	requests      *prometheus.CounterVec
	parses        *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
	ingests       *prometheus.CounterVec
	items         prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logistics_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logistics_parses_total",
			Help: "Parse requests by input source and result.",
		}, []string{"source", "result"}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logistics_parse_duration_seconds",
			Help:    "Time to extract and parse one delivery note.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logistics_ingests_total",
			Help: "Ingested documents by outcome.",
		}, []string{"result"}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logistics_parsed_items",
			Help:    "Item rows found per parsed note.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
	reg.MustRegister(m.requests, m.parses, m.parseDuration, m.ingests, m.items)
	return m
}

func (m *metrics) observeRequest(method string, code int) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *metrics) observeParse(source string, start time.Time, items int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.items.Observe(float64(items))
	}
	m.parses.WithLabelValues(source, result).Inc()
	m.parseDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func (m *metrics) observeIngest(result string) {
	m.ingests.WithLabelValues(result).Inc()
}

// orderCollector reports the number of stored orders per status at scrape
// time.
type orderCollector struct {
	counts func(ctx context.Context) (map[string]int, error)
	desc   *prometheus.Desc
}

func newOrderCollector(counts func(ctx context.Context) (map[string]int, error)) *orderCollector {
	return &orderCollector{
		counts: counts,
		desc: prometheus.NewDesc("logistics_orders",
			"Stored orders by workflow status.", []string{"status"}, nil),
	}
}

func (c *orderCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *orderCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	counts, err := c.counts(ctx)
	if err != nil {
		slog.Warn("metrics: counting orders failed", "error", err)
		return
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), status)
	}
}

// newRegistry builds a registry with process and Go runtime collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
