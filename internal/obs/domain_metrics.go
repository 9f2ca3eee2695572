package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PriceComputeTotal counts bundle price computations by strategy kind.
	PriceComputeTotal *prometheus.CounterVec
	// BundleWriteTotal counts bundle create/update/delete outcomes.
	BundleWriteTotal *prometheus.CounterVec
	// BundleQueryTotal counts filter/sort applications on bundle listings.
	BundleQueryTotal prometheus.Counter
	// BundleQueryResultSize records how many bundles survive the filter.
	BundleQueryResultSize prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_compute_total",
			Help:      "Count of bundle price computations by strategy kind.",
		}, []string{"kind"})
		BundleWriteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_write_total",
			Help:      "Count of bundle write operations by outcome.",
		}, []string{"op", "result"})
		BundleQueryTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_query_total",
			Help:      "Number of bundle listing filter applications.",
		})
		BundleQueryResultSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_query_result_size",
			Help:      "Distribution of bundle listing result sizes.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		})

		registerCollector(reg, PriceComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceComputeTotal = v
			}
		})
		registerCollector(reg, BundleWriteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BundleWriteTotal = v
			}
		})
		registerCollector(reg, BundleQueryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BundleQueryTotal = v
			}
		})
		registerCollector(reg, BundleQueryResultSize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				BundleQueryResultSize = v
			}
		})
	})
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
