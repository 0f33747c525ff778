package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postura_catalog_cache_hits_total",
		Help: "Catalog reads served from the in-memory snapshot.",
	}, []string{"collection"})

	cacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postura_catalog_cache_loads_total",
		Help: "Catalog loads issued against the backing store.",
	}, []string{"collection"})

	cacheLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postura_catalog_cache_load_failures_total",
		Help: "Catalog loads that failed and kept the previous snapshot.",
	}, []string{"collection"})

	cacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "postura_catalog_cache_items",
		Help: "Items in the current catalog snapshot.",
	}, []string{"collection"})
)
