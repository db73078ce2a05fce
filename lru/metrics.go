package lru

import "github.com/VictoriaMetrics/metrics"

// evictionTotal counts every least-recently-used eviction across all
// Cache instances in the process.
var evictionTotal = metrics.NewCounter("lru_eviction_total")
