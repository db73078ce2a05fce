package hmap

import "github.com/VictoriaMetrics/metrics"

// rehashTotal counts every rehash across all Map instances in the process,
// a process-wide complement to any per-instance growth bookkeeping a
// caller keeps of its own.
var rehashTotal = metrics.NewCounter("hmap_rehash_total")
