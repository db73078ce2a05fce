package omap

import "github.com/VictoriaMetrics/metrics"

// rotationTotal counts every rotation performed across all Map instances
// in the process, regardless of whether it happened during an insert or a
// delete fix-up.
var rotationTotal = metrics.NewCounter("omap_rotation_total")
