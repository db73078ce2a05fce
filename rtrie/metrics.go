package rtrie

import "github.com/VictoriaMetrics/metrics"

var (
	splitTotal = metrics.NewCounter("rtrie_split_total")
	mergeTotal = metrics.NewCounter("rtrie_merge_total")
)
