package models

import (
	"sort"
	"time"
)

// Metric is one logged data point of a run metric series.
type Metric struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Step      int64     `json:"step"`
}

// EpochMetrics converts a per-epoch metric map into Metric points with the
// epoch as the series step, in stable key order.
func EpochMetrics(epoch int, values map[string]float64, at time.Time) []Metric {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	metrics := make([]Metric, 0, len(values))
	for _, key := range keys {
		metrics = append(metrics, Metric{
			Key:       key,
			Value:     values[key],
			Timestamp: at,
			Step:      int64(epoch),
		})
	}
	return metrics
}
