package measure

import "time"

type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

type Metric interface {
	AddDuration(elapsed time.Duration)
	AVGDuration() time.Duration
	Units() int64
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
	SetFailed(failed bool)
	Failed() bool
}
