// Package metrics holds the job-level Prometheus instruments. Gate and
// ladder internals register their own counters next to the code they
// observe; this package covers the whole-job view.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "jobs_total",
		Help:      "Finished jobs by outcome",
	}, []string{"outcome"}) // outcome=delivered|rejected|transcode_failed|delivery_failed|download_failed

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rondo",
		Name:      "job_duration_seconds",
		Help:      "Wall time from admission to delivery",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320, 640},
	})

	transcodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rondo",
		Name:      "transcode_duration_seconds",
		Help:      "Encode wall time including the size-fit pass",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320, 640},
	})

	artifactBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rondo",
		Name:      "artifact_size_bytes",
		Help:      "Final artifact size after any size-fit pass",
		Buckets:   prometheus.ExponentialBuckets(256<<10, 2, 10), // 256 KiB .. 128 MiB
	})

	transcodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "transcode_failures_total",
		Help:      "Transcode failures by classified code",
	}, []string{"code"}) // code=timeout|size_fix|encode_failed|internal

	mediaKinds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "media_kind_total",
		Help:      "Admitted requests by inbound media kind",
	}, []string{"kind"})
)

// RecordJob counts a finished job and its wall time.
func RecordJob(outcome string, elapsed time.Duration) {
	jobsTotal.WithLabelValues(outcome).Inc()
	jobDuration.Observe(elapsed.Seconds())
}

// RecordTranscode observes one encode's wall time.
func RecordTranscode(elapsed time.Duration) {
	transcodeDuration.Observe(elapsed.Seconds())
}

// RecordArtifact observes the delivered artifact size.
func RecordArtifact(sizeBytes int64) {
	artifactBytes.Observe(float64(sizeBytes))
}

// RecordTranscodeFailure counts a failed encode by classified code.
func RecordTranscodeFailure(code string) {
	transcodeFailures.WithLabelValues(code).Inc()
}

// RecordMediaKind counts an admitted request's media kind.
func RecordMediaKind(kind string) {
	mediaKinds.WithLabelValues(kind).Inc()
}
