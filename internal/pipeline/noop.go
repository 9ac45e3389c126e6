package pipeline

import "context"

// NopRecorder discards all usage counters, for running without an
// analytics database.
type NopRecorder struct{}

func (NopRecorder) RecordStart(context.Context, int64)                   {}
func (NopRecorder) RecordKind(context.Context, int64, string)            {}
func (NopRecorder) RecordConversion(context.Context, int64)              {}
func (NopRecorder) RecordError(context.Context, int64, string)           {}
func (NopRecorder) RecordMetric(context.Context, int64, string, float64) {}
