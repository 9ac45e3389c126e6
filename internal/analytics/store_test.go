package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConversionsAggregate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordConversion(ctx, 1)
	s.RecordConversion(ctx, 1)
	s.RecordConversion(ctx, 2)
	s.RecordStart(ctx, 3)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.TotalConversions)
	require.Len(t, stats.TopUsers, 2)
	assert.Equal(t, UserCount{UserID: 1, Count: 2}, stats.TopUsers[0])
	assert.Equal(t, UserCount{UserID: 2, Count: 1}, stats.TopUsers[1])
}

func TestDetailedStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordError(ctx, 1, "timeout")
	s.RecordError(ctx, 2, "timeout")
	s.RecordError(ctx, 2, "encode_failed")
	s.RecordMetric(ctx, 1, "processing_ms", 1000)
	s.RecordMetric(ctx, 2, "processing_ms", 3000)
	s.RecordMetric(ctx, 1, "output_size_bytes", 100)
	s.RecordMetric(ctx, 2, "output_size_bytes", 300)
	s.RecordKind(ctx, 1, "video")
	s.RecordKind(ctx, 1, "video")
	s.RecordKind(ctx, 2, "document")

	detailed, err := s.DetailedStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), detailed.TotalErrors)
	require.NotEmpty(t, detailed.TopErrors)
	assert.Equal(t, CodeCount{Code: "timeout", Count: 2}, detailed.TopErrors[0])
	assert.InDelta(t, 2000, detailed.AvgProcessingMS, 0.001)
	assert.InDelta(t, 400, detailed.SumOutputBytes, 0.001)
	assert.InDelta(t, 200, detailed.AvgOutputBytes, 0.001)
	require.Len(t, detailed.Kinds, 2)
	assert.Equal(t, CodeCount{Code: "video", Count: 2}, detailed.Kinds[0])
}

func TestEmptyDatabaseStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalUsers)
	assert.Zero(t, stats.TotalConversions)
	assert.Empty(t, stats.TopUsers)

	detailed, err := s.DetailedStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, detailed.TotalErrors)
	assert.Zero(t, detailed.AvgProcessingMS)
}

func TestRecordersSwallowAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Recording into a closed store must not panic or surface an error.
	ctx := context.Background()
	s.RecordConversion(ctx, 1)
	s.RecordError(ctx, 1, "timeout")
	s.RecordMetric(ctx, 1, "processing_ms", 1)
	s.RecordKind(ctx, 1, "video")
	s.RecordStart(ctx, 1)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
