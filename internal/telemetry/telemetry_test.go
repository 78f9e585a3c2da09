package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndBound(t *testing.T) {
	sink := New(t.TempDir())
	ctx := context.Background()

	for i := 0; i < maxRecords+10; i++ {
		require.NoError(t, sink.Append(ctx, Record{SessionID: "sess", Timestamp: int64(i)}))
	}

	records, err := sink.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, maxRecords)
	require.Equal(t, int64(10), records[0].Timestamp)
}

func TestEstimateCostSavedIsMeanAcrossPricings(t *testing.T) {
	cost := EstimateCostSaved(1_000_000, 1_000_000)
	require.Greater(t, cost, 0.0)
}

func TestResetClearsLog(t *testing.T) {
	sink := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, Record{SessionID: "sess"}))
	require.NoError(t, sink.Reset(ctx))
	records, err := sink.All(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}
