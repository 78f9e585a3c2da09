// Package telemetry implements the Telemetry Sink (spec §4.10): a
// local-only, network-free append log of per-run aggregate counters,
// bounded to the most recent 1000 records. It is grounded on
// internal/storage.Storage for its atomic-write guarantee, reused the
// same way internal/session does, since a telemetry log is just another
// JSON document on disk.
package telemetry

import (
	"context"
	"fmt"

	"github.com/cadenroberts/OllamaBot-sub010/internal/storage"
)

// maxRecords bounds the sink per spec §4.10.
const maxRecords = 1000

// Record is one completed run's aggregate counters.
type Record struct {
	SessionID          string  `json:"session_id"`
	Timestamp          int64   `json:"timestamp"`
	PlatformOrigin     string  `json:"platform_origin"`
	Success            bool    `json:"success"`
	PeakMemoryGB       float64 `json:"peak_memory_gb"`
	TotalTokens        int     `json:"total_tokens"`
	DiskWrittenMB      float64 `json:"disk_written_mb"`
	DurationSeconds    float64 `json:"duration_seconds"`
	EstimatedCostSaved float64 `json:"estimated_cost_saved"`
}

// pricing is one reference commercial API's per-million-token rates in
// USD, used only to estimate the cost avoided by running locally —
// never to make a network call.
type pricing struct {
	name         string
	pricePerMIn  float64
	pricePerMOut float64
}

// referencePricings are illustrative reference rates for the cost-saved
// estimate spec §4.10 asks for: the mean across three commercial
// hosted-model price points.
var referencePricings = []pricing{
	{name: "reference-a", pricePerMIn: 3.00, pricePerMOut: 15.00},
	{name: "reference-b", pricePerMIn: 2.50, pricePerMOut: 10.00},
	{name: "reference-c", pricePerMIn: 1.00, pricePerMOut: 5.00},
}

// EstimateCostSaved computes the mean, across referencePricings, of
// (inputTokens*priceIn + outputTokens*priceOut)/1e6, per spec §4.10.
func EstimateCostSaved(inputTokens, outputTokens int) float64 {
	var sum float64
	for _, p := range referencePricings {
		sum += (float64(inputTokens)*p.pricePerMIn + float64(outputTokens)*p.pricePerMOut) / 1e6
	}
	return sum / float64(len(referencePricings))
}

// Sink is the append-only, size-bounded telemetry log.
type Sink struct {
	backend *storage.Storage
}

// New builds a Sink rooted at basePath.
func New(basePath string) *Sink {
	return &Sink{backend: storage.New(basePath)}
}

const logKey = "stats"

// Append adds rec to the log, trimming to the most recent maxRecords
// entries.
func (s *Sink) Append(ctx context.Context, rec Record) error {
	var records []Record
	_ = s.backend.Get(ctx, []string{logKey}, &records)

	records = append(records, rec)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := s.backend.Put(ctx, []string{logKey}, records); err != nil {
		return fmt.Errorf("telemetry: append record: %w", err)
	}
	return nil
}

// All returns every currently retained record, oldest first.
func (s *Sink) All(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := s.backend.Get(ctx, []string{logKey}, &records); err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

// Reset clears the telemetry log (used by `stats --reset`).
func (s *Sink) Reset(ctx context.Context) error {
	return s.backend.Delete(ctx, []string{logKey})
}
