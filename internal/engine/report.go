package engine

import (
	"time"

	"github.com/law-makers/pricewatch/pkg/models"
)

// PassReport summarizes one crawl pass
type PassReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Pairs      int               `json:"pairs"`
	Successes  int               `json:"successes"`
	Failures   int               `json:"failures"`
	ByReason   map[ErrorCode]int `json:"by_reason,omitempty"`
	Cancelled  bool              `json:"cancelled,omitempty"`
}

// NewPassReport counts outcomes by result and failure reason
func NewPassReport(runID string, started, finished time.Time, outcomes []models.CrawlOutcome) PassReport {
	r := PassReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Pairs:      len(outcomes),
		ByReason:   make(map[ErrorCode]int),
	}
	for _, o := range outcomes {
		if o.OK() {
			r.Successes++
			continue
		}
		r.Failures++
		if o.Failure != nil {
			r.ByReason[ErrorCode(o.Failure.Reason)]++
		}
	}
	return r
}

// Duration returns how long the pass ran
func (r PassReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
