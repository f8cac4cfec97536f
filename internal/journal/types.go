package journal

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// #region run-summary
// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID              string        `json:"run_id" yaml:"run_id"`
	Label              string        `json:"label,omitempty" yaml:"label,omitempty"`
	StartedAt          time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed            time.Duration `json:"elapsed" yaml:"elapsed"`
	Outcome            string        `json:"outcome" yaml:"outcome"`
	Steps              int           `json:"steps" yaml:"steps"`
	FinalEnergy        float64       `json:"final_energy" yaml:"final_energy"`
	FinalRisk          float64       `json:"final_risk" yaml:"final_risk"`
	Health             *float64      `json:"health,omitempty" yaml:"health,omitempty"`
	NeedsStabilization bool          `json:"needs_stabilization" yaml:"needs_stabilization"`
	FailedUnit         string        `json:"failed_unit,omitempty" yaml:"failed_unit,omitempty"`
	Error              string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// #endregion run-summary

// #region health-entry
// HealthEntry is one row of the health_log table. Monitor fields are nil
// when the pass's state was not captured.
type HealthEntry struct {
	Step               int      `json:"step" yaml:"step"`
	Energy             float64  `json:"energy" yaml:"energy"`
	Risk               float64  `json:"risk" yaml:"risk"`
	EnergyDelta        float64  `json:"energy_delta" yaml:"energy_delta"`
	VectorDelta        *float64 `json:"vector_delta,omitempty" yaml:"vector_delta,omitempty"`
	Overall            *float64 `json:"overall,omitempty" yaml:"overall,omitempty"`
	Conflicts          *int     `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Errors             *int     `json:"errors,omitempty" yaml:"errors,omitempty"`
	NeedsStabilization *bool    `json:"needs_stabilization,omitempty" yaml:"needs_stabilization,omitempty"`
}

// #endregion health-entry

// #region run-detail
// RunDetail is a run with its per-pass health log.
type RunDetail struct {
	RunSummary `yaml:",inline"`
	HealthLog  []HealthEntry `json:"health_log" yaml:"health_log"`
}

// #endregion run-detail
