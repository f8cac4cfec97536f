package loop

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region errors
var (
	ErrNoUnits        = errors.New("no units registered")
	ErrNoInitialState = errors.New("initial state is required")
	ErrNilState       = errors.New("unit returned nil state")
	ErrUnitPanic      = errors.New("unit panicked")
)

// UnitError records which unit aborted a run and at which step.
type UnitError struct {
	Unit string
	Step int
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q failed at step %d: %v", e.Unit, e.Step, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// #endregion errors

// #region outcome
// Outcome is the terminal status of a run.
type Outcome string

const (
	OutcomeRunning         Outcome = "running"
	OutcomeConverged       Outcome = "converged"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	OutcomeAborted         Outcome = "aborted"
	OutcomeNoUnits         Outcome = "no_units"
)

// Terminal reports whether o ends a run.
func (o Outcome) Terminal() bool {
	return o != OutcomeRunning
}

// #endregion outcome

// #region config
// Config holds the loop's run parameters.
type Config struct {
	MaxSteps             int
	ConvergenceThreshold float64
	CaptureTrajectory    bool
	Logger               zerolog.Logger
}

// DefaultConfig returns a 100-step budget with a 1e-4 convergence threshold.
func DefaultConfig() Config {
	return Config{
		MaxSteps:             100,
		ConvergenceThreshold: 1e-4,
		CaptureTrajectory:    false,
		Logger:               zerolog.Nop(),
	}
}

// #endregion config

// #region step-record
// StepRecord captures per-pass convergence telemetry.
type StepRecord struct {
	Step        int     `json:"step" yaml:"step"`
	Energy      float64 `json:"energy" yaml:"energy"`
	Risk        float64 `json:"risk" yaml:"risk"`
	EnergyDelta float64 `json:"energy_delta" yaml:"energy_delta"`
	VectorDelta float64 `json:"vector_delta" yaml:"vector_delta"`
}

// #endregion step-record

// #region result
// Result bundles everything returned by Run.
type Result struct {
	RunID      string
	Outcome    Outcome
	Final      *state.State
	Partial    *state.State   // state handed to the failing unit, set only on abort
	Trajectory []*state.State // nil unless trajectory capture was requested
	Steps      []StepRecord
	FailedUnit string
	Err        error
	StartedAt  time.Time
	Elapsed    time.Duration
}

// Success reports whether the run completed all its passes without a unit
// failure and had units to run.
func (r Result) Success() bool {
	return r.Outcome == OutcomeConverged || r.Outcome == OutcomeBudgetExhausted
}

// StepCount returns the number of completed passes.
func (r Result) StepCount() int {
	return len(r.Steps)
}

// #endregion result
