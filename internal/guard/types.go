package guard

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrVetoed is returned by an enforcing guard when a hard check fails.
var ErrVetoed = errors.New("guard veto")

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoStateNorm   VetoType = "state_norm"
	VetoSegmentNorm VetoType = "segment_norm"
	VetoDeltaNorm   VetoType = "delta_norm"
	VetoEnergy      VetoType = "energy"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a failed hard check.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region guard-config
// Config holds bounds for the guard's checks. A zero cap disables its check.
type Config struct {
	MaxStateNorm   float64 // max L2 norm of the whole vector
	MaxSegmentNorm float64 // max L2 norm of any segment
	MaxDeltaNorm   float64 // max L2 norm of the change since the previous pass
	MaxEnergy      float64 // max |energy|
	Segments       int     // number of equal segments the vector is split into
	WarnFraction   float64 // warn when a ratio exceeds this fraction of its cap
	Enforce        bool    // return ErrVetoed instead of only recording the veto
	Logger         zerolog.Logger
}

// DefaultConfig returns the guard defaults.
func DefaultConfig() Config {
	return Config{
		MaxStateNorm:   50.0,
		MaxSegmentNorm: 15.0,
		MaxDeltaNorm:   5.0,
		MaxEnergy:      0,
		Segments:       4,
		WarnFraction:   0.8,
		Logger:         zerolog.Nop(),
	}
}

// #endregion guard-config

// #region metric
// Metric captures a single check result.
type Metric struct {
	Name  string
	Value float64
	Cap   float64
	Pass  bool
}

// Ratio is Value/Cap, or 0 when the check is disabled.
func (m Metric) Ratio() float64 {
	if m.Cap <= 0 {
		return 0
	}
	return m.Value / m.Cap
}

// #endregion metric

// #region decision
// Decision is the output of one evaluation.
type Decision struct {
	Action      string // "pass" | "warn" | "veto"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal
	Metrics     []Metric
}

// #endregion decision
