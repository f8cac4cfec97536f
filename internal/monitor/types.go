package monitor

import (
	"time"

	"github.com/rs/zerolog"
)

// #region conflict-kind
// ConflictKind classifies a disagreement between two contributors.
type ConflictKind string

const (
	ConflictValueMismatch  ConflictKind = "value_mismatch"
	ConflictTypeMismatch   ConflictKind = "type_mismatch"
	ConflictRangeViolation ConflictKind = "range_violation"
	ConflictLogic          ConflictKind = "logic_conflict"
)

// #endregion conflict-kind

// #region severity
// Severity ranks conflicts and errors.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Serious reports whether s is HIGH or CRITICAL.
func (s Severity) Serious() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// #endregion severity

// #region mode
// Mode selects how much detail a report carries.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeResearch   Mode = "research"
)

// #endregion mode

// #region records
// Conflict records a disagreement between two contributors' payloads.
type Conflict struct {
	Kind        ConflictKind `json:"kind" yaml:"kind"`
	UnitA       string       `json:"unit_a" yaml:"unit_a"`
	UnitB       string       `json:"unit_b" yaml:"unit_b"`
	Description string       `json:"description" yaml:"description"`
	Severity    Severity     `json:"severity" yaml:"severity"`
	Timestamp   time.Time    `json:"timestamp" yaml:"timestamp"`
}

// ErrorRecord is an error or warning reported by (or about) a contributor.
type ErrorRecord struct {
	Unit      string         `json:"unit" yaml:"unit"`
	Kind      string         `json:"kind" yaml:"kind"`
	Message   string         `json:"message" yaml:"message"`
	Severity  Severity       `json:"severity" yaml:"severity"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Context   map[string]any `json:"-" yaml:"-"`
}

// SystemHealth summarizes stability across examined contributors.
// Counts are cumulative since the last Reset.
type SystemHealth struct {
	Overall       float64            `json:"overall" yaml:"overall"`
	PerUnit       map[string]float64 `json:"per_unit" yaml:"per_unit"`
	ConflictCount int                `json:"conflict_count" yaml:"conflict_count"`
	ErrorCount    int                `json:"error_count" yaml:"error_count"`
	WarningCount  int                `json:"warning_count" yaml:"warning_count"`
	Timestamp     time.Time          `json:"timestamp" yaml:"timestamp"`
}

// #endregion records

// #region stats
// Stats holds cumulative counters since the last Reset.
type Stats struct {
	TotalConflicts int                  `json:"total_conflicts" yaml:"total_conflicts"`
	TotalErrors    int                  `json:"total_errors" yaml:"total_errors"`
	TotalWarnings  int                  `json:"total_warnings" yaml:"total_warnings"`
	ConflictKinds  map[ConflictKind]int `json:"conflict_kinds" yaml:"conflict_kinds"`
	ErrorKinds     map[string]int       `json:"error_kinds" yaml:"error_kinds"`
}

func newStats() Stats {
	return Stats{
		ConflictKinds: map[ConflictKind]int{},
		ErrorKinds:    map[string]int{},
	}
}

func (s Stats) clone() Stats {
	out := Stats{
		TotalConflicts: s.TotalConflicts,
		TotalErrors:    s.TotalErrors,
		TotalWarnings:  s.TotalWarnings,
		ConflictKinds:  make(map[ConflictKind]int, len(s.ConflictKinds)),
		ErrorKinds:     make(map[string]int, len(s.ErrorKinds)),
	}
	for k, v := range s.ConflictKinds {
		out.ConflictKinds[k] = v
	}
	for k, v := range s.ErrorKinds {
		out.ErrorKinds[k] = v
	}
	return out
}

// #endregion stats

// #region report
// Report is the result of one monitoring call.
type Report struct {
	HasError           bool           `json:"has_error" yaml:"has_error"`
	HasConflict        bool           `json:"has_conflict" yaml:"has_conflict"`
	Conflicts          []Conflict     `json:"conflicts" yaml:"conflicts"`
	Errors             []ErrorRecord  `json:"errors" yaml:"errors"`
	Warnings           []ErrorRecord  `json:"warnings" yaml:"warnings"`
	HealthScore        float64        `json:"health_score" yaml:"health_score"`
	Health             SystemHealth   `json:"health" yaml:"health"`
	Recommendations    []string       `json:"recommendations" yaml:"recommendations"`
	NeedsStabilization bool           `json:"needs_stabilization" yaml:"needs_stabilization"`
	Stats              *Stats         `json:"stats,omitempty" yaml:"stats,omitempty"`
	HealthHistory      []SystemHealth `json:"health_history,omitempty" yaml:"health_history,omitempty"`
}

// #endregion report

// #region config
// DefaultScaleFloor keeps relative differences between near-zero values small.
const DefaultScaleFloor = 1e-6

// Config holds monitor thresholds and the set of extension entries it watches.
type Config struct {
	Mode              Mode
	ConflictThreshold float64 // relative difference above which values conflict

	// ScaleFloor is the lower bound of the relative-difference denominator.
	// The default only keeps values near zero from comparing as fully
	// different. Set it to 1.0 to measure values below one on an absolute
	// scale.
	ScaleFloor float64
	Priority   int

	// WatchKeys names the extension entries examined each pass, in pair order.
	WatchKeys []string
	// SelectionKey, when set, must name a present, non-empty entry.
	SelectionKey string

	ErrorMarker   string
	WarningMarker string

	// CollectAllFieldConflicts reports every field-level conflict in a pair
	// instead of only the first one found.
	CollectAllFieldConflicts bool

	HistoryLimit int
	Logger       zerolog.Logger
}

// DefaultConfig returns the defaults used when the monitor is auto-registered.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeProduction,
		ConflictThreshold: 0.5,
		ScaleFloor:        DefaultScaleFloor,
		Priority:          100,
		WatchKeys:         []string{"L0", "L1", "L2", "guard"},
		ErrorMarker:       "error",
		WarningMarker:     "warning",
		HistoryLimit:      100,
		Logger:            zerolog.Nop(),
	}
}

// #endregion config

// #region constants
const (
	highSeverityDiff   = 0.8
	researchHistoryLen = 10
	lowHealth          = 0.5
)

// #endregion constants
