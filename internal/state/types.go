package state

import (
	"errors"
	"time"
)

// #region extension-keys
// Conventional extension keys shared between cooperating units and the monitor.
const (
	KeyWeights       = "L0"
	KeyRiskMap       = "L1"
	KeyHistory       = "L2"
	KeyWellFormation = "well_formation"
	KeyManifold      = "state_manifold"
	KeyMonitoring    = "monitoring"
	KeyExtWarnings   = "extension_warnings"
)

// #endregion extension-keys

// #region errors
var (
	ErrEmptyVector = errors.New("state vector is empty")
	ErrRiskRange   = errors.New("risk outside [0,1]")
)

// #endregion errors

// #region state
// State is the shared object every perturbation unit reads and rewrites.
// Core fields are typed; Extensions is an open namespace keyed by contributor
// name whose payloads are opaque to the container.
type State struct {
	Vector    []float64
	Energy    float64
	Risk      float64
	Step      int
	Timestamp time.Time
	Metadata  map[string]any

	// Extensions holds per-contributor payloads. Any unit may read any entry.
	Extensions map[string]any
}

// #endregion state

// #region cloner
// Cloner lets an extension payload control its own deep copy.
type Cloner interface {
	Clone() any
}

// #endregion cloner
