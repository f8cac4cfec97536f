package engines

import (
	"errors"
	"time"
)

// #region errors
var (
	ErrNoEpisodes     = errors.New("no episodes")
	ErrRaggedEpisodes = errors.New("episodes differ in length")
	ErrNoBiases       = errors.New("no search biases")
	ErrDimension      = errors.New("dimension mismatch")
	ErrUnknownPref    = errors.New("unknown engine preference")
	ErrUnknownRole    = errors.New("unknown engine role")
	ErrNoRemoteAddr   = errors.New("remote preference without remote address")
	ErrNoDialer       = errors.New("remote preference without dialer")
	ErrUnreachable    = errors.New("remote engine unreachable")
)

// #endregion errors

// #region roles
// Role names one of the four collaborating engines.
type Role string

const (
	RoleWeights  Role = "weights"
	RoleManifold Role = "manifold"
	RoleDynamics Role = "dynamics"
	RoleHistory  Role = "history"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleWeights, RoleManifold, RoleDynamics, RoleHistory}

// Preference selects the implementation requested for a role.
type Preference string

const (
	PrefStandin Preference = "standin"
	PrefRemote  Preference = "remote"
)

// #endregion roles

// #region weights
// WeightResult is the output of weight generation.
type WeightResult struct {
	Weights  [][]float64
	Bias     []float64
	Analysis map[string]any
}

// WeightGenerator turns episodes into a weight matrix and bias vector.
type WeightGenerator interface {
	GenerateWeights(episodes [][]float64) (WeightResult, error)
}

// #endregion weights

// #region manifold
// ManifoldResult is the merged risk landscape over all dimensions.
type ManifoldResult struct {
	RiskMap            map[string]float64
	Dimensions         map[string]any
	OrganicConnections []any
	CollapseZones      []any
}

// ManifoldBuilder merges per-dimension condition risks into one risk map.
// biases maps dimension → condition → risk.
type ManifoldBuilder interface {
	BuildStateSpace(biases map[string]map[string]float64) (ManifoldResult, error)
}

// #endregion manifold

// #region dynamics
// DynamicsResult is an integrated trajectory. The last point is the new vector.
type DynamicsResult struct {
	Trajectory [][]float64
	Energy     float64
	Converged  bool
}

// DynamicsIntegrator runs the vector forward under weights w and bias b.
type DynamicsIntegrator interface {
	Integrate(x0 []float64, w [][]float64, b []float64) (DynamicsResult, error)
}

// #endregion dynamics

// #region history
// Fragment is one recorded observation of the state.
type Fragment struct {
	Step      int
	Energy    float64
	Risk      float64
	Timestamp time.Time
	Source    string
	Content   string
}

// HistoryRecorder turns fragments into causal link entries.
type HistoryRecorder interface {
	Record(f Fragment) (map[string]any, error)
}

// #endregion history

// #region remote
// Remote is an out-of-process engine serving every role.
type Remote interface {
	WeightGenerator
	ManifoldBuilder
	DynamicsIntegrator
	HistoryRecorder
	Addr() string
	Close() error
}

// Dialer connects to a remote engine at addr. It must fail when the engine
// cannot be reached.
type Dialer func(addr string) (Remote, error)

// #endregion remote
