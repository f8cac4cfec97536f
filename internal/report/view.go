package report

import (
	"math"
	"time"

	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region run-view

// RunView is the serializable summary of a run result. Full states are left
// out; the final vector is included for inspection.
type RunView struct {
	RunID              string        `json:"run_id" yaml:"run_id"`
	Label              string        `json:"label,omitempty" yaml:"label,omitempty"`
	Outcome            string        `json:"outcome" yaml:"outcome"`
	Success            bool          `json:"success" yaml:"success"`
	Steps              int           `json:"steps" yaml:"steps"`
	Elapsed            time.Duration `json:"elapsed" yaml:"elapsed"`
	FinalVector        []*float64    `json:"final_vector" yaml:"final_vector"`
	FinalEnergy        *float64      `json:"final_energy" yaml:"final_energy"`
	FinalRisk          *float64      `json:"final_risk" yaml:"final_risk"`
	Health             *float64      `json:"health,omitempty" yaml:"health,omitempty"`
	NeedsStabilization bool          `json:"needs_stabilization" yaml:"needs_stabilization"`
	Conflicts          int           `json:"conflicts" yaml:"conflicts"`
	Recommendations    []string      `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	FailedUnit         string        `json:"failed_unit,omitempty" yaml:"failed_unit,omitempty"`
	Error              string        `json:"error,omitempty" yaml:"error,omitempty"`
	History            []StepView    `json:"history" yaml:"history"`
}

// StepView is one pass of the run. VectorDelta is nil when the vector
// changed dimension during the pass. Any figure that is not finite is nil.
type StepView struct {
	Step        int      `json:"step" yaml:"step"`
	Energy      *float64 `json:"energy" yaml:"energy"`
	Risk        *float64 `json:"risk" yaml:"risk"`
	EnergyDelta *float64 `json:"energy_delta" yaml:"energy_delta"`
	VectorDelta *float64 `json:"vector_delta,omitempty" yaml:"vector_delta,omitempty"`
}

// NewRunView summarizes res. The monitoring report on the final state, if
// any, supplies health and recommendations.
func NewRunView(res loop.Result, label string) RunView {
	v := RunView{
		RunID:      res.RunID,
		Label:      label,
		Outcome:    string(res.Outcome),
		Success:    res.Success(),
		Steps:      res.StepCount(),
		Elapsed:    res.Elapsed,
		FailedUnit: res.FailedUnit,
		History:    make([]StepView, 0, len(res.Steps)),
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	if res.Final != nil {
		v.FinalVector = make([]*float64, len(res.Final.Vector))
		for i, x := range res.Final.Vector {
			v.FinalVector[i] = finite(x)
		}
		v.FinalEnergy = finite(res.Final.Energy)
		v.FinalRisk = finite(res.Final.Risk)
		if r, ok := res.Final.Metadata[state.KeyMonitoring].(monitor.Report); ok {
			v.Health = finite(r.HealthScore)
			v.NeedsStabilization = r.NeedsStabilization
			v.Conflicts = len(r.Conflicts)
			v.Recommendations = r.Recommendations
		}
	}
	for _, s := range res.Steps {
		v.History = append(v.History, StepView{
			Step:        s.Step,
			Energy:      finite(s.Energy),
			Risk:        finite(s.Risk),
			EnergyDelta: finite(s.EnergyDelta),
			VectorDelta: finite(s.VectorDelta),
		})
	}
	return v
}

// finite returns nil for NaN and ±Inf, which JSON cannot carry.
func finite(x float64) *float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return nil
	}
	return &x
}

// #endregion run-view
