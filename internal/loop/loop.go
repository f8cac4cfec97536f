package loop

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// #region loop
// Loop repeatedly applies an ordered list of units to a state until the
// per-step energy or vector change drops below the convergence threshold,
// the step budget runs out, or a unit fails.
type Loop struct {
	config Config
	log    zerolog.Logger
}

// NewLoop creates a loop with the given configuration.
func NewLoop(config Config) *Loop {
	return &Loop{
		config: config,
		log:    config.Logger.With().Str("component", "loop").Logger(),
	}
}

// Config returns the loop's configuration.
func (l *Loop) Config() Config {
	return l.config
}

// #endregion loop

// #region run
// Run executes the loop over units, which must already be in execution
// order. The caller's initial state is never mutated.
//
// On a unit failure the run aborts: the remaining units of the pass do not
// run, Final holds the state as of the end of the last completed pass and
// Partial the state handed to the failing unit. A nil initial state aborts
// before the first pass with ErrNoInitialState and no Final.
func (l *Loop) Run(initial *state.State, units []unit.Entry) (res Result) {
	res = Result{
		RunID:     uuid.New().String(),
		Outcome:   OutcomeRunning,
		StartedAt: time.Now().UTC(),
	}
	defer func() { res.Elapsed = time.Since(res.StartedAt) }()

	if initial == nil {
		res.Outcome = OutcomeAborted
		res.Err = ErrNoInitialState
		return res
	}
	if len(units) == 0 {
		l.log.Warn().Str("run_id", res.RunID).Msg("no units registered")
		res.Outcome = OutcomeNoUnits
		res.Err = ErrNoUnits
		res.Final = initial.Copy(true)
		return res
	}

	current := initial.Copy(true)
	if l.config.CaptureTrajectory {
		res.Trajectory = []*state.State{current.Copy(true)}
	}

	l.log.Info().
		Str("run_id", res.RunID).
		Int("units", len(units)).
		Int("max_steps", l.config.MaxSteps).
		Float64("threshold", l.config.ConvergenceThreshold).
		Msg("run started")

	for step := 0; step < l.config.MaxSteps; step++ {
		checkpoint := current.Copy(true)
		prevEnergy := checkpoint.Energy
		prevVector := checkpoint.Vector

		for _, e := range units {
			next, err := l.apply(e, current)
			if err != nil {
				uerr := &UnitError{Unit: e.Name, Step: step, Err: err}
				l.log.Error().
					Str("run_id", res.RunID).
					Str("unit", e.Name).
					Int("step", step).
					Err(err).
					Msg("unit failed, aborting run")
				res.Outcome = OutcomeAborted
				res.FailedUnit = e.Name
				res.Err = uerr
				res.Final = checkpoint
				res.Partial = current
				return res
			}
			current = next
			l.log.Debug().
				Int("step", step).
				Str("unit", e.Name).
				Float64("energy", current.Energy).
				Float64("risk", current.Risk).
				Msg("unit applied")
		}

		current.AdvanceStep(step + 1)
		if l.config.CaptureTrajectory {
			res.Trajectory = append(res.Trajectory, current.Copy(true))
		}

		energyDelta := math.Abs(current.Energy - prevEnergy)
		vectorDelta := euclideanDelta(current.Vector, prevVector)
		res.Steps = append(res.Steps, StepRecord{
			Step:        step + 1,
			Energy:      current.Energy,
			Risk:        current.Risk,
			EnergyDelta: energyDelta,
			VectorDelta: vectorDelta,
		})

		l.log.Debug().
			Int("step", step+1).
			Float64("energy_delta", energyDelta).
			Float64("vector_delta", vectorDelta).
			Float64("energy", current.Energy).
			Float64("risk", current.Risk).
			Msg("pass complete")

		if energyDelta < l.config.ConvergenceThreshold || vectorDelta < l.config.ConvergenceThreshold {
			l.log.Info().Str("run_id", res.RunID).Int("steps", step+1).Msg("converged")
			res.Outcome = OutcomeConverged
			res.Final = current
			return res
		}
	}

	l.log.Warn().Str("run_id", res.RunID).Int("max_steps", l.config.MaxSteps).Msg("step budget exhausted")
	res.Outcome = OutcomeBudgetExhausted
	res.Final = current
	return res
}

// #endregion run

// #region apply
// apply runs one unit, converting panics and nil results into errors.
func (l *Loop) apply(e unit.Entry, s *state.State) (next *state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
	}()
	next, err = e.Unit.Transform(s)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrNilState
	}
	return next, nil
}

// #endregion apply

// #region helpers
// euclideanDelta returns the L2 norm of a - b. Vectors of different length
// are never considered converged.
func euclideanDelta(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// #endregion helpers
