package adapters

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// #region fakes
type failingIntegrator struct{}

func (failingIntegrator) Integrate([]float64, [][]float64, []float64) (engines.DynamicsResult, error) {
	return engines.DynamicsResult{}, errors.New("diverged")
}

type failingGenerator struct{}

func (failingGenerator) GenerateWeights([][]float64) (engines.WeightResult, error) {
	return engines.WeightResult{}, errors.New("bad episodes")
}

type failingRecorder struct{}

func (failingRecorder) Record(engines.Fragment) (map[string]any, error) {
	return nil, errors.New("offline")
}

var nop = zerolog.Nop()

// #endregion fakes

// #region weight-tests
func TestWeightAdapterFormsL0(t *testing.T) {
	a := NewWeightAdapter(engines.NewHebbian(engines.DefaultHebbianConfig()), nop)
	s := state.New([]float64{0, 0})
	s.SetExtension(state.KeyWellFormation, map[string]any{
		"episodes": []any{[]any{1.0, 1.0}, []any{1.0, 1.0}},
	})

	out, err := a.Transform(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w := out.L0Weights(); len(w) != 2 || w[0][1] <= 0 {
		t.Fatalf("expected formed weights, got %v", w)
	}
	if out.L0Converged() {
		t.Fatal("fresh L0 should not be converged")
	}

	// Second pass leaves existing weights alone.
	before := out.L0Weights()
	out, _ = a.Transform(out)
	if &out.L0Weights()[0][0] != &before[0][0] {
		t.Fatal("existing weights should be kept")
	}
	if a.Snapshot()["calls"] != 1 {
		t.Fatalf("expected one generator call, got %v", a.Snapshot()["calls"])
	}
}

func TestWeightAdapterSkipsWithoutEpisodes(t *testing.T) {
	a := NewWeightAdapter(failingGenerator{}, nop)
	s := state.New([]float64{0})
	if _, err := a.Transform(s); err != nil {
		t.Fatalf("no episodes should be a no-op, got %v", err)
	}
	if _, ok := s.Extensions[state.KeyWeights]; ok {
		t.Fatal("L0 should not be created")
	}
}

func TestWeightAdapterPropagatesErrors(t *testing.T) {
	a := NewWeightAdapter(failingGenerator{}, nop)
	s := state.New([]float64{0})
	s.SetExtension(state.KeyWellFormation, map[string]any{"episodes": [][]float64{{1}}})
	if _, err := a.Transform(s); err == nil {
		t.Fatal("generator failure should propagate")
	}
}

// #endregion weight-tests

// #region manifold-tests
func TestManifoldAdapterFormsL1(t *testing.T) {
	a := NewManifoldAdapter(engines.NewManifold(engines.DefaultManifoldConfig()), nop)
	s := state.New([]float64{0})
	s.SetExtension(state.KeyManifold, map[string]any{
		"search_biases": map[string]any{
			"economic": map[string]any{"drought": 0.8},
			"social":   map[string]any{"drought": 0.8},
			"broken":   "not a map",
		},
	})

	out, err := a.Transform(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := out.RiskMap(); r["drought"] <= 0.8 {
		t.Fatalf("expected amplified drought risk, got %v", r)
	}
	if d := out.ManifoldDimensions(); len(d) != 2 {
		t.Fatalf("expected 2 dimensions, got %v", d)
	}
}

// #endregion manifold-tests

// #region dynamics-tests
func TestDynamicsAdapterRunsUnderL0(t *testing.T) {
	a := NewDynamicsAdapter(engines.NewHopfield(engines.DefaultHopfieldConfig()), nop)
	s := state.New([]float64{0.5, -0.5})
	s.SetExtension(state.KeyWeights, map[string]any{
		"weights":   [][]float64{{0, 0.2}, {0.2, 0}},
		"bias":      []float64{0, 0},
		"converged": false,
	})

	out, err := a.Transform(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Vector[0] == 0.5 {
		t.Fatal("vector should move")
	}
	if out.Energy != a.Energy(out) {
		t.Fatalf("recorded energy %f should match evaluated %f", out.Energy, a.Energy(out))
	}
	if !out.L0Converged() {
		t.Fatal("stand-in should converge within its budget")
	}
}

func TestDynamicsAdapterSwallowsFailures(t *testing.T) {
	a := NewDynamicsAdapter(failingIntegrator{}, nop)
	s := state.New([]float64{0.5})
	s.Energy = 2
	s.SetExtension(state.KeyWeights, map[string]any{"weights": [][]float64{{0}}, "bias": []float64{0}})

	out, err := a.Transform(s)
	if err != nil || out != s {
		t.Fatalf("failure should keep the state, got %v", err)
	}
	if out.Vector[0] != 0.5 || out.Energy != 2 {
		t.Fatal("state should be unchanged")
	}
	if a.Snapshot()["failures"] != 1 {
		t.Fatalf("expected one failure, got %v", a.Snapshot())
	}
	a.Reset()
	if a.Snapshot()["failures"] != 0 {
		t.Fatal("reset should clear counters")
	}
}

func TestDynamicsAdapterIdleWithoutL0(t *testing.T) {
	a := NewDynamicsAdapter(failingIntegrator{}, nop)
	s := state.New([]float64{0.5})
	if _, err := a.Transform(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Snapshot()["runs"] != 0 {
		t.Fatal("should not integrate without L0")
	}
}

// #endregion dynamics-tests

// #region history-tests
func TestHistoryAdapterAppendsLinks(t *testing.T) {
	a := NewHistoryAdapter(engines.NewRecorder(), "", nop)
	s := state.New([]float64{0})
	s.SetExtension(state.KeyHistory, map[string]any{"storyline": []any{"origin"}})

	for step := 1; step <= 3; step++ {
		s.AdvanceStep(step)
		if _, err := a.Transform(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	links := s.CausalLinks()
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	last, _ := links[2].(map[string]any)
	if last["cause_step"] != 2 || last["source"] != "statecore" {
		t.Fatalf("unexpected link: %v", last)
	}
	if sl := s.Storyline(); len(sl) != 1 || sl[0] != "origin" {
		t.Fatalf("storyline should be preserved, got %v", sl)
	}
}

func TestHistoryAdapterSwallowsFailures(t *testing.T) {
	a := NewHistoryAdapter(failingRecorder{}, "test", nop)
	s := state.New([]float64{0})
	out, err := a.Transform(s)
	if err != nil || out != s {
		t.Fatalf("failure should keep the state, got %v", err)
	}
	if _, ok := s.Extensions[state.KeyHistory]; ok {
		t.Fatal("L2 should not be written on failure")
	}
}

// #endregion history-tests

func TestAdaptersExposeCapabilities(t *testing.T) {
	units := []unit.Unit{
		NewWeightAdapter(failingGenerator{}, nop),
		NewManifoldAdapter(engines.NewManifold(engines.DefaultManifoldConfig()), nop),
		NewDynamicsAdapter(failingIntegrator{}, nop),
		NewHistoryAdapter(failingRecorder{}, "", nop),
	}
	for _, u := range units {
		c := unit.Describe(u)
		if !c.Energy || !c.Snapshot || !c.Reset {
			t.Fatalf("%T should expose every capability, got %+v", u, c)
		}
	}
}
