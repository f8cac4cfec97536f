package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/journal"
	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// #region helpers
func sampleResult(steps int) loop.Result {
	final := state.New([]float64{0.1, 0.2})
	final.Energy = -0.5
	final.Risk = 0.3
	final.Metadata[state.KeyMonitoring] = monitor.Report{
		HealthScore:        0.4,
		NeedsStabilization: true,
		Conflicts:          []monitor.Conflict{{Kind: monitor.ConflictValueMismatch, UnitA: "L0", UnitB: "L1"}},
		Recommendations:    []string{"resolve conflicts between L0 and L1"},
	}
	res := loop.Result{
		RunID:   "0123456789abcdef",
		Outcome: loop.OutcomeBudgetExhausted,
		Final:   final,
		Elapsed: 3 * time.Millisecond,
	}
	for i := 1; i <= steps; i++ {
		res.Steps = append(res.Steps, loop.StepRecord{Step: i, Energy: -0.5, EnergyDelta: 0.01, VectorDelta: 0.02})
	}
	return res
}

// #endregion helpers

// #region format-tests
func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestWriteDispatch(t *testing.T) {
	v := map[string]int{"steps": 3}
	calls := 0
	table := func(w io.Writer) error {
		calls++
		_, err := io.WriteString(w, "table\n")
		return err
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, v, table); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"steps": 3`) {
		t.Fatalf("unexpected json: %s", buf.String())
	}

	buf.Reset()
	if err := Write(&buf, FormatYAML, v, table); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "steps: 3" {
		t.Fatalf("unexpected yaml: %q", buf.String())
	}
	if calls != 0 {
		t.Fatal("table renderer should not run for structured formats")
	}

	buf.Reset()
	if err := Write(&buf, FormatTable, v, table); err != nil {
		t.Fatalf("table: %v", err)
	}
	if calls != 1 || buf.String() != "table\n" {
		t.Fatalf("expected table renderer output, got %q", buf.String())
	}
}

// #endregion format-tests

// #region view-tests
func TestNewRunView(t *testing.T) {
	res := sampleResult(2)
	res.Steps[0].VectorDelta = math.Inf(1)
	res.Err = errors.New("late failure")

	v := NewRunView(res, "demo")
	if v.Outcome != "budget_exhausted" || !v.Success || v.Steps != 2 {
		t.Fatalf("unexpected summary: %+v", v)
	}
	if v.Health == nil || *v.Health != 0.4 || !v.NeedsStabilization || v.Conflicts != 1 {
		t.Fatalf("monitor fields not carried: %+v", v)
	}
	if v.History[0].VectorDelta != nil || v.History[1].VectorDelta == nil {
		t.Fatal("only finite vector deltas should be kept")
	}
	if v.Error != "late failure" {
		t.Fatalf("expected error text, got %q", v.Error)
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, v, nil); err != nil {
		t.Fatalf("json with infinite delta: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back["label"] != "demo" {
		t.Fatalf("expected label in json, got %v", back["label"])
	}
}

func TestNewRunViewDivergingEnergy(t *testing.T) {
	diverge := unit.Func(func(s *state.State) (*state.State, error) {
		s.Energy = math.Inf(1)
		for i := range s.Vector {
			s.Vector[i] *= 2
		}
		return s, nil
	})
	l := loop.NewLoop(loop.Config{MaxSteps: 2, ConvergenceThreshold: 1e-9, Logger: zerolog.Nop()})
	res := l.Run(state.New([]float64{1, 2}), []unit.Entry{{Name: "diverge", Unit: diverge, Priority: 1}})
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(res.Steps))
	}

	v := NewRunView(res, "")
	if v.FinalEnergy != nil {
		t.Fatalf("infinite final energy should be nil, got %v", *v.FinalEnergy)
	}
	for _, s := range v.History {
		if s.Energy != nil || s.EnergyDelta != nil {
			t.Fatalf("pass %d kept a non-finite energy figure", s.Step)
		}
		if s.Risk == nil || s.VectorDelta == nil {
			t.Fatalf("pass %d lost a finite figure", s.Step)
		}
	}
	if len(v.FinalVector) != 2 || v.FinalVector[1] == nil || *v.FinalVector[1] != 8 {
		t.Fatalf("unexpected final vector: %v", v.FinalVector)
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, v, nil); err != nil {
		t.Fatalf("json with diverged energy: %v", err)
	}
	if !strings.Contains(buf.String(), `"final_energy": null`) {
		t.Fatalf("expected null final energy in:\n%s", buf.String())
	}
	buf.Reset()
	if err := RunTable(&buf, v); err != nil {
		t.Fatalf("table: %v", err)
	}
}

func TestNewRunViewWithoutFinal(t *testing.T) {
	v := NewRunView(loop.Result{Outcome: loop.OutcomeNoUnits}, "")
	if v.Health != nil || v.FinalVector != nil || v.Success {
		t.Fatalf("expected empty view, got %+v", v)
	}
	if v.History == nil {
		t.Fatal("history should encode as an empty list")
	}
}

// #endregion view-tests

// #region table-tests
func TestRunTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RunTable(&buf, NewRunView(sampleResult(3), "demo")); err != nil {
		t.Fatalf("RunTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run 0123456789abcdef (demo)", "budget_exhausted", "0.40", "resolve conflicts", "STEP", "ΔVECTOR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "earlier passes") {
		t.Fatal("short runs should not be truncated")
	}
}

func TestRunTableTruncatesLongHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := RunTable(&buf, NewRunView(sampleResult(25), "")); err != nil {
		t.Fatalf("RunTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "15 earlier passes") {
		t.Fatalf("expected truncation notice in:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "25") {
		t.Fatalf("expected last row to be pass 25, got %q", last)
	}
}

func TestRunsTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RunsTable(&buf, nil); err != nil {
		t.Fatalf("RunsTable: %v", err)
	}
	if !strings.Contains(buf.String(), "no runs recorded") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}

	h := 0.9
	buf.Reset()
	runs := []journal.RunSummary{
		{RunID: "aaaaaaaa-1111", Outcome: "converged", Steps: 4, Health: &h, Label: "first"},
		{RunID: "bbbbbbbb-2222", Outcome: "aborted", Steps: 1},
	}
	if err := RunsTable(&buf, runs); err != nil {
		t.Fatalf("RunsTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"aaaaaaaa", "bbbbbbbb", "converged", "aborted", "0.90", "first"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "1111") {
		t.Fatal("run IDs should be shortened")
	}
}

func TestRunDetailTable(t *testing.T) {
	overall, n, stab := 0.75, 2, true
	d := journal.RunDetail{
		RunSummary: journal.RunSummary{RunID: "run-1", Outcome: "aborted", FailedUnit: "fault", Error: "boom"},
		HealthLog: []journal.HealthEntry{
			{Step: 1, Energy: 1},
			{Step: 2, Energy: 0.5, Overall: &overall, Conflicts: &n, Errors: &n, NeedsStabilization: &stab},
		},
	}
	var buf bytes.Buffer
	if err := RunDetailTable(&buf, d); err != nil {
		t.Fatalf("RunDetailTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run run-1", "fault", "boom", "CONFLICTS", "0.75", "yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestResolutionTable(t *testing.T) {
	choices := []engines.Choice{
		{Role: engines.RoleWeights, Impl: "standin:hebbian", Reason: "default"},
		{Role: engines.RoleDynamics, Impl: "remote:localhost:7070", Reason: "preferred"},
	}
	var buf bytes.Buffer
	if err := ResolutionTable(&buf, choices); err != nil {
		t.Fatalf("ResolutionTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "standin:hebbian") || !strings.Contains(out, "remote:localhost:7070") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := Write(&buf, FormatYAML, choices, nil); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var back []map[string]string
	if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back[1]["impl"] != "remote:localhost:7070" {
		t.Fatalf("unexpected yaml: %v", back)
	}
}

// #endregion table-tests
