package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/state"
)

// #region mock
type mockEngineService struct {
	responses map[string]map[string]any
	err       error
	transient int // calls that fail with Unavailable before succeeding
	calls     int

	lastMethod  string
	lastRequest map[string]any
	hadDeadline bool
}

func (m *mockEngineService) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.calls++
	m.lastMethod = method
	m.lastRequest = args.(*structpb.Struct).AsMap()
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return m.err
	}
	if m.transient > 0 {
		m.transient--
		return status.Error(codes.Unavailable, "engine warming up")
	}
	resp, err := structpb.NewStruct(m.responses[strings.TrimPrefix(method, ServicePath)])
	if err != nil {
		return err
	}
	proto.Merge(reply.(proto.Message), resp)
	return nil
}

func newTestClient(m *mockEngineService) *Client {
	return NewClientWithInvoker(m, "engine:7000", time.Second)
}

// #endregion mock

// #region constructor-tests
func TestNewClientLazyConnect(t *testing.T) {
	client, err := NewClient("localhost:0", time.Second)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
	if client.Addr() != "localhost:0" {
		t.Fatalf("unexpected addr %q", client.Addr())
	}
}

func TestDialProbeFailsOnUnreachable(t *testing.T) {
	_, err := Dial("127.0.0.1:1", time.Second, 2*time.Second)
	if !errors.Is(err, engines.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

// #endregion constructor-tests

// #region engine-tests
func TestGenerateWeights(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"GenerateWeights": {
			"weights":  []any{[]any{0.0, 0.4}, []any{0.4, 0.0}},
			"bias":     []any{0.1, 0.2},
			"analysis": map[string]any{"episodes": 2},
		},
	}}
	res, err := newTestClient(m).GenerateWeights([][]float64{{1, 1}, {1, -1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.lastMethod != ServicePath+"GenerateWeights" {
		t.Fatalf("unexpected method %q", m.lastMethod)
	}
	eps, _ := state.Matrix(m.lastRequest["episodes"])
	if len(eps) != 2 || eps[1][1] != -1 {
		t.Fatalf("episodes not encoded: %v", m.lastRequest)
	}
	if res.Weights[0][1] != 0.4 || res.Bias[1] != 0.2 || res.Analysis["episodes"] != float64(2) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !m.hadDeadline {
		t.Fatal("calls should carry the configured timeout")
	}
}

func TestGenerateWeightsMalformed(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"GenerateWeights": {"weights": "nope"},
	}}
	if _, err := newTestClient(m).GenerateWeights([][]float64{{1}}); !errors.Is(err, errMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestBuildStateSpace(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"BuildStateSpace": {
			"risk_map":       map[string]any{"drought": 0.9},
			"collapse_zones": []any{"drought"},
		},
	}}
	res, err := newTestClient(m).BuildStateSpace(map[string]map[string]float64{"a": {"drought": 0.9}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RiskMap["drought"] != 0.9 || len(res.CollapseZones) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestIntegrateInfersConvergence(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"Integrate": {
			"trajectory": []any{[]any{1.0}, []any{0.5}},
			"energy":     -0.25,
		},
	}}
	res, err := newTestClient(m).Integrate([]float64{1}, [][]float64{{0}}, []float64{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged || res.Energy != -0.25 || len(res.Trajectory) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	m.responses["Integrate"]["converged"] = false
	res, _ = newTestClient(m).Integrate([]float64{1}, [][]float64{{0}}, []float64{0})
	if res.Converged {
		t.Fatal("explicit flag should win")
	}
}

func TestRecord(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"Record": {"link": map[string]any{"step": 4}},
	}}
	link, err := newTestClient(m).Record(engines.Fragment{Step: 4, Timestamp: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link["step"] != float64(4) {
		t.Fatalf("unexpected link: %v", link)
	}
	if m.lastRequest["timestamp"] != "1970-01-01T00:00:00Z" {
		t.Fatalf("timestamp not encoded: %v", m.lastRequest["timestamp"])
	}
}

func TestRPCErrorWrapped(t *testing.T) {
	m := &mockEngineService{err: errors.New("unavailable")}
	_, err := newTestClient(m).Integrate([]float64{1}, [][]float64{{0}}, []float64{0})
	if err == nil || !strings.Contains(err.Error(), "Integrate rpc") {
		t.Fatalf("expected wrapped rpc error, got %v", err)
	}
}

func TestTransientUnavailableRetried(t *testing.T) {
	retryBackoff = time.Millisecond
	m := &mockEngineService{transient: 2, responses: map[string]map[string]any{
		"Record": {"link": map[string]any{"cause_step": 1}},
	}}
	if _, err := newTestClient(m).Record(engines.Fragment{Step: 2}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if m.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", m.calls)
	}
}

func TestRetriesExhausted(t *testing.T) {
	retryBackoff = time.Millisecond
	m := &mockEngineService{transient: 5}
	_, err := newTestClient(m).Record(engines.Fragment{Step: 2})
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Fatalf("expected wrapped Unavailable, got %v", err)
	}
	if m.calls != maxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", maxRetries+1, m.calls)
	}
}

func TestEngineErrorsNotRetried(t *testing.T) {
	m := &mockEngineService{err: status.Error(codes.InvalidArgument, "ragged episodes")}
	if _, err := newTestClient(m).GenerateWeights([][]float64{{1}}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", m.calls)
	}
}

// #endregion engine-tests

// #region unit-tests
func TestUnitPerturbMergesResponse(t *testing.T) {
	m := &mockEngineService{responses: map[string]map[string]any{
		"Perturb": {
			"vector": []any{0.2, 0.3},
			"energy": -1.5,
			"output": map[string]any{"value": 0.7},
		},
	}}
	u := NewUnit(newTestClient(m), UnitConfig{InputKey: "L1", OutputKey: "remote"}, zerolog.Nop())
	s := state.New([]float64{1, 1})
	s.Risk = 0.4
	s.SetExtension("L1", map[string]any{"risk_map": map[string]float64{"c": 0.5}})

	out, err := u.Transform(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Vector[1] != 0.3 || out.Energy != -1.5 || out.Risk != 0.4 {
		t.Fatalf("unexpected state: %+v", out)
	}
	payload, _ := out.ExtensionMap("remote")
	if payload["value"] != 0.7 {
		t.Fatalf("output not stored: %v", out.Extensions)
	}
	input, _ := m.lastRequest["input"].(map[string]any)
	if input == nil || m.lastRequest["request_id"] == "" {
		t.Fatalf("request missing input or id: %v", m.lastRequest)
	}
	if u.Snapshot()["calls"] != 1 {
		t.Fatalf("unexpected snapshot: %v", u.Snapshot())
	}
}

func TestUnitPerturbFailureAborts(t *testing.T) {
	m := &mockEngineService{err: errors.New("deadline exceeded")}
	u := NewUnit(newTestClient(m), UnitConfig{}, zerolog.Nop())
	if _, err := u.Transform(state.New([]float64{1})); err == nil {
		t.Fatal("remote failure should be returned to the loop")
	}

	m = &mockEngineService{responses: map[string]map[string]any{"Perturb": {"vector": "bad"}}}
	u = NewUnit(newTestClient(m), UnitConfig{}, zerolog.Nop())
	if _, err := u.Transform(state.New([]float64{1})); !errors.Is(err, errMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

// #endregion unit-tests
