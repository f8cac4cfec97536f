package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/statecore/internal/adapters"
	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
	"github.com/danielpatrickdp/statecore/internal/state"
	"github.com/danielpatrickdp/statecore/internal/unit"
)

// ErrNoInitialState is returned by RunCycle for a nil initial state.
var ErrNoInitialState = loop.ErrNoInitialState

// #region names
// Registration names and priorities of the standard units.
const (
	NameWeights  = "well_formation"
	NameManifold = "state_manifold"
	NameDynamics = "neural_dynamics"
	NameHistory  = "historical"
	NameGuard    = "guard"
	NameMonitor  = "cingulate"

	PriorityWeights  = 10
	PriorityManifold = 20
	PriorityDynamics = 30
	PriorityHistory  = 40
	PriorityGuard    = 90
)

// #endregion names

// #region config
// Config assembles the loop and monitor configurations.
type Config struct {
	Loop        loop.Config
	Monitor     monitor.Config
	AutoMonitor bool // register the monitor as "cingulate" at Monitor.Priority
	Logger      zerolog.Logger
}

// DefaultConfig returns loop and monitor defaults with the monitor enabled.
func DefaultConfig() Config {
	return Config{
		Loop:        loop.DefaultConfig(),
		Monitor:     monitor.DefaultConfig(),
		AutoMonitor: true,
		Logger:      zerolog.Nop(),
	}
}

// #endregion config

// #region core
// Core owns a registry and a loop and runs cycles over the registered units.
type Core struct {
	config   Config
	registry *unit.Registry
	loop     *loop.Loop
	monitor  *monitor.Monitor
	log      zerolog.Logger
}

// New builds a core. With AutoMonitor the monitor is registered first.
func New(config Config) (*Core, error) {
	c := &Core{
		config:   config,
		registry: unit.NewRegistry(),
		loop:     loop.NewLoop(config.Loop),
		log:      config.Logger.With().Str("component", "core").Logger(),
	}
	if config.AutoMonitor {
		c.monitor = monitor.New(config.Monitor)
		if err := c.Register(NameMonitor, c.monitor, c.monitor.Priority()); err != nil {
			return nil, err
		}
	}
	c.log.Info().Str("mode", string(config.Monitor.Mode)).Bool("monitor", config.AutoMonitor).Msg("core ready")
	return c, nil
}

// Register adds a unit to the registry.
func (c *Core) Register(name string, u unit.Unit, priority int) error {
	if err := c.registry.Register(name, u, priority); err != nil {
		return err
	}
	c.log.Debug().Str("unit", name).Int("priority", priority).Msg("registered")
	return nil
}

// Unregister removes a unit from the registry.
func (c *Core) Unregister(name string) error {
	return c.registry.Unregister(name)
}

// RegisterEngines wraps the resolved engines in adapters and registers them
// under their standard names and priorities.
func (c *Core) RegisterEngines(res *engines.Resolution) error {
	units := []struct {
		name     string
		u        unit.Unit
		priority int
	}{
		{NameWeights, adapters.NewWeightAdapter(res.Weights, c.config.Logger), PriorityWeights},
		{NameManifold, adapters.NewManifoldAdapter(res.Manifold, c.config.Logger), PriorityManifold},
		{NameDynamics, adapters.NewDynamicsAdapter(res.Dynamics, c.config.Logger), PriorityDynamics},
		{NameHistory, adapters.NewHistoryAdapter(res.History, "statecore", c.config.Logger), PriorityHistory},
	}
	for _, e := range units {
		if err := c.Register(e.name, e.u, e.priority); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	for _, ch := range res.Choices {
		c.log.Info().Str("role", string(ch.Role)).Str("impl", ch.Impl).Str("reason", ch.Reason).Msg("engine resolved")
	}
	return nil
}

// Registry exposes the underlying registry.
func (c *Core) Registry() *unit.Registry {
	return c.registry
}

// Monitor returns the auto-registered monitor, or nil.
func (c *Core) Monitor() *monitor.Monitor {
	return c.monitor
}

// RunCycle runs the loop over the registered units in priority order.
// Success on the result is false when nothing is registered or a unit failed.
func (c *Core) RunCycle(initial *state.State) (loop.Result, error) {
	if initial == nil {
		return loop.Result{}, ErrNoInitialState
	}
	return c.loop.Run(initial, c.registry.Ordered()), nil
}

// Reset resets every unit that supports it.
func (c *Core) Reset() {
	c.registry.ResetAll()
}

// #endregion core

// #region system-state
// UnitInfo describes one registered unit.
type UnitInfo struct {
	Name         string            `json:"name" yaml:"name"`
	Priority     int               `json:"priority" yaml:"priority"`
	Capabilities unit.Capabilities `json:"capabilities" yaml:"capabilities"`
}

// SystemState summarizes the registry and unit snapshots.
type SystemState struct {
	Mode      monitor.Mode              `json:"mode" yaml:"mode"`
	Units     []UnitInfo                `json:"units" yaml:"units"`
	Snapshots map[string]map[string]any `json:"snapshots" yaml:"snapshots"`
}

// SystemState lists registered units in execution order with their snapshots.
func (c *Core) SystemState() SystemState {
	ordered := c.registry.Ordered()
	infos := make([]UnitInfo, len(ordered))
	for i, e := range ordered {
		infos[i] = UnitInfo{Name: e.Name, Priority: e.Priority, Capabilities: e.Capabilities}
	}
	return SystemState{
		Mode:      c.config.Monitor.Mode,
		Units:     infos,
		Snapshots: c.registry.Snapshots(),
	}
}

// #endregion system-state
