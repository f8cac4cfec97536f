package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/statecore/internal/core"
	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/guard"
	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/monitor"
)

// EnvPrefix prefixes environment overrides, e.g. STATECORE_LOOP_MAX_STEPS.
const EnvPrefix = "STATECORE"

// #region types
// Config holds application configuration.
type Config struct {
	Loop    LoopConfig    `mapstructure:"loop"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Guard   GuardConfig   `mapstructure:"guard"`
	Engines EnginesConfig `mapstructure:"engines"`
	Journal JournalConfig `mapstructure:"journal"`
	Log     LogConfig     `mapstructure:"log"`
}

// LoopConfig holds run-cycle settings.
type LoopConfig struct {
	MaxSteps             int     `mapstructure:"max_steps"`
	ConvergenceThreshold float64 `mapstructure:"convergence_threshold"`
	CaptureTrajectory    bool    `mapstructure:"capture_trajectory"`
}

// MonitorConfig holds stability monitor settings.
type MonitorConfig struct {
	Enabled                  bool     `mapstructure:"enabled"`
	Mode                     string   `mapstructure:"mode"`
	ConflictThreshold        float64  `mapstructure:"conflict_threshold"`
	ScaleFloor               float64  `mapstructure:"scale_floor"`
	Priority                 int      `mapstructure:"priority"`
	WatchKeys                []string `mapstructure:"watch_keys"`
	SelectionKey             string   `mapstructure:"selection_key"`
	CollectAllFieldConflicts bool     `mapstructure:"collect_all_field_conflicts"`
	HistoryLimit             int      `mapstructure:"history_limit"`
}

// GuardConfig holds bounds guard settings.
type GuardConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MaxStateNorm   float64 `mapstructure:"max_state_norm"`
	MaxSegmentNorm float64 `mapstructure:"max_segment_norm"`
	MaxDeltaNorm   float64 `mapstructure:"max_delta_norm"`
	MaxEnergy      float64 `mapstructure:"max_energy"`
	Segments       int     `mapstructure:"segments"`
	Enforce        bool    `mapstructure:"enforce"`
}

// EnginesConfig selects engine implementations per role.
type EnginesConfig struct {
	Weights      string        `mapstructure:"weights"`
	Manifold     string        `mapstructure:"manifold"`
	Dynamics     string        `mapstructure:"dynamics"`
	History      string        `mapstructure:"history"`
	RemoteAddr   string        `mapstructure:"remote_addr"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	Hebbian  HebbianConfig  `mapstructure:"hebbian"`
	Hopfield HopfieldConfig `mapstructure:"hopfield"`
}

// HebbianConfig tunes the stand-in weight generator.
type HebbianConfig struct {
	Eta         float64 `mapstructure:"eta"`
	WeightDecay float64 `mapstructure:"weight_decay"`
	Epochs      int     `mapstructure:"epochs"`
}

// HopfieldConfig tunes the stand-in dynamics.
type HopfieldConfig struct {
	Dt        float64 `mapstructure:"dt"`
	MaxSteps  int     `mapstructure:"max_steps"`
	Tolerance float64 `mapstructure:"tolerance"`
	DecayRate float64 `mapstructure:"decay_rate"`
}

// JournalConfig holds run journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// #endregion types

// #region load
// Load reads configuration from path (TOML or YAML by extension) and the
// environment. An empty path falls back to $STATECORE_CONFIG, then to
// statecore.{toml,yaml} in the working directory or ~/.config/statecore.
// Only an explicitly named file must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("statecore")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "statecore"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

func setDefaults(v *viper.Viper) {
	ld := loop.DefaultConfig()
	v.SetDefault("loop.max_steps", ld.MaxSteps)
	v.SetDefault("loop.convergence_threshold", ld.ConvergenceThreshold)
	v.SetDefault("loop.capture_trajectory", ld.CaptureTrajectory)

	md := monitor.DefaultConfig()
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.mode", string(md.Mode))
	v.SetDefault("monitor.conflict_threshold", md.ConflictThreshold)
	v.SetDefault("monitor.scale_floor", md.ScaleFloor)
	v.SetDefault("monitor.priority", md.Priority)
	v.SetDefault("monitor.watch_keys", md.WatchKeys)
	v.SetDefault("monitor.selection_key", md.SelectionKey)
	v.SetDefault("monitor.collect_all_field_conflicts", md.CollectAllFieldConflicts)
	v.SetDefault("monitor.history_limit", md.HistoryLimit)

	gd := guard.DefaultConfig()
	v.SetDefault("guard.enabled", true)
	v.SetDefault("guard.max_state_norm", gd.MaxStateNorm)
	v.SetDefault("guard.max_segment_norm", gd.MaxSegmentNorm)
	v.SetDefault("guard.max_delta_norm", gd.MaxDeltaNorm)
	v.SetDefault("guard.max_energy", gd.MaxEnergy)
	v.SetDefault("guard.segments", gd.Segments)
	v.SetDefault("guard.enforce", gd.Enforce)

	hb := engines.DefaultHebbianConfig()
	hp := engines.DefaultHopfieldConfig()
	v.SetDefault("engines.weights", "")
	v.SetDefault("engines.manifold", "")
	v.SetDefault("engines.dynamics", "")
	v.SetDefault("engines.history", "")
	v.SetDefault("engines.remote_addr", "")
	v.SetDefault("engines.timeout", "5s")
	v.SetDefault("engines.probe_timeout", "0s")
	v.SetDefault("engines.hebbian.eta", hb.Eta)
	v.SetDefault("engines.hebbian.weight_decay", hb.WeightDecay)
	v.SetDefault("engines.hebbian.epochs", hb.Epochs)
	v.SetDefault("engines.hopfield.dt", hp.Dt)
	v.SetDefault("engines.hopfield.max_steps", hp.MaxSteps)
	v.SetDefault("engines.hopfield.tolerance", hp.Tolerance)
	v.SetDefault("engines.hopfield.decay_rate", hp.DecayRate)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "statecore", "journal.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// #endregion load

// #region conversions
// LoopSettings converts the loop section.
func (c Config) LoopSettings(logger zerolog.Logger) loop.Config {
	return loop.Config{
		MaxSteps:             c.Loop.MaxSteps,
		ConvergenceThreshold: c.Loop.ConvergenceThreshold,
		CaptureTrajectory:    c.Loop.CaptureTrajectory,
		Logger:               logger,
	}
}

// MonitorSettings converts the monitor section.
func (c Config) MonitorSettings(logger zerolog.Logger) (monitor.Config, error) {
	mode := monitor.Mode(strings.ToLower(c.Monitor.Mode))
	if mode != monitor.ModeProduction && mode != monitor.ModeResearch {
		return monitor.Config{}, fmt.Errorf("monitor.mode %q: want production or research", c.Monitor.Mode)
	}
	mc := monitor.DefaultConfig()
	mc.Mode = mode
	mc.ConflictThreshold = c.Monitor.ConflictThreshold
	mc.ScaleFloor = c.Monitor.ScaleFloor
	mc.Priority = c.Monitor.Priority
	mc.WatchKeys = c.Monitor.WatchKeys
	mc.SelectionKey = c.Monitor.SelectionKey
	mc.CollectAllFieldConflicts = c.Monitor.CollectAllFieldConflicts
	mc.HistoryLimit = c.Monitor.HistoryLimit
	mc.Logger = logger
	return mc, nil
}

// CoreSettings assembles the core configuration.
func (c Config) CoreSettings(logger zerolog.Logger) (core.Config, error) {
	mc, err := c.MonitorSettings(logger)
	if err != nil {
		return core.Config{}, err
	}
	return core.Config{
		Loop:        c.LoopSettings(logger),
		Monitor:     mc,
		AutoMonitor: c.Monitor.Enabled,
		Logger:      logger,
	}, nil
}

// GuardSettings converts the guard section.
func (c Config) GuardSettings(logger zerolog.Logger) guard.Config {
	gc := guard.DefaultConfig()
	gc.MaxStateNorm = c.Guard.MaxStateNorm
	gc.MaxSegmentNorm = c.Guard.MaxSegmentNorm
	gc.MaxDeltaNorm = c.Guard.MaxDeltaNorm
	gc.MaxEnergy = c.Guard.MaxEnergy
	gc.Segments = c.Guard.Segments
	gc.Enforce = c.Guard.Enforce
	gc.Logger = logger
	return gc
}

// EngineSettings converts the engines section.
func (c Config) EngineSettings() engines.Settings {
	s := engines.DefaultSettings()
	s.RemoteAddr = c.Engines.RemoteAddr
	for role, pref := range map[engines.Role]string{
		engines.RoleWeights:  c.Engines.Weights,
		engines.RoleManifold: c.Engines.Manifold,
		engines.RoleDynamics: c.Engines.Dynamics,
		engines.RoleHistory:  c.Engines.History,
	} {
		if pref != "" {
			s.Prefs[role] = engines.Preference(strings.ToLower(pref))
		}
	}
	s.Hebbian.Eta = c.Engines.Hebbian.Eta
	s.Hebbian.WeightDecay = c.Engines.Hebbian.WeightDecay
	s.Hebbian.Epochs = c.Engines.Hebbian.Epochs
	s.Hopfield.Dt = c.Engines.Hopfield.Dt
	s.Hopfield.MaxSteps = c.Engines.Hopfield.MaxSteps
	s.Hopfield.Tolerance = c.Engines.Hopfield.Tolerance
	s.Hopfield.DecayRate = c.Engines.Hopfield.DecayRate
	return s
}

// #endregion conversions
