package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/statecore/internal/config"
	"github.com/danielpatrickdp/statecore/internal/observability"
	"github.com/danielpatrickdp/statecore/internal/report"
)

// #region app
// app holds global flags and what PersistentPreRunE derives from them.
type app struct {
	cfgFile string
	output  string
	verbose bool

	cfg    config.Config
	format report.Format
	log    zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "statecore",
		Short: "Run perturbation units over a shared state until it settles",
		Long: `statecore drives registered units over a shared state vector in
priority order until energy or vector change falls below the convergence
threshold, with a stability monitor watching every pass.

Commands:
  run       Execute a scenario file
  inspect   List journalled runs or show one
  engines   Show which engine implementation serves each role`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ./statecore.yaml or ~/.config/statecore/)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table, json, yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(a), newInspectCmd(a), newEnginesCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(a.output)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.cfg = cfg
	a.format = format
	a.log = observability.InitLogger("statecore", level, cfg.Log.Pretty)
	return nil
}

// #endregion app
