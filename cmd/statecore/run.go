package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/statecore/internal/core"
	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/guard"
	"github.com/danielpatrickdp/statecore/internal/journal"
	"github.com/danielpatrickdp/statecore/internal/loop"
	"github.com/danielpatrickdp/statecore/internal/remote"
	"github.com/danielpatrickdp/statecore/internal/report"
	"github.com/danielpatrickdp/statecore/internal/scenario"
)

// #region run-cmd
func newRunCmd(a *app) *cobra.Command {
	var label string
	var noJournal, strict bool
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario and report the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if label == "" {
				label = args[0]
			}
			return a.run(cmd.OutOrStdout(), args[0], label, !noJournal, strict)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Label stored with the journalled run (default: scenario path)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Skip the run journal even when enabled in config")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the result does not meet the scenario's expectations")
	return cmd
}

func (a *app) run(w io.Writer, path, label string, useJournal, strict bool) error {
	f, err := scenario.Load(path)
	if err != nil {
		return err
	}

	res, err := a.resolve()
	if err != nil {
		return err
	}
	defer res.Close()

	opts, err := a.scenarioOptions()
	if err != nil {
		return err
	}
	s, err := scenario.Build(f, res, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if a.cfg.Guard.Enabled && !s.Core().Registry().Has(core.NameGuard) {
		if err := s.Core().Register(core.NameGuard, guard.NewGuard(opts.Guard), core.PriorityGuard); err != nil {
			return err
		}
	}

	a.log.Info().Str("scenario", path).Strs("units", s.Core().Registry().Names()).Msg("scenario built")
	result, err := s.Run()
	if err != nil {
		return err
	}

	if useJournal && a.cfg.Journal.Enabled {
		if err := a.record(result, label); err != nil {
			return err
		}
	}

	view := report.NewRunView(result, label)
	if err := report.Write(w, a.format, view, func(w io.Writer) error { return report.RunTable(w, view) }); err != nil {
		return err
	}

	mismatches := f.Mismatches(result)
	for _, m := range mismatches {
		a.log.Warn().Str("scenario", path).Msg("expectation not met: " + m)
	}
	if strict && len(mismatches) > 0 {
		return fmt.Errorf("%d expectation(s) not met", len(mismatches))
	}
	return nil
}

func (a *app) scenarioOptions() (scenario.Options, error) {
	coreCfg, err := a.cfg.CoreSettings(a.log)
	if err != nil {
		return scenario.Options{}, err
	}
	timeout := a.cfg.Engines.Timeout
	return scenario.Options{
		Core:       coreCfg,
		Guard:      a.cfg.GuardSettings(a.log),
		RemoteAddr: a.cfg.Engines.RemoteAddr,
		Dial: func(addr string) (*remote.Client, error) {
			return remote.Dial(addr, timeout, a.cfg.Engines.ProbeTimeout)
		},
		Logger: a.log,
	}, nil
}

// resolve picks engine implementations per the config and logs each choice.
func (a *app) resolve() (*engines.Resolution, error) {
	dial := remote.Dialer(a.cfg.Engines.Timeout, a.cfg.Engines.ProbeTimeout)
	res, err := engines.Resolve(a.cfg.EngineSettings(), dial)
	if err != nil {
		return nil, fmt.Errorf("resolve engines: %w", err)
	}
	for _, c := range res.Choices {
		a.log.Info().Str("role", string(c.Role)).Str("impl", c.Impl).Str("reason", c.Reason).Msg("engine")
	}
	return res, nil
}

func (a *app) record(result loop.Result, label string) error {
	return a.withJournal(func(j *journal.Journal) error {
		if err := j.RecordRun(result, label); err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
		a.log.Debug().Str("run_id", result.RunID).Str("path", a.cfg.Journal.Path).Msg("run journalled")
		return nil
	})
}

// #endregion run-cmd
