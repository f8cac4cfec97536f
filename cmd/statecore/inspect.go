package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/statecore/internal/journal"
	"github.com/danielpatrickdp/statecore/internal/report"
)

// #region inspect-cmd
func newInspectCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List journalled runs, or show one run's health log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.inspectRun(cmd.OutOrStdout(), args[0])
			}
			return a.listRuns(cmd.OutOrStdout(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func (a *app) listRuns(w io.Writer, limit int) error {
	return a.withJournal(func(j *journal.Journal) error {
		runs, err := j.ListRuns(limit)
		if err != nil {
			return err
		}
		if runs == nil {
			runs = []journal.RunSummary{}
		}
		return report.Write(w, a.format, runs, func(w io.Writer) error { return report.RunsTable(w, runs) })
	})
}

func (a *app) inspectRun(w io.Writer, id string) error {
	return a.withJournal(func(j *journal.Journal) error {
		d, err := j.GetRun(id)
		if err != nil {
			return err
		}
		return report.Write(w, a.format, d, func(w io.Writer) error { return report.RunDetailTable(w, d) })
	})
}

// withJournal opens the configured journal for the duration of fn, creating
// its directory when needed.
func (a *app) withJournal(fn func(*journal.Journal) error) error {
	path := a.cfg.Journal.Path
	if path == "" {
		return fmt.Errorf("journal.path is not set")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}
	j, err := journal.Open(path)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", path, err)
	}
	defer j.Close()
	return fn(j)
}

// #endregion inspect-cmd
