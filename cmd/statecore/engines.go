package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/statecore/internal/report"
)

// #region engines-cmd
func newEnginesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "Show the engine implementation resolved for each role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.resolve()
			if err != nil {
				return err
			}
			defer res.Close()
			w := cmd.OutOrStdout()
			return report.Write(w, a.format, res.Choices, func(w io.Writer) error {
				return report.ResolutionTable(w, res.Choices)
			})
		},
	}
}

// #endregion engines-cmd
