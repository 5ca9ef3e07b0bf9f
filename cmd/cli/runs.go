package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gopi/domain/core"
)

func newRunsCmd() *cobra.Command {
	var limit int
	var fingerprint string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs (requires DATABASE_URL)",
		Long: `List the newest archived runs. --fingerprint lists earlier runs with the
same parameters, which all produced the same estimates.

Example: gopi runs --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			runs, err := env.service.History(cmd.Context(), limit, core.Hash(fingerprint))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}

			out := cmd.OutOrStdout()
			for _, r := range runs {
				covers := "❌"
				if r.CoversPi {
					covers = "✅"
				}
				fmt.Fprintf(out, "%s  %s  K=%d N=%d  [%.6f; %.6f] %s  %s\n",
					r.RunID, r.CreatedAt, r.Trials, r.PointsPerTrial, r.LowerBound, r.UpperBound, covers, r.FingerprintHash.Short())
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no archived runs")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Only runs with this fingerprint hash")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the runs as JSON")

	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := env.service.Lookup(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}
