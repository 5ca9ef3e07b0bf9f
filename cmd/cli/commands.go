package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gopi/adapters/critical"
	"gopi/adapters/excel"
	"gopi/adapters/plan"
	mdreport "gopi/adapters/report"
	"gopi/domain/montecarlo"
	"gopi/domain/run"
	"gopi/domain/stats"
	"gopi/internal/errors"
	"gopi/ports"
)

func newEstimateCmd() *cobra.Command {
	var points int
	var seedKey string

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate π once from a single trial",
		Long: `Estimate π from one trial of --points uniform points.

Example: gopi estimate --points 1000000 --seed-key 0x123,0x234,0x345,0x456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			key, err := parseKeyFlag(seedKey)
			if err != nil {
				return err
			}
			if points == 0 {
				points = env.config.Experiment.PointsPerTrial
			}

			estimate, err := env.service.Estimate(cmd.Context(), points, key)
			if err != nil {
				return err
			}

			acc := stats.AccuracyOf(float64(estimate))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "π ≈ %.6f from %d points\n", float64(estimate), points)
			fmt.Fprintf(out, "Absolute error: %.6g (relative %.3g%%)\n", acc.AbsoluteError, acc.RelativeError*100)
			return nil
		},
	}

	cmd.Flags().IntVar(&points, "points", 0, "Points in the trial (default PI_POINTS)")
	cmd.Flags().StringVar(&seedKey, "seed-key", "", "Comma-separated 32-bit key words (default PI_SEED_KEY)")
	return cmd
}

func newExperimentCmd() *cobra.Command {
	var flags experimentFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run K trials and print the confidence interval for π",
		Long: `Run --trials independent trials of --points points each and reduce them to
a confidence interval. The critical value comes from --critical-value, or is
resolved for --confidence from the reference table with an exact Student t
fallback.

Example: gopi experiment --trials 20 --points 100000 --confidence 0.99`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			report, err := env.service.Run(cmd.Context(), req)
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

	flags.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}

func newIntervalCmd() *cobra.Command {
	var file string
	var column int
	var confidence, criticalValue float64

	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Compute a confidence interval over estimates read from a file",
		Long: `Read trial estimates from one column of an .xlsx or .csv file and compute
their confidence interval. Non-numeric cells such as headers are skipped.

Example: gopi interval --file trials.xlsx --column 1 --critical-value 2.228`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			if file == "" {
				return errors.InvalidInput("--file is required")
			}

			values, err := excel.NewValueReader(file, column).ReadValues()
			if err != nil {
				return err
			}

			var cv *float64
			if cmd.Flags().Changed("critical-value") {
				cv = &criticalValue
			}
			interval, source, err := env.service.Interval(cmd.Context(), values, cv, confidence)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d estimates, t = %.4g (%s)\n", interval.Count, interval.CriticalValue, source)
			printInterval(out, interval)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to an .xlsx or .csv file")
	cmd.Flags().IntVar(&column, "column", 0, "Zero-based column holding the estimates")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Two-sided confidence level (default PI_CONFIDENCE)")
	cmd.Flags().Float64Var(&criticalValue, "critical-value", 0, "Use this critical value directly")
	return cmd
}

func newConvergenceCmd() *cobra.Command {
	var start, stop, step int
	var seedKey string

	cmd := &cobra.Command{
		Use:   "convergence",
		Short: "Show how single-trial estimates approach π as the point count grows",
		Long: `Estimate π once for every point count in [start, stop) by step, all on one
stream, and print each estimate with its absolute error.

Example: gopi convergence --start 0 --stop 1000 --step 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			key, err := parseKeyFlag(seedKey)
			if err != nil {
				return err
			}

			counts, err := montecarlo.ConvergenceSteps(start, stop, step)
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				return errors.InvalidInput(fmt.Sprintf("no positive point counts in [%d, %d) by %d", start, stop, step))
			}

			points, err := env.service.Convergence(cmd.Context(), counts, key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%10s  %10s  %12s\n", "points", "estimate", "abs error")
			for _, p := range points {
				fmt.Fprintf(out, "%10d  %10.6f  %12.6g\n", p.PointCount, float64(p.Estimate), p.AbsoluteError)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "First point count (counts below 1 are skipped)")
	cmd.Flags().IntVar(&stop, "stop", 1000, "Exclusive upper bound")
	cmd.Flags().IntVar(&step, "step", 10, "Increment between point counts")
	cmd.Flags().StringVar(&seedKey, "seed-key", "", "Comma-separated 32-bit key words (default PI_SEED_KEY)")
	return cmd
}

func newCriticalCmd() *cobra.Command {
	var trials int
	var confidence float64

	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Print a critical value, or the reference table without --trials",
		Long: `Resolve the critical value for --trials and --confidence: an exact two-sided
Student t quantile, or the reference table first when PI_CRITICAL_VALUES=reference.
Without --trials, print the reference table.

Example: gopi critical --trials 15 --confidence 0.99`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if trials == 0 {
				table := critical.ReferenceTable()
				fmt.Fprintf(out, "%s\n%8s  %10s  %8s\n", table.Name(), "trials", "confidence", "t")
				for _, e := range table.Entries() {
					fmt.Fprintf(out, "%8d  %10g  %8.3f\n", e.Trials, e.Confidence, e.Value)
				}
				return nil
			}

			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			if confidence == 0 {
				confidence = env.config.Experiment.Confidence
			}
			value, source, err := env.critical.Resolve(trials, confidence)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "t(%d trials, %g) = %.4f (%s)\n", trials, confidence, value, source)
			return nil
		},
	}

	cmd.Flags().IntVar(&trials, "trials", 0, "Number of trials K")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Two-sided confidence level (default PI_CONFIDENCE)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch [plan.json]",
		Short: "Run a series of experiments on one continuing stream",
		Long: `Run every experiment of a plan in order on one random stream, the way a
series of intervals is produced from a single generator. Each run prints the
stream offset it started at; pass it to "experiment --offset" to replay that
run alone.

Plan format:
  {"seed_key": ["0x123", "0x234", "0x345", "0x456"], "confidence": 0.95,
   "runs": [{"trials": 10, "points": 1000000}, {"trials": 20, "points": 1000000}]}

Example: gopi batch series.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			reports, err := env.service.Batch(cmd.Context(), p.SeedKey, p.Runs)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			out := cmd.OutOrStdout()
			for i, r := range reports {
				ci := r.Interval
				fmt.Fprintf(out, "run %d: K=%d N=%d t=%.4g offset=%d  [%.6f; %.6f]  covers π: %t\n",
					i+1, r.Manifest.Trials, r.Manifest.PointsPerTrial, ci.CriticalValue,
					r.Manifest.Fingerprint.StreamOffset, ci.LowerBound, ci.UpperBound, r.CoversPi())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full reports as JSON")
	return cmd
}

func newExportCmd() *cobra.Command {
	var flags experimentFlags
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run an experiment and write its report as xlsx, md or html",
		Long: `Run one experiment like "experiment" and write the report to --out.
Without --out the file is named after the run ID; "-" writes to stdout.

Example: gopi export --format xlsx --trials 30 --points 100000 --out run.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := reportWriter(format)
			if err != nil {
				return err
			}
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}

			report, err := env.service.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if outPath == "-" {
				return writer.WriteReport(cmd.OutOrStdout(), report)
			}
			if outPath == "" {
				outPath = report.Manifest.RunID.String() + "." + writer.Extension()
			}
			if err := writeReportFile(outPath, writer, report); err != nil {
				return err
			}
			env.logger.Info("report %s written to %s", report.Manifest.RunID, outPath)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", outPath)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "xlsx", "Report format: xlsx, md or html")
	cmd.Flags().StringVar(&outPath, "out", "", `Output path; "-" for stdout`)
	return cmd
}

func reportWriter(format string) (ports.ReportWriter, error) {
	writers := []ports.ReportWriter{excel.NewReportWriter(), mdreport.NewMarkdownWriter(), mdreport.NewHTMLWriter()}
	names := make([]string, len(writers))
	for i, w := range writers {
		if strings.EqualFold(w.Extension(), format) {
			return w, nil
		}
		names[i] = w.Extension()
	}
	return nil, errors.InvalidInput(fmt.Sprintf("unknown format %q, want one of %s", format, strings.Join(names, ", ")))
}

func writeReportFile(path string, writer ports.ReportWriter, report *run.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := writer.WriteReport(f, report); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *run.Report) {
	m := report.Manifest
	fmt.Fprintf(w, "📊 Run %s (fingerprint %s)\n", m.RunID, m.Fingerprint.Hash.Short())
	fmt.Fprintf(w, "%d trials × %d points, %d worker(s), t = %.4g (%s)\n",
		m.Trials, m.PointsPerTrial, m.Workers, m.CriticalValue, m.CriticalSource)
	printInterval(w, report.Interval)

	acc := report.Accuracy
	fmt.Fprintf(w, "Absolute error: %.6g, relative: %.3g%%, ratio to π: %.6f\n",
		acc.AbsoluteError, acc.RelativeError*100, acc.Ratio)
	if report.CoversPi() {
		fmt.Fprintf(w, "✅ Interval covers π\n")
	} else {
		fmt.Fprintf(w, "❌ Interval misses π\n")
	}
	fmt.Fprintf(w, "Elapsed: %v\n", report.Elapsed)
}

func printInterval(w io.Writer, ci stats.ConfidenceInterval) {
	fmt.Fprintf(w, "Mean: %.6f\n", ci.Mean)
	fmt.Fprintf(w, "Variance: %.6g\n", ci.Variance)
	fmt.Fprintf(w, "Interval: [%.6f; %.6f] (half-width %.6g)\n", ci.LowerBound, ci.UpperBound, ci.HalfWidth)
}
