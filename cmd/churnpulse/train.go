package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ezoic/churnpulse/pipeline"
	"github.com/ezoic/churnpulse/train"
)

type trainFlags struct {
	csv          string
	target       string
	task         string
	artifactsDir string
	reportsDir   string
	figuresDir   string
	seed         int64
	testSize     float64
	noFigures    bool
}

func newTrainCmd(a *app) *cobra.Command {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model and write artifacts",
		Long: `Train the churn classifier (or the housing regressor with --task regression),
evaluate it on a stratified holdout set and write:

  <artifacts-dir>/model.gob      fitted pipeline
  <artifacts-dir>/metrics.json   holdout metrics
  <artifacts-dir>/metadata.json  run description
  <reports-dir>/report.md        Markdown report
  <figures-dir>/*.png            report figures (unless --no-figures)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.csv, "csv", "", "Input CSV (default: paths.raw_csv)")
	cmd.Flags().StringVar(&f.target, "target", "", "Target column (default: inferred, or PRICE for regression)")
	cmd.Flags().StringVar(&f.task, "task", "", "classification or regression (default: task)")
	cmd.Flags().StringVar(&f.artifactsDir, "artifacts-dir", "", "Artifacts directory (default: paths.artifacts_dir)")
	cmd.Flags().StringVar(&f.reportsDir, "reports-dir", "", "Reports directory (default: paths.reports_dir)")
	cmd.Flags().StringVar(&f.figuresDir, "figures-dir", "", "Figures directory (default: paths.figures_dir)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (default: seed)")
	cmd.Flags().Float64Var(&f.testSize, "test-size", 0, "Holdout fraction in (0, 1) (default: test_size)")
	cmd.Flags().BoolVar(&f.noFigures, "no-figures", false, "Skip rendering figures")
	return cmd
}

// trainOptions merges config values with the flags that were set explicitly.
func trainOptions(cmd *cobra.Command, a *app, f *trainFlags) (train.Options, error) {
	cfg := a.cfg
	opts := train.Options{
		CSVPath:      cfg.Paths.RawCSV,
		ArtifactsDir: cfg.Paths.ArtifactsDir,
		ReportsDir:   cfg.Paths.ReportsDir,
		FiguresDir:   cfg.Paths.FiguresDir,
		Seed:         cfg.Seed,
		TestSize:     cfg.TestSize,
	}
	task := cfg.Task

	flags := cmd.Flags()
	if flags.Changed("csv") {
		opts.CSVPath = f.csv
	}
	if flags.Changed("target") {
		opts.Target = f.target
	}
	if flags.Changed("task") {
		task = f.task
	}
	if flags.Changed("artifacts-dir") {
		opts.ArtifactsDir = f.artifactsDir
	}
	if flags.Changed("reports-dir") {
		opts.ReportsDir = f.reportsDir
	}
	if flags.Changed("figures-dir") {
		opts.FiguresDir = f.figuresDir
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("test-size") {
		opts.TestSize = f.testSize
	}
	opts.NoFigures = f.noFigures

	t, err := pipeline.ParseTask(task)
	if err != nil {
		return opts, err
	}
	opts.Task = t
	return opts, nil
}

func runTrain(cmd *cobra.Command, a *app, f *trainFlags) error {
	opts, err := trainOptions(cmd, a, f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := train.Run(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model saved to: %s\n", res.ModelPath)
	fmt.Fprintf(out, "Metrics saved to: %s\n", res.MetricsPath)
	fmt.Fprintf(out, "Metadata saved to: %s\n", res.MetadataPath)
	fmt.Fprintf(out, "Report saved to: %s\n", res.ReportPath)
	for _, fig := range res.Figures {
		fmt.Fprintf(out, "Figure saved to: %s\n", fig)
	}
	fmt.Fprintln(out, summaryLine(res))
	return nil
}

// summaryLine prints the metrics in a stable order, e.g.
// "Summary: f1=0.612 precision=0.524 recall=0.735 roc_auc=0.842".
func summaryLine(res *train.Result) string {
	keys := make([]string, 0, len(res.Metrics))
	for k := range res.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.3f", k, res.Metrics[k])
	}
	return "Summary: " + strings.Join(parts, " ")
}
