// Package train runs a full training job: load the CSV, split, fit the pipeline,
// evaluate on the holdout set and persist the artifacts.
//
// Nothing is written until fitting and evaluation have succeeded, and every file
// is replaced atomically, so a failed run leaves earlier artifacts untouched.
package train

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/dataset"
	"github.com/ezoic/churnpulse/metrics"
	"github.com/ezoic/churnpulse/model_selection"
	"github.com/ezoic/churnpulse/pipeline"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
	"github.com/ezoic/churnpulse/pkg/fsutil"
	"github.com/ezoic/churnpulse/pkg/log"
	"github.com/ezoic/churnpulse/report"
)

// Artifact file names.
const (
	ModelFile    = "model.gob"
	MetricsFile  = "metrics.json"
	MetadataFile = "metadata.json"
	ReportFile   = "report.md"
)

// Options configures a training run.
type Options struct {
	CSVPath string
	// Target overrides target inference. Empty means infer (classification) or
	// PRICE (regression).
	Target string
	Task   pipeline.Task

	ArtifactsDir string
	ReportsDir   string
	FiguresDir   string

	TestSize float64
	Seed     int64

	// NoFigures skips rendering the report figures.
	NoFigures bool
}

// DefaultOptions returns the settings of a plain `churnpulse train` invocation.
func DefaultOptions() Options {
	return Options{
		Task:         pipeline.TaskClassification,
		ArtifactsDir: "artifacts",
		ReportsDir:   "reports",
		FiguresDir:   "figures",
		TestSize:     0.2,
		Seed:         42,
	}
}

// Metadata describes a run; it is written next to the model.
type Metadata struct {
	RunID     string               `json:"run_id"`
	Timestamp string               `json:"timestamp"`
	Task      pipeline.Task        `json:"task"`
	Model     string               `json:"model"`
	Seed      int64                `json:"seed"`
	TestSize  float64              `json:"test_size"`
	NRows     int                  `json:"n_rows"`
	NColumns  int                  `json:"n_columns"`
	NTrain    int                  `json:"n_train"`
	NTest     int                  `json:"n_test"`
	Target    string               `json:"target"`
	Features  []dataset.ColumnRole `json:"features"`
	Encoded   []string             `json:"encoded_features"`
}

// Result is what a successful run produced.
type Result struct {
	Metadata Metadata
	Metrics  map[string]float64

	// Confusion is [[tn, fp], [fn, tp]] for classification runs, nil otherwise.
	Confusion *[2][2]int

	ModelPath    string
	MetricsPath  string
	MetadataPath string
	ReportPath   string
	Figures      []string

	// TestIndices are the CSV rows of the holdout set, in scoring order.
	TestIndices []int
	// HoldoutTrue holds the holdout labels (or targets).
	HoldoutTrue []float64
	// HoldoutScores holds churn probabilities for classification and predicted
	// targets for regression, aligned with TestIndices.
	HoldoutScores []float64

	Pipeline *pipeline.Pipeline
}

func (o Options) validate() error {
	if o.CSVPath == "" {
		return cpErrors.NewConfigurationError("train", "a CSV path is required (--csv)")
	}
	if !(o.TestSize > 0 && o.TestSize < 1) {
		return cpErrors.NewConfigurationError("train",
			fmt.Sprintf("test size must be in (0, 1), got %v", o.TestSize))
	}
	if _, err := pipeline.ParseTask(string(o.Task)); err != nil {
		return err
	}
	for _, d := range []string{o.ArtifactsDir, o.ReportsDir} {
		if d == "" {
			return cpErrors.NewConfigurationError("train", "artifacts and reports directories must be set")
		}
	}
	if !o.NoFigures && o.FiguresDir == "" {
		return cpErrors.NewConfigurationError("train", "figures directory must be set unless figures are disabled")
	}
	return nil
}

// evaluation is the in-memory outcome of fitting, before anything is persisted.
type evaluation struct {
	target    string
	roles     []dataset.ColumnRole
	pipe      *pipeline.Pipeline
	train     []int
	test      []int
	yTest     []float64
	scores    []float64
	metrics   map[string]float64
	confusion *[2][2]int
	fpr, tpr  []float64
}

// Run executes a training job.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	task, _ := pipeline.ParseTask(string(opts.Task))

	runID := uuid.NewString()
	logger := log.GetLoggerWithName("train").With(log.RunIDKey, runID, log.TaskKey, string(task))
	start := time.Now()

	frame, err := dataset.ReadCSV(opts.CSVPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset loaded",
		log.PathKey, opts.CSVPath,
		log.SamplesKey, frame.NumRows(),
		"columns", frame.NumColumns(),
	)
	nRows, nColumns := frame.NumRows(), frame.NumColumns()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ev *evaluation
	switch task {
	case pipeline.TaskRegression:
		ev, err = fitRegression(frame, opts)
	default:
		ev, err = fitClassification(frame, opts)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Model evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.TargetKey, ev.target,
		"n_train", len(ev.train),
		"n_test", len(ev.test),
		"metrics", ev.metrics,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := Metadata{
		RunID:     runID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Task:      task,
		Model:     ev.pipe.Describe(),
		Seed:      opts.Seed,
		TestSize:  opts.TestSize,
		NRows:     nRows,
		NColumns:  nColumns,
		NTrain:    len(ev.train),
		NTest:     len(ev.test),
		Target:    ev.target,
		Features:  ev.roles,
		Encoded:   ev.pipe.FeatureNames(),
	}

	res := &Result{
		Metadata:      meta,
		Metrics:       ev.metrics,
		Confusion:     ev.confusion,
		ModelPath:     filepath.Join(opts.ArtifactsDir, ModelFile),
		MetricsPath:   filepath.Join(opts.ArtifactsDir, MetricsFile),
		MetadataPath:  filepath.Join(opts.ArtifactsDir, MetadataFile),
		ReportPath:    filepath.Join(opts.ReportsDir, ReportFile),
		TestIndices:   ev.test,
		HoldoutTrue:   ev.yTest,
		HoldoutScores: ev.scores,
		Pipeline:      ev.pipe,
	}

	if err := persist(res, ev, opts, logger); err != nil {
		return nil, err
	}

	logger.Info("Training complete",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.PathKey, res.ModelPath,
	)
	return res, nil
}

func fitClassification(frame *dataset.Frame, opts Options) (*evaluation, error) {
	target, err := dataset.InferTarget(frame.Names(), opts.Target)
	if err != nil {
		return nil, err
	}
	labels, err := dataset.NormalizeLabels(frame.Column(target))
	if err != nil {
		return nil, err
	}
	features := frame.Drop(target)
	roles := dataset.PartitionFeatures(frame, target)

	trainIdx, testIdx, err := model_selection.TrainTestSplit(len(labels),
		model_selection.WithTestSize(opts.TestSize),
		model_selection.WithSeed(opts.Seed),
		model_selection.WithStratify(labels),
	)
	if err != nil {
		return nil, cpErrors.NewDataValidationError("train",
			fmt.Sprintf("cannot split %d rows for stratified holdout: %v", len(labels), err))
	}

	yTrain := pick(labels, trainIdx)
	yTest := pick(labels, testIdx)

	pipe := pipeline.NewClassification(target, roles)
	if err := pipe.Fit(features.Subset(trainIdx), yTrain); err != nil {
		return nil, err
	}
	proba, err := pipe.PredictProba(features.Subset(testIdx))
	if err != nil {
		return nil, err
	}

	yTrue := mat.NewVecDense(len(yTest), yTest)
	scores := mat.NewVecDense(len(proba), proba)
	pred := metrics.Threshold(scores, pipeline.DefaultThreshold)

	auc, err := metrics.AUC(yTrue, scores)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.ConfusionMatrix(yTrue, pred)
	if err != nil {
		return nil, err
	}
	precision, err := metrics.Precision(yTrue, pred)
	if err != nil {
		return nil, err
	}
	recall, err := metrics.Recall(yTrue, pred)
	if err != nil {
		return nil, err
	}
	f1, err := metrics.F1(yTrue, pred)
	if err != nil {
		return nil, err
	}

	ev := &evaluation{
		target: target,
		roles:  roles,
		pipe:   pipe,
		train:  trainIdx,
		test:   testIdx,
		yTest:  yTest,
		scores: proba,
		metrics: map[string]float64{
			"roc_auc":   auc,
			"precision": precision,
			"recall":    recall,
			"f1":        f1,
		},
		confusion: &cm,
	}
	// a single-class holdout has no curve; the figure is skipped
	ev.fpr, ev.tpr, _, _ = metrics.ROCCurve(yTrue, scores)
	return ev, nil
}

func fitRegression(frame *dataset.Frame, opts Options) (*evaluation, error) {
	target := opts.Target
	if target == "" {
		target = dataset.RegressionTarget
	}
	clean, err := dataset.CleanNumeric(frame, target)
	if err != nil {
		return nil, err
	}
	if clean.NumRows() == 0 {
		return nil, cpErrors.NewDataValidationError("train", fmt.Sprintf("no rows with a value for %q", target))
	}

	col := clean.Column(target)
	y := make([]float64, col.Len())
	for i := range y {
		y[i], _ = col.Float(i)
	}
	features := clean.Drop(target)
	roles := dataset.PartitionFeatures(clean, target)

	trainIdx, testIdx, err := model_selection.TrainTestSplit(len(y),
		model_selection.WithTestSize(opts.TestSize),
		model_selection.WithSeed(opts.Seed),
	)
	if err != nil {
		return nil, cpErrors.NewDataValidationError("train",
			fmt.Sprintf("cannot split %d rows: %v", len(y), err))
	}
	yTrain := pick(y, trainIdx)
	yTest := pick(y, testIdx)

	pipe := pipeline.NewRegression(target, roles, opts.Seed)
	if err := pipe.Fit(features.Subset(trainIdx), yTrain); err != nil {
		return nil, err
	}
	pred, err := pipe.Predict(features.Subset(testIdx))
	if err != nil {
		return nil, err
	}

	yTrue := mat.NewVecDense(len(yTest), yTest)
	yPred := mat.NewVecDense(len(pred), pred)
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		// constant holdout target
		r2 = 0
	}

	return &evaluation{
		target:  target,
		roles:   roles,
		pipe:    pipe,
		train:   trainIdx,
		test:    testIdx,
		yTest:   yTest,
		scores:  pred,
		metrics: map[string]float64{"rmse": rmse, "mae": mae, "r2": r2},
	}, nil
}

// persist writes model, metrics, metadata, figures and report.
func persist(res *Result, ev *evaluation, opts Options, logger log.Logger) error {
	dirs := []string{opts.ArtifactsDir, opts.ReportsDir}
	if !opts.NoFigures {
		dirs = append(dirs, opts.FiguresDir)
	}
	for _, d := range dirs {
		if err := fsutil.EnsureDir(d); err != nil {
			return err
		}
	}

	if err := ev.pipe.Save(res.ModelPath); err != nil {
		return err
	}
	if err := fsutil.WriteJSONAtomic(res.MetricsPath, res.Metrics); err != nil {
		return err
	}
	if err := fsutil.WriteJSONAtomic(res.MetadataPath, res.Metadata); err != nil {
		return err
	}

	var figures []report.Figure
	if !opts.NoFigures {
		figures = renderFigures(res, ev, opts, logger)
	}

	summary := report.Summary{
		Task:      string(res.Metadata.Task),
		Model:     res.Metadata.Model,
		Target:    res.Metadata.Target,
		RunID:     res.Metadata.RunID,
		Seed:      res.Metadata.Seed,
		NTrain:    res.Metadata.NTrain,
		NTest:     res.Metadata.NTest,
		Metrics:   res.Metrics,
		Confusion: res.Confusion,
		Threshold: pipeline.DefaultThreshold,
		Figures:   figures,
	}
	if err := report.Write(res.ReportPath, summary); err != nil {
		return err
	}
	logger.Info("Artifacts written",
		log.OperationKey, log.OperationPersist,
		"artifacts_dir", opts.ArtifactsDir,
		"report", res.ReportPath,
	)
	return nil
}

// renderFigures draws the figures for the run. A figure that fails to render is
// logged and left out of the report.
func renderFigures(res *Result, ev *evaluation, opts Options, logger log.Logger) []report.Figure {
	type job struct {
		title string
		file  string
		draw  func(path string) error
	}
	var jobs []job
	if ev.confusion != nil {
		if len(ev.fpr) > 0 {
			jobs = append(jobs, job{"ROC curve", report.ROCFigure, func(p string) error {
				return report.PlotROC(ev.fpr, ev.tpr, res.Metrics["roc_auc"], p)
			}})
		} else {
			logger.Warn("Skipping ROC curve: holdout set has a single class")
		}
		jobs = append(jobs, job{"Confusion matrix", report.ConfusionFigure, func(p string) error {
			return report.PlotConfusion(*ev.confusion, p)
		}})
	} else {
		jobs = append(jobs, job{"Predicted vs actual", report.PredictedActualFigure, func(p string) error {
			return report.PlotPredictedVsActual(ev.yTest, ev.scores, p)
		}})
	}

	var figures []report.Figure
	for _, j := range jobs {
		path := filepath.Join(opts.FiguresDir, j.file)
		if err := j.draw(path); err != nil {
			log.LogError(err, "Failed to render figure", log.PathKey, path)
			continue
		}
		res.Figures = append(res.Figures, path)
		figures = append(figures, report.Figure{Title: j.title, Path: relativeTo(opts.ReportsDir, path)})
	}
	return figures
}

// relativeTo returns target relative to dir with forward slashes, as Markdown
// links expect. It falls back to target when no relative path exists.
func relativeTo(dir, target string) string {
	absDir, err1 := filepath.Abs(dir)
	absTarget, err2 := filepath.Abs(target)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(absDir, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func pick[T int | float64](values []T, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = float64(values[k])
	}
	return out
}
