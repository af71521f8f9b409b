// Package pipeline chains the column preprocessor and a final estimator into the
// unit that is trained, persisted and served.
//
// A Pipeline is saved as a single gob artifact holding the task, the target
// name, the ordered feature roles, the fitted ColumnTransformer and the fitted
// estimator. Loading it restores everything needed to score raw records.
package pipeline

import (
	"encoding/gob"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/core/model"
	"github.com/ezoic/churnpulse/dataset"
	"github.com/ezoic/churnpulse/ensemble"
	"github.com/ezoic/churnpulse/linear_model"
	"github.com/ezoic/churnpulse/preprocessing"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
	"github.com/ezoic/churnpulse/pkg/log"
)

func init() {
	gob.Register(&linear_model.LogisticRegression{})
	gob.Register(&ensemble.RandomForestRegressor{})
}

// Task selects the kind of model a pipeline carries.
type Task string

const (
	TaskClassification Task = "classification"
	TaskRegression     Task = "regression"
)

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	switch Task(strings.ToLower(strings.TrimSpace(s))) {
	case TaskClassification:
		return TaskClassification, nil
	case TaskRegression:
		return TaskRegression, nil
	}
	return "", cpErrors.NewConfigurationError("ParseTask",
		fmt.Sprintf("unknown task %q (want classification or regression)", s))
}

// DefaultThreshold is the probability at which a record is labelled as churn.
const DefaultThreshold = 0.5

// Step names one stage of a pipeline.
type Step struct {
	Name      string
	Estimator interface{}
}

// Pipeline is a fitted-or-unfitted preprocessing + estimator unit.
type Pipeline struct {
	State *model.StateManager

	Task         Task
	Target       string
	Roles        []dataset.ColumnRole
	Preprocessor *preprocessing.ColumnTransformer
	Estimator    model.Estimator

	logger log.Logger
}

// New creates a pipeline for task with a fresh ColumnTransformer over roles.
func New(task Task, target string, roles []dataset.ColumnRole, estimator model.Estimator) *Pipeline {
	return &Pipeline{
		State:        model.NewStateManager(),
		Task:         task,
		Target:       target,
		Roles:        append([]dataset.ColumnRole(nil), roles...),
		Preprocessor: preprocessing.NewColumnTransformer(roles),
		Estimator:    estimator,
	}
}

// NewClassification builds the churn classifier: balanced logistic regression
// with up to 2000 L-BFGS iterations.
func NewClassification(target string, roles []dataset.ColumnRole) *Pipeline {
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRMaxIter(2000),
		linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced),
	)
	return New(TaskClassification, target, roles, lr)
}

// NewRegression builds the price regressor: a 300-tree random forest.
func NewRegression(target string, roles []dataset.ColumnRole, seed int64) *Pipeline {
	rf := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(300),
		ensemble.WithRandomState(seed),
	)
	return New(TaskRegression, target, roles, rf)
}

func (p *Pipeline) log() log.Logger {
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("Pipeline")
	}
	return p.logger
}

// Steps lists the stages in execution order.
func (p *Pipeline) Steps() []Step {
	return []Step{
		{Name: "preprocess", Estimator: p.Preprocessor},
		{Name: "model", Estimator: p.Estimator},
	}
}

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool {
	return p.State != nil && p.State.IsFitted()
}

// Fit fits the preprocessor on t and the estimator on the encoded matrix.
// For classification y holds 0/1 labels.
func (p *Pipeline) Fit(t preprocessing.Table, y []float64) error {
	if p.Preprocessor == nil || p.Estimator == nil {
		return cpErrors.NewValidationError("pipeline", "preprocessor and estimator are required", nil)
	}
	if t.NumRows() != len(y) {
		return cpErrors.NewDimensionError("Pipeline.Fit", t.NumRows(), len(y), 0)
	}

	Xt, err := p.Preprocessor.FitTransform(t)
	if err != nil {
		return cpErrors.Wrap(err, "failed to fit step 'preprocess'")
	}
	if err := p.Estimator.Fit(Xt, mat.NewDense(len(y), 1, append([]float64(nil), y...))); err != nil {
		return cpErrors.Wrap(err, "failed to fit step 'model'")
	}

	_, nOut := Xt.Dims()
	if p.State == nil {
		p.State = model.NewStateManager()
	}
	p.State.SetDimensions(len(p.Roles), len(y))
	p.State.SetFitted()

	p.log().Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.TaskKey, string(p.Task),
		log.SamplesKey, len(y),
		log.FeaturesKey, nOut,
	)
	return nil
}

// Transform encodes t with the fitted preprocessor.
func (p *Pipeline) Transform(t preprocessing.Table) (*mat.Dense, error) {
	if !p.IsFitted() {
		return nil, cpErrors.NewNotFittedError("Pipeline", "Transform")
	}
	Xt, err := p.Preprocessor.Transform(t)
	if err != nil {
		return nil, cpErrors.Wrap(err, "failed to transform at step 'preprocess'")
	}
	return Xt, nil
}

// PredictProba returns the positive-class probability for each row of t.
// Only classification pipelines produce probabilities.
func (p *Pipeline) PredictProba(t preprocessing.Table) ([]float64, error) {
	clf, ok := p.Estimator.(model.Classifier)
	if !ok || p.Task != TaskClassification {
		return nil, cpErrors.NewConfigurationError("Pipeline.PredictProba",
			fmt.Sprintf("loaded model is a %s pipeline, not a classifier", p.Task))
	}
	Xt, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(Xt)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 1, proba), nil
}

// Predict returns 0/1 labels at DefaultThreshold for classification and the
// predicted target for regression.
func (p *Pipeline) Predict(t preprocessing.Table) ([]float64, error) {
	if p.Task == TaskClassification {
		proba, err := p.PredictProba(t)
		if err != nil {
			return nil, err
		}
		labels := make([]float64, len(proba))
		for i, v := range proba {
			if v >= DefaultThreshold {
				labels[i] = 1
			}
		}
		return labels, nil
	}

	Xt, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	pred, err := p.Estimator.Predict(Xt)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, pred), nil
}

// FeatureNames returns the names of the encoded columns fed to the estimator.
func (p *Pipeline) FeatureNames() []string {
	if p.Preprocessor == nil {
		return nil
	}
	return p.Preprocessor.GetFeatureNamesOut()
}

// Describe renders the estimator and its main hyperparameters on one line.
func (p *Pipeline) Describe() string {
	switch est := p.Estimator.(type) {
	case *linear_model.LogisticRegression:
		params := est.GetParams()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, params[k])
		}
		return fmt.Sprintf("LogisticRegression(%s)", strings.Join(parts, ", "))
	case *ensemble.RandomForestRegressor:
		return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, random_state=%d, bootstrap=%t)",
			est.NEstimators, est.RandomState, est.Bootstrap)
	case nil:
		return "<none>"
	default:
		return fmt.Sprintf("%T", est)
	}
}

// Save writes the fitted pipeline to path atomically.
func (p *Pipeline) Save(path string) error {
	if !p.IsFitted() {
		return cpErrors.NewNotFittedError("Pipeline", "Save")
	}
	if err := model.SaveModel(p, path); err != nil {
		return err
	}
	p.log().Info("Pipeline saved", log.OperationKey, log.OperationPersist, log.PathKey, path)
	return nil
}

// Load reads a pipeline saved by Save. A missing file is a MissingArtifactError.
func Load(path string) (*Pipeline, error) {
	p := &Pipeline{}
	if err := model.LoadModel(p, path); err != nil {
		return nil, err
	}
	if !p.IsFitted() || p.Preprocessor == nil || p.Estimator == nil {
		return nil, cpErrors.NewDataValidationError("pipeline.Load",
			fmt.Sprintf("artifact %s does not hold a fitted pipeline", path))
	}
	p.log().Info("Pipeline loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.TaskKey, string(p.Task),
	)
	return p, nil
}
