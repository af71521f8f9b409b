package ensemble

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/core/model"
	"github.com/ezoic/churnpulse/metrics"
	"github.com/ezoic/churnpulse/pkg/log"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// RandomForestRegressor averages regression trees grown on bootstrap samples.
//
// Tree i draws its bootstrap sample and its feature subsets from a generator
// seeded with (RandomState, i), so the fitted forest does not depend on the
// number of workers.
type RandomForestRegressor struct {
	State *model.StateManager

	NEstimators     int
	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 = all features
	Bootstrap       bool
	RandomState     int64
	NJobs           int // Concurrent tree builders, 0 = GOMAXPROCS

	Trees     []*DecisionTreeRegressor
	NFeatures int
}

// RandomForestOption is a functional option for RandomForestRegressor
type RandomForestOption func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithForestMaxDepth limits the depth of every tree.
func WithForestMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithMaxFeatures sets the number of features tried per split.
func WithMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = n }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}

// WithRandomState sets the forest seed.
func WithRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs sets the number of concurrent tree builders.
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.NJobs = n }
}

// NewRandomForestRegressor creates a forest of 100 fully grown bootstrap trees
// considering all features at each split, seeded with 42.
func NewRandomForestRegressor(opts ...RandomForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		State:           model.NewStateManager(),
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// IsFitted reports whether Fit has completed.
func (rf *RandomForestRegressor) IsFitted() bool {
	return rf.State != nil && rf.State.IsFitted()
}

// Fit grows NEstimators trees concurrently.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer cpErrors.Recover(&err, "RandomForestRegressor.Fit")
	if rf.NEstimators <= 0 {
		return cpErrors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}
	xD, target, err := toDense("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	n, nFeatures := xD.Dims()

	workers := rf.NJobs
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger := log.GetLoggerWithName("RandomForestRegressor")
	logger.Debug("Growing forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, nFeatures,
		"n_estimators", rf.NEstimators,
		"workers", workers,
	)

	trees := make([]*DecisionTreeRegressor, rf.NEstimators)
	sem := make(chan struct{}, workers)
	errCh := make(chan error, rf.NEstimators)
	var wg sync.WaitGroup

	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			var treeErr error
			defer func() {
				if treeErr != nil {
					errCh <- treeErr
				}
			}()
			defer cpErrors.Recover(&treeErr, "RandomForestRegressor.Fit")

			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewPCG(uint64(rf.RandomState), uint64(idx)))

			indices := make([]int, n)
			for j := range indices {
				if rf.Bootstrap {
					indices[j] = treeRand.IntN(n)
				} else {
					indices[j] = j
				}
			}

			tree := NewDecisionTreeRegressor(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithTreeRandomState(seed),
			)
			tree.MaxFeatures = rf.MaxFeatures
			tree.fitIndices(xD, target, indices)
			trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	if err, ok := <-errCh; ok {
		return err
	}

	rf.Trees = trees
	rf.NFeatures = nFeatures
	if rf.State == nil {
		rf.State = model.NewStateManager()
	}
	rf.State.SetDimensions(nFeatures, n)
	rf.State.SetFitted()
	return nil
}

// Predict returns the mean prediction of all trees as an n × 1 matrix.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer cpErrors.Recover(&err, "RandomForestRegressor.Predict")
	if !rf.IsFitted() {
		return nil, cpErrors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	n, c := X.Dims()
	if c != rf.NFeatures {
		return nil, cpErrors.NewDimensionError("RandomForestRegressor.Predict", rf.NFeatures, c, 1)
	}

	out := mat.NewDense(n, 1, nil)
	row := make([]float64, c)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		sum := 0.0
		for _, tree := range rf.Trees {
			sum += tree.predictRow(row)
		}
		out.Set(i, 0, sum/float64(len(rf.Trees)))
	}
	return out, nil
}

// Score returns the coefficient of determination R² of the predictions.
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, yPred := mat.Col(nil, 0, y), mat.Col(nil, 0, pred)
	return metrics.R2Score(mat.NewVecDense(len(yTrue), yTrue), mat.NewVecDense(len(yPred), yPred))
}
