// Package ensemble provides the random forest regressor of the regression variant.
package ensemble

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/churnpulse/core/model"
	cpErrors "github.com/ezoic/churnpulse/pkg/errors"
)

// leaf marks a node without children.
const leaf = -1

// Node is one node of a fitted regression tree. Nodes are stored in a flat slice
// and reference their children by index, which keeps the tree gob-friendly.
type Node struct {
	Feature   int     // Feature index for split (internal nodes)
	Threshold float64 // Samples with value <= Threshold go left
	Left      int     // Index of the left child, or -1 for a leaf
	Right     int     // Index of the right child, or -1 for a leaf
	Value     float64 // Mean target of the samples reaching the node
	NSamples  int
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.Left == leaf }

// DecisionTreeRegressor is a CART regression tree grown with the squared-error
// criterion.
type DecisionTreeRegressor struct {
	State *model.StateManager

	MaxDepth        int // 0 = unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // Features tried per split, 0 = all
	RandomState     int64

	Nodes     []Node
	NFeatures int
}

// DecisionTreeRegressorOption is a functional option
type DecisionTreeRegressorOption func(*DecisionTreeRegressor)

// NewDecisionTreeRegressor creates an unlimited-depth tree considering every
// feature at every split.
func NewDecisionTreeRegressor(opts ...DecisionTreeRegressorOption) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		State:           model.NewStateManager(),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithMaxDepth sets the maximum depth of the tree
func WithMaxDepth(depth int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples to split a node
func WithMinSamplesSplit(n int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf
func WithMinSamplesLeaf(n int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesLeaf = n }
}

// WithTreeRandomState sets the seed used to sample features at each split
func WithTreeRandomState(seed int64) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) { dt.RandomState = seed }
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeRegressor) IsFitted() bool {
	return dt.State != nil && dt.State.IsFitted()
}

// Fit grows the tree on all rows of X.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer cpErrors.Recover(&err, "DecisionTreeRegressor.Fit")
	xD, target, err := toDense("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	n, _ := xD.Dims()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	dt.fitIndices(xD, target, indices)
	return nil
}

// fitIndices grows the tree on the rows listed in indices. Repeated indices act
// as sample weights, which is how bootstrap samples are fitted.
func (dt *DecisionTreeRegressor) fitIndices(X *mat.Dense, y []float64, indices []int) {
	_, nFeatures := X.Dims()
	dt.NFeatures = nFeatures
	dt.Nodes = dt.Nodes[:0]

	b := &treeBuilder{
		dt:       dt,
		X:        X,
		y:        y,
		rng:      rand.New(rand.NewPCG(uint64(dt.RandomState), uint64(dt.RandomState))),
		features: make([]int, nFeatures),
	}
	for j := range b.features {
		b.features[j] = j
	}
	b.build(append([]int(nil), indices...), 0)

	if dt.State == nil {
		dt.State = model.NewStateManager()
	}
	dt.State.SetDimensions(nFeatures, len(indices))
	dt.State.SetFitted()
}

type treeBuilder struct {
	dt       *DecisionTreeRegressor
	X        *mat.Dense
	y        []float64
	rng      *rand.Rand
	features []int
}

// build appends the subtree for indices and returns its root index.
func (b *treeBuilder) build(indices []int, depth int) int {
	n := len(indices)
	sum, sumSq := 0.0, 0.0
	for _, i := range indices {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	mean := sum / float64(n)

	self := len(b.dt.Nodes)
	b.dt.Nodes = append(b.dt.Nodes, Node{Left: leaf, Right: leaf, Value: mean, NSamples: n})

	pure := sumSq-sum*mean <= 1e-12*float64(n)
	if pure || n < b.dt.MinSamplesSplit || n < 2*b.dt.MinSamplesLeaf ||
		(b.dt.MaxDepth > 0 && depth >= b.dt.MaxDepth) {
		return self
	}

	feature, threshold, ok := b.bestSplit(indices, sum)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range indices {
		if b.X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	node := &b.dt.Nodes[self]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = l
	node.Right = r
	return self
}

// bestSplit finds the split maximizing sumL²/nL + sumR²/nR, which is the split
// with the largest squared-error reduction.
func (b *treeBuilder) bestSplit(indices []int, total float64) (feature int, threshold float64, ok bool) {
	n := len(indices)
	minLeaf := b.dt.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	candidates := b.features
	if m := b.dt.MaxFeatures; m > 0 && m < len(b.features) {
		b.rng.Shuffle(len(b.features), func(i, j int) {
			b.features[i], b.features[j] = b.features[j], b.features[i]
		})
		candidates = b.features[:m]
	}

	bestScore := total * total / float64(n)
	order := make([]int, n)
	for _, f := range candidates {
		copy(order, indices)
		sort.Slice(order, func(a, c int) bool { return b.X.At(order[a], f) < b.X.At(order[c], f) })

		leftSum := 0.0
		for k := 0; k < n-1; k++ {
			leftSum += b.y[order[k]]
			nLeft := k + 1
			if nLeft < minLeaf || n-nLeft < minLeaf {
				continue
			}
			lo, hi := b.X.At(order[k], f), b.X.At(order[k+1], f)
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(n-nLeft)
			if score > bestScore+1e-12 {
				bestScore = score
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold == hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// predictRow walks the tree for one sample.
func (dt *DecisionTreeRegressor) predictRow(row []float64) float64 {
	k := 0
	for !dt.Nodes[k].IsLeaf() {
		if row[dt.Nodes[k].Feature] <= dt.Nodes[k].Threshold {
			k = dt.Nodes[k].Left
		} else {
			k = dt.Nodes[k].Right
		}
	}
	return dt.Nodes[k].Value
}

// Predict returns an n × 1 matrix of predictions.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer cpErrors.Recover(&err, "DecisionTreeRegressor.Predict")
	if !dt.IsFitted() {
		return nil, cpErrors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	n, c := X.Dims()
	if c != dt.NFeatures {
		return nil, cpErrors.NewDimensionError("DecisionTreeRegressor.Predict", dt.NFeatures, c, 1)
	}
	out := mat.NewDense(n, 1, nil)
	row := make([]float64, c)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, dt.predictRow(row))
	}
	return out, nil
}

// GetDepth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	var walk func(k int) int
	walk = func(k int) int {
		if dt.Nodes[k].IsLeaf() {
			return 0
		}
		return 1 + max(walk(dt.Nodes[k].Left), walk(dt.Nodes[k].Right))
	}
	return walk(0)
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	count := 0
	for _, n := range dt.Nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

func toDense(op string, X, y mat.Matrix) (*mat.Dense, []float64, error) {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return nil, nil, cpErrors.NewModelError(op, "empty data", cpErrors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != n {
		return nil, nil, cpErrors.NewDimensionError(op, n, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, cpErrors.NewDimensionError(op, 1, yCols, 1)
	}
	return mat.DenseCopyOf(X), mat.Col(nil, 0, y), nil
}
