// Package model_selection splits samples into training and holdout sets.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ezoic/churnpulse/pkg/errors"
)

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

type splitConfig struct {
	testSize float64
	seed     int64
	stratify []int
}

// WithTestSize sets the holdout fraction, in (0, 1). Default 0.2.
func WithTestSize(size float64) SplitOption {
	return func(c *splitConfig) { c.testSize = size }
}

// WithSeed sets the shuffling seed. Default 42.
func WithSeed(seed int64) SplitOption {
	return func(c *splitConfig) { c.seed = seed }
}

// WithStratify keeps class proportions of labels in both partitions.
// labels must have one entry per sample.
func WithStratify(labels []int) SplitOption {
	return func(c *splitConfig) { c.stratify = labels }
}

// TrainTestSplit returns row indices of the training and holdout partitions.
//
// The holdout size is ceil(testSize * nSamples). The same seed and options always
// yield the same partitions. With WithStratify every class must have at least two
// members, and the holdout quota of each class is its proportional share with
// largest-remainder rounding.
//
// Example:
//
//	train, test, err := model_selection.TrainTestSplit(len(y),
//		model_selection.WithTestSize(0.2),
//		model_selection.WithSeed(42),
//		model_selection.WithStratify(y))
func TrainTestSplit(nSamples int, opts ...SplitOption) (train, test []int, err error) {
	cfg := splitConfig{testSize: 0.2, seed: 42}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !(cfg.testSize > 0 && cfg.testSize < 1) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}
	if nSamples <= 0 {
		return nil, nil, errors.ErrEmptyData
	}
	nTest := int(math.Ceil(cfg.testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTest <= 0 || nTrain <= 0 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves one of the partitions empty for this number of samples")
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.seed), uint64(cfg.seed)))

	if cfg.stratify == nil {
		perm := rng.Perm(nSamples)
		return perm[nTest:], perm[:nTest], nil
	}

	if len(cfg.stratify) != nSamples {
		return nil, nil, errors.NewDimensionError("TrainTestSplit", nSamples, len(cfg.stratify), 0)
	}
	return stratifiedSplit(cfg.stratify, nTest, rng)
}

func stratifiedSplit(labels []int, nTest int, rng *rand.Rand) (train, test []int, err error) {
	members := make(map[int][]int)
	for i, label := range labels {
		members[label] = append(members[label], i)
	}
	classes := make([]int, 0, len(members))
	for c, idx := range members {
		if len(idx) < 2 {
			return nil, nil, errors.NewValueError("TrainTestSplit",
				"the least populated class has only 1 member, which is too few to stratify")
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	n := len(labels)
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"each partition must be able to hold at least one sample per class")
	}

	// Largest-remainder allocation of the holdout quota.
	quota := make([]int, len(classes))
	remainders := make([]float64, len(classes))
	allocated := 0
	for i, c := range classes {
		exact := float64(len(members[c])) * float64(nTest) / float64(n)
		quota[i] = int(math.Floor(exact))
		remainders[i] = exact - float64(quota[i])
		allocated += quota[i]
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return remainders[order[a]] > remainders[order[b]] })
	for k := 0; allocated < nTest; k = (k + 1) % len(order) {
		i := order[k]
		if quota[i] < len(members[classes[i]])-1 {
			quota[i]++
			allocated++
		}
	}

	for i, c := range classes {
		idx := members[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:quota[i]]...)
		train = append(train, idx[quota[i]:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}
