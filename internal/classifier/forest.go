// Package classifier provides a random forest that maps binary skill vectors
// to a probability distribution over roles.
package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultNumTrees and DefaultSeed match the reference career model.
	DefaultNumTrees = 100
	DefaultSeed     = 42

	defaultMinSamplesSplit = 2
)

// Options controls forest fitting.
type Options struct {
	NumTrees        int
	Seed            int64
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MaxFeatures     int // 0 means floor(sqrt(features))
	Bootstrap       bool
	Workers         int // 0 means GOMAXPROCS
}

// DefaultOptions returns the reference hyper-parameters.
func DefaultOptions() Options {
	return Options{
		NumTrees:        DefaultNumTrees,
		Seed:            DefaultSeed,
		MinSamplesSplit: defaultMinSamplesSplit,
		Bootstrap:       true,
	}
}

func (o Options) withDefaults(numFeatures int) Options {
	if o.NumTrees <= 0 {
		o.NumTrees = DefaultNumTrees
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = defaultMinSamplesSplit
	}
	if o.MaxFeatures <= 0 || o.MaxFeatures > numFeatures {
		o.MaxFeatures = max(1, int(math.Sqrt(float64(numFeatures))))
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// RoleProbability pairs a role with its predicted probability.
type RoleProbability struct {
	Role        string
	Probability float64
}

// Forest is a fitted random forest. It is safe for concurrent use.
type Forest struct {
	classes     []string
	numFeatures int
	trees       []*tree
}

// Fit trains a forest on the feature matrix X and role labels y.
// Classes are ordered lexicographically. Tree i is seeded with opts.Seed+i,
// so the result is reproducible for identical input ordering regardless of
// how many workers fit trees in parallel.
func Fit(X [][]float64, y []string, opts Options) (*Forest, error) {
	if len(X) == 0 || len(y) == 0 {
		return nil, &FitError{Reason: reasonNoSamples}
	}
	if len(X) != len(y) {
		return nil, &FitError{Reason: fmt.Sprintf("%d feature rows but %d labels", len(X), len(y))}
	}
	numFeatures := len(X[0])
	if numFeatures == 0 {
		return nil, &FitError{Reason: reasonNoFeatures}
	}
	for i, row := range X {
		if len(row) != numFeatures {
			return nil, &FitError{Reason: fmt.Sprintf("row %d has %d features, expected %d", i, len(row), numFeatures)}
		}
	}

	classes := distinctSorted(y)
	if len(classes) < MinClasses {
		return nil, &FitError{Reason: reasonTooFewClasses}
	}
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	labels := make([]int, len(y))
	for i, role := range y {
		labels[i] = classIndex[role]
	}

	opts = opts.withDefaults(numFeatures)
	f := &Forest{
		classes:     classes,
		numFeatures: numFeatures,
		trees:       make([]*tree, opts.NumTrees),
	}

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for t := 0; t < opts.NumTrees; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(opts.Seed + int64(t)))
			b := &builder{
				X:          X,
				labels:     labels,
				numClasses: len(classes),
				opts:       opts,
				rng:        rng,
			}
			f.trees[t] = b.build(sampleIndices(len(X), opts.Bootstrap, rng))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// Classes returns the known roles in class order.
func (f *Forest) Classes() []string {
	out := make([]string, len(f.classes))
	copy(out, f.classes)
	return out
}

// NumFeatures returns the expected feature vector width.
func (f *Forest) NumFeatures() int {
	return f.numFeatures
}

// NumTrees returns the ensemble size.
func (f *Forest) NumTrees() int {
	return len(f.trees)
}

// PredictProba averages the leaf class distributions of every tree.
// The returned slice is aligned with Classes and sums to 1.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.numFeatures {
		return nil, fmt.Errorf("feature vector has %d columns, expected %d", len(x), f.numFeatures)
	}
	probs := make([]float64, len(f.classes))
	for _, t := range f.trees {
		dist := t.predict(x)
		for i, p := range dist {
			probs[i] += p
		}
	}
	n := float64(len(f.trees))
	for i := range probs {
		probs[i] /= n
	}
	return probs, nil
}

// PredictRoles is PredictProba with role names attached, in class order.
func (f *Forest) PredictRoles(x []float64) ([]RoleProbability, error) {
	probs, err := f.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]RoleProbability, len(probs))
	for i, p := range probs {
		out[i] = RoleProbability{Role: f.classes[i], Probability: p}
	}
	return out, nil
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sampleIndices(n int, bootstrap bool, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		if bootstrap {
			idx[i] = rng.Intn(n)
		} else {
			idx[i] = i
		}
	}
	return idx
}
