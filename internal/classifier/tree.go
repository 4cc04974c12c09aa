package classifier

import "math/rand"

// splitThreshold separates absent (0) from present (1) skills.
const splitThreshold = 0.5

type node struct {
	feature int
	left    int
	right   int
	leaf    bool
	dist    []float64
}

// tree is a CART classification tree stored as a flat node slice; node 0 is the root.
type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) []float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.leaf {
			return n.dist
		}
		if x[n.feature] <= splitThreshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type builder struct {
	X          [][]float64
	labels     []int
	numClasses int
	opts       Options
	rng        *rand.Rand
	nodes      []node
}

func (b *builder) build(samples []int) *tree {
	b.nodes = b.nodes[:0]
	b.grow(samples, 0)
	return &tree{nodes: b.nodes}
}

// grow appends the subtree for samples and returns its node index.
func (b *builder) grow(samples []int, depth int) int {
	counts := b.classCounts(samples)
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{})

	if b.shouldStop(samples, counts, depth) {
		b.nodes[id] = b.leaf(counts, len(samples))
		return id
	}

	feature, ok := b.bestSplit(samples)
	if !ok {
		b.nodes[id] = b.leaf(counts, len(samples))
		return id
	}

	var left, right []int
	for _, s := range samples {
		if b.X[s][feature] <= splitThreshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = node{feature: feature, left: l, right: r}
	return id
}

func (b *builder) shouldStop(samples []int, counts []float64, depth int) bool {
	if len(samples) < b.opts.MinSamplesSplit {
		return true
	}
	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		return true
	}
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// bestSplit draws features in random order and returns the one with the
// lowest weighted Gini impurity. At least MaxFeatures features are tried;
// the search keeps going past that only while no usable split was found.
func (b *builder) bestSplit(samples []int) (int, bool) {
	numFeatures := len(b.X[samples[0]])
	order := b.rng.Perm(numFeatures)

	best := -1
	bestImpurity := 0.0
	for tried, f := range order {
		if tried >= b.opts.MaxFeatures && best >= 0 {
			break
		}
		impurity, ok := b.splitImpurity(samples, f)
		if !ok {
			continue
		}
		if best < 0 || impurity < bestImpurity {
			best = f
			bestImpurity = impurity
		}
	}
	return best, best >= 0
}

func (b *builder) splitImpurity(samples []int, feature int) (float64, bool) {
	left := make([]float64, b.numClasses)
	right := make([]float64, b.numClasses)
	var nl, nr float64
	for _, s := range samples {
		if b.X[s][feature] <= splitThreshold {
			left[b.labels[s]]++
			nl++
		} else {
			right[b.labels[s]]++
			nr++
		}
	}
	if nl == 0 || nr == 0 {
		return 0, false
	}
	total := nl + nr
	return nl/total*gini(left, nl) + nr/total*gini(right, nr), true
}

func (b *builder) classCounts(samples []int) []float64 {
	counts := make([]float64, b.numClasses)
	for _, s := range samples {
		counts[b.labels[s]]++
	}
	return counts
}

func (b *builder) leaf(counts []float64, n int) node {
	dist := make([]float64, len(counts))
	if n > 0 {
		for i, c := range counts {
			dist[i] = c / float64(n)
		}
	}
	return node{leaf: true, dist: dist}
}

func gini(counts []float64, n float64) float64 {
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}
