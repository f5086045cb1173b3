package forest

import "runtime"

// ClassWeight selects how training rows are weighted by label.
type ClassWeight string

const (
	// Balanced weights each class by n / (k * count), so rare categories
	// carry as much total weight as common ones.
	Balanced ClassWeight = "balanced"
	// Uniform gives every row weight 1.
	Uniform ClassWeight = "uniform"
)

// Defaults used when no option overrides them.
const (
	DefaultTrees    = 200
	DefaultSeed     = int64(42)
	DefaultMinSplit = 2
	DefaultMinLeaf  = 1
)

type config struct {
	progress    func()
	classWeight ClassWeight
	seed        int64
	trees       int
	maxDepth    int
	minSplit    int
	minLeaf     int
	workers     int
}

func defaultConfig() config {
	return config{
		trees:       DefaultTrees,
		seed:        DefaultSeed,
		minSplit:    DefaultMinSplit,
		minLeaf:     DefaultMinLeaf,
		classWeight: Balanced,
		workers:     runtime.GOMAXPROCS(0),
	}
}

// Option configures a Forest.
type Option func(*config)

// WithTrees sets the number of trees. At least one tree is always grown.
func WithTrees(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.trees = n
	}
}

// WithSeed fixes the randomness of bootstrap sampling and feature selection.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxDepth = n
	}
}

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(c *config) {
		if n < 2 {
			n = 2
		}
		c.minSplit = n
	}
}

// WithMinSamplesLeaf sets the smallest number of samples a leaf may hold.
func WithMinSamplesLeaf(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.minLeaf = n
	}
}

// WithClassWeight selects the class weighting scheme.
func WithClassWeight(w ClassWeight) Option {
	return func(c *config) {
		c.classWeight = w
	}
}

// WithWorkers bounds how many trees are grown concurrently.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithProgress registers a callback invoked once per fitted tree. It may be
// called from several goroutines at once.
func WithProgress(fn func()) Option {
	return func(c *config) {
		c.progress = fn
	}
}
