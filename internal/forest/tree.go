package forest

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Veraticus/spice-categorizer/internal/feature"
)

const leafFeature = -1

// Node is one entry of a flattened decision tree. Leaves have Feature -1
// and carry the normalized class distribution in Value.
type Node struct {
	Value     []float64 `json:"value,omitempty"`
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
}

// Tree is a CART classification tree stored as a node array rooted at 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leaf(x feature.SparseVector) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature == leafFeature {
			return n.Value
		}
		if x.At(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// sample is one distinct training row inside a bootstrap draw.
type sample struct {
	row    int
	class  int
	weight float64
}

type builder struct {
	rng       *rand.Rand
	x         []feature.SparseVector
	cfg       *config
	nodes     []Node
	nClasses  int
	nFeatures int
	mtry      int
}

type point struct {
	value  float64
	class  int
	weight float64
}

func growTree(x []feature.SparseVector, samples []sample, nClasses, nFeatures int, cfg *config, rng *rand.Rand) Tree {
	mtry := int(math.Floor(math.Sqrt(float64(nFeatures))))
	if mtry < 1 {
		mtry = 1
	}
	b := &builder{
		rng:       rng,
		x:         x,
		cfg:       cfg,
		nClasses:  nClasses,
		nFeatures: nFeatures,
		mtry:      mtry,
	}
	b.grow(samples, 0)
	return Tree{Nodes: b.nodes}
}

func (b *builder) distribution(samples []sample) ([]float64, float64) {
	dist := make([]float64, b.nClasses)
	var total float64
	for _, s := range samples {
		dist[s.class] += s.weight
		total += s.weight
	}
	return dist, total
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, w := range dist {
		p := w / total
		sum += p * p
	}
	return 1 - sum
}

func (b *builder) makeLeaf(dist []float64, total float64) int {
	value := make([]float64, len(dist))
	if total > 0 {
		for i, w := range dist {
			value[i] = w / total
		}
	}
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Value: value})
	return len(b.nodes) - 1
}

func (b *builder) grow(samples []sample, depth int) int {
	dist, total := b.distribution(samples)
	impurity := gini(dist, total)

	if impurity <= 0 ||
		len(samples) < b.cfg.minSplit ||
		len(samples) < 2*b.cfg.minLeaf ||
		(b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) {
		return b.makeLeaf(dist, total)
	}

	feat, threshold, ok := b.bestSplit(samples, dist, total, impurity)
	if !ok {
		return b.makeLeaf(dist, total)
	}

	var left, right []sample
	for _, s := range samples {
		if b.x[s.row].At(feat) <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feat, Threshold: threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// colEntry is a stored value of one feature for the sample at pos.
type colEntry struct {
	pos   int
	value float64
}

// columns indexes the node's samples by feature. Features absent from the
// map are zero for every sample.
func (b *builder) columns(samples []sample) map[int][]colEntry {
	cols := make(map[int][]colEntry)
	for pos, s := range samples {
		x := b.x[s.row]
		for k, f := range x.Indices {
			cols[f] = append(cols[f], colEntry{pos: pos, value: x.Values[k]})
		}
	}
	return cols
}

func constantColumn(col []colEntry, n int) bool {
	if len(col) == 0 {
		return true
	}
	first := col[0].value
	if len(col) < n {
		first = 0
	}
	for _, e := range col {
		if e.value != first {
			return false
		}
	}
	return true
}

// bestSplit visits features in random order and stops after mtry
// non-constant features were evaluated.
func (b *builder) bestSplit(samples []sample, parent []float64, total, impurity float64) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 1e-12

	cols := b.columns(samples)
	points := make([]point, len(samples))
	leftDist := make([]float64, b.nClasses)
	tried := 0

	for _, f := range b.rng.Perm(b.nFeatures) {
		if tried >= b.mtry {
			break
		}

		col := cols[f]
		if constantColumn(col, len(samples)) {
			continue
		}
		tried++

		for i, s := range samples {
			points[i] = point{class: s.class, weight: s.weight}
		}
		for _, e := range col {
			points[e.pos].value = e.value
		}

		sort.Slice(points, func(i, j int) bool { return points[i].value < points[j].value })

		for c := range leftDist {
			leftDist[c] = 0
		}
		var leftTotal float64
		for i := 0; i < len(points)-1; i++ {
			leftDist[points[i].class] += points[i].weight
			leftTotal += points[i].weight

			if points[i].value == points[i+1].value {
				continue
			}
			nLeft := i + 1
			if nLeft < b.cfg.minLeaf || len(points)-nLeft < b.cfg.minLeaf {
				continue
			}

			rightTotal := total - leftTotal
			var leftSq, rightSq float64
			for c := range leftDist {
				lw := leftDist[c]
				rw := parent[c] - lw
				leftSq += lw * lw
				rightSq += rw * rw
			}
			var childImpurity float64
			if leftTotal > 0 {
				childImpurity += leftTotal - leftSq/leftTotal
			}
			if rightTotal > 0 {
				childImpurity += rightTotal - rightSq/rightTotal
			}
			gain := impurity*total - childImpurity
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = points[i].value + (points[i+1].value-points[i].value)/2
				if bestThreshold >= points[i+1].value {
					bestThreshold = points[i].value
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
