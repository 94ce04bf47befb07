package autotrain

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// treeNode is a node of a regression tree. Nodes serialize to JSON so fitted
// models can be written to the model directory.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// treeParams controls tree growth. maxFeatures <= 0 considers every feature
// at each split. randomThresholds switches from best-split search to the
// extra-trees strategy of drawing one random threshold per feature.
type treeParams struct {
	maxDepth         int
	minSamplesLeaf   int
	maxFeatures      int
	randomThresholds bool
}

func mean(y []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

// sse returns the sum of squared errors around the mean of y[idx].
func sse(y []float64, idx []int) float64 {
	m := mean(y, idx)
	var sum float64
	for _, i := range idx {
		d := y[i] - m
		sum += d * d
	}
	return sum
}

// growTree recursively builds a regression tree over the rows in idx,
// splitting on the feature/threshold pair with the largest SSE reduction.
func growTree(X *mat.Dense, y []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *treeNode {
	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return &treeNode{Leaf: true, Value: mean(y, idx)}
	}
	parentSSE := sse(y, idx)
	if parentSSE == 0 {
		return &treeNode{Leaf: true, Value: mean(y, idx)}
	}

	_, nFeatures := X.Dims()
	features := candidateFeatures(nFeatures, p.maxFeatures, rng)

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	var bestLeft, bestRight []int

	for _, j := range features {
		for _, th := range thresholds(X, idx, j, p.randomThresholds, rng) {
			var left, right []int
			for _, i := range idx {
				if X.At(i, j) <= th {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < p.minSamplesLeaf || len(right) < p.minSamplesLeaf {
				continue
			}
			gain := parentSSE - sse(y, left) - sse(y, right)
			if gain > bestGain {
				bestGain = gain
				bestFeature = j
				bestThreshold = th
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{Leaf: true, Value: mean(y, idx)}
	}
	return &treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      growTree(X, y, bestLeft, depth+1, p, rng),
		Right:     growTree(X, y, bestRight, depth+1, p, rng),
	}
}

func candidateFeatures(nFeatures, maxFeatures int, rng *rand.Rand) []int {
	all := make([]int, nFeatures)
	for j := range all {
		all[j] = j
	}
	if maxFeatures <= 0 || maxFeatures >= nFeatures {
		return all
	}
	rng.Shuffle(nFeatures, func(i, j int) { all[i], all[j] = all[j], all[i] })
	sub := all[:maxFeatures]
	sort.Ints(sub)
	return sub
}

// thresholds returns candidate split points for feature j over rows idx:
// midpoints between consecutive distinct values, or a single random draw in
// [min,max) for the extra-trees strategy.
func thresholds(X *mat.Dense, idx []int, j int, random bool, rng *rand.Rand) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		v := X.At(i, j)
		vals = append(vals, v)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return nil
	}
	if random {
		return []float64{lo + rng.Float64()*(hi-lo)}
	}
	sort.Float64s(vals)
	var ths []float64
	for i := 1; i < len(vals); i++ {
		if vals[i] != vals[i-1] {
			ths = append(ths, (vals[i]+vals[i-1])/2)
		}
	}
	return ths
}

func (n *treeNode) predictRow(X *mat.Dense, i int) float64 {
	node := n
	for !node.Leaf {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}
