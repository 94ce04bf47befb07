package autotrain

import (
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"autotab/pkg/errors"
)

// forestRegressor averages an ensemble of regression trees. With Bootstrap it
// behaves as a random forest; with RandomThresholds and no bootstrap it is
// the extra-trees variant.
type forestRegressor struct {
	NTrees           int         `json:"n_estimators"`
	MaxDepth         int         `json:"max_depth"`
	MinSamplesLeaf   int         `json:"min_samples_leaf"`
	Bootstrap        bool        `json:"bootstrap"`
	RandomThresholds bool        `json:"random_thresholds"`
	Seed             int64       `json:"seed"`
	Trees            []*treeNode `json:"trees"`

	deadline time.Time
}

func (f *forestRegressor) fit(X *mat.Dense, y []float64) error {
	n, nFeatures := X.Dims()
	if n == 0 {
		return errors.NewModelError("forest.fit", "empty data", errors.ErrEmptyData)
	}
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	params := treeParams{
		maxDepth:         f.MaxDepth,
		minSamplesLeaf:   f.MinSamplesLeaf,
		maxFeatures:      maxFeatures,
		randomThresholds: f.RandomThresholds,
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = f.Trees[:0]
	for t := 0; t < f.NTrees; t++ {
		// Cooperative time budget: stop growing the ensemble, keep what
		// has been built so far.
		if !f.deadline.IsZero() && time.Now().After(f.deadline) && len(f.Trees) > 0 {
			break
		}
		idx := make([]int, n)
		if f.Bootstrap {
			for i := range idx {
				idx[i] = rng.Intn(n)
			}
		} else {
			for i := range idx {
				idx[i] = i
			}
		}
		f.Trees = append(f.Trees, growTree(X, y, idx, 0, params, rng))
	}
	return nil
}

func (f *forestRegressor) predict(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	preds := make([]float64, n)
	if len(f.Trees) == 0 {
		return preds
	}
	for i := 0; i < n; i++ {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.predictRow(X, i)
		}
		preds[i] = sum / float64(len(f.Trees))
	}
	return preds
}

func (f *forestRegressor) marshal() ([]byte, error) {
	return json.Marshal(f)
}
