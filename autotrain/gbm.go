package autotrain

import (
	"encoding/json"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"autotab/pkg/errors"
)

// gbmRegressor is a gradient-boosted ensemble of shallow regression trees
// fitted to residuals, with shrinkage applied per round.
type gbmRegressor struct {
	NumBoostRound  int         `json:"num_boost_round"`
	LearningRate   float64     `json:"learning_rate"`
	MaxDepth       int         `json:"max_depth"`
	MinSamplesLeaf int         `json:"min_samples_leaf"`
	Seed           int64       `json:"seed"`
	InitScore      float64     `json:"init_score"`
	Trees          []*treeNode `json:"trees"`

	deadline time.Time
}

func (g *gbmRegressor) fit(X *mat.Dense, y []float64) error {
	n, _ := X.Dims()
	if n == 0 {
		return errors.NewModelError("gbm.fit", "empty data", errors.ErrEmptyData)
	}

	var sum float64
	for _, v := range y {
		sum += v
	}
	g.InitScore = sum / float64(n)

	current := make([]float64, n)
	for i := range current {
		current[i] = g.InitScore
	}
	residuals := make([]float64, n)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	params := treeParams{
		maxDepth:       g.MaxDepth,
		minSamplesLeaf: g.MinSamplesLeaf,
	}
	rng := rand.New(rand.NewSource(g.Seed))

	g.Trees = g.Trees[:0]
	for round := 0; round < g.NumBoostRound; round++ {
		if !g.deadline.IsZero() && time.Now().After(g.deadline) && len(g.Trees) > 0 {
			break
		}
		for i := range residuals {
			residuals[i] = y[i] - current[i]
		}
		tree := growTree(X, residuals, idx, 0, params, rng)
		g.Trees = append(g.Trees, tree)
		for i := 0; i < n; i++ {
			current[i] += g.LearningRate * tree.predictRow(X, i)
		}
	}
	return nil
}

func (g *gbmRegressor) predict(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	preds := make([]float64, n)
	for i := 0; i < n; i++ {
		p := g.InitScore
		for _, tree := range g.Trees {
			p += g.LearningRate * tree.predictRow(X, i)
		}
		preds[i] = p
	}
	return preds
}

func (g *gbmRegressor) marshal() ([]byte, error) {
	return json.Marshal(g)
}
