package autotrain

import (
	"time"
)

// Hyperparameters maps a model-family identifier to that family's tuning
// knobs. Families absent from the map are excluded from the ensemble.
type Hyperparameters map[string]map[string]any

// DefaultHyperparameters is the standard family table: boosted trees, random
// forest, extra trees and least squares. KNN is deliberately absent.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		FamilyGBM: {"num_boost_round": 100},
		FamilyRF:  {"n_estimators": 100},
		FamilyXT:  {"n_estimators": 100},
		FamilyLR:  {},
	}
}

// Supported model-family identifiers.
const (
	FamilyGBM = "GBM"
	FamilyRF  = "RF"
	FamilyXT  = "XT"
	FamilyLR  = "LR"
)

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return def
	}
}

func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return def
	}
}

// buildRegressor constructs the regressor for a family from its knobs.
// Returns false for families this engine does not implement.
func buildRegressor(family string, params map[string]any, seed int64, deadline time.Time) (regressor, bool) {
	switch family {
	case FamilyGBM:
		return &gbmRegressor{
			NumBoostRound:  intParam(params, "num_boost_round", 100),
			LearningRate:   floatParam(params, "learning_rate", 0.1),
			MaxDepth:       intParam(params, "max_depth", 3),
			MinSamplesLeaf: intParam(params, "min_samples_leaf", 2),
			Seed:           seed,
			deadline:       deadline,
		}, true
	case FamilyRF:
		return &forestRegressor{
			NTrees:         intParam(params, "n_estimators", 100),
			MaxDepth:       intParam(params, "max_depth", 10),
			MinSamplesLeaf: intParam(params, "min_samples_leaf", 2),
			Bootstrap:      true,
			Seed:           seed,
			deadline:       deadline,
		}, true
	case FamilyXT:
		return &forestRegressor{
			NTrees:           intParam(params, "n_estimators", 100),
			MaxDepth:         intParam(params, "max_depth", 10),
			MinSamplesLeaf:   intParam(params, "min_samples_leaf", 2),
			RandomThresholds: true,
			Seed:             seed,
			deadline:         deadline,
		}, true
	case FamilyLR:
		return &linearRegressor{}, true
	default:
		return nil, false
	}
}
