package dataset

import (
	"math/rand"

	"autotab/pkg/errors"
)

// Split partitions the dataset into train and test by sampling trainFraction
// of the rows without replacement. The shuffle is driven entirely by seed, so
// the same seed on the same dataset reproduces the same partition. Every row
// lands in exactly one side.
func (d *Dataset) Split(trainFraction float64, seed int64) (train, test *Dataset, err error) {
	if d.Len() == 0 {
		return nil, nil, errors.NewValueError("Split", "cannot split empty dataset")
	}
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, errors.NewValidationError("train_fraction", "must be in (0,1)", trainFraction)
	}

	n := d.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	trainCount := int(float64(n) * trainFraction)

	train = &Dataset{Columns: append([]string(nil), d.Columns...)}
	test = &Dataset{Columns: append([]string(nil), d.Columns...)}
	for _, idx := range indices[:trainCount] {
		train.Rows = append(train.Rows, d.Rows[idx])
	}
	for _, idx := range indices[trainCount:] {
		test.Rows = append(test.Rows, d.Rows[idx])
	}
	return train, test, nil
}
