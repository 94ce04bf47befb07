package dataset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDataset(n int) *Dataset {
	ds := &Dataset{Columns: []string{"id", "price"}}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, Row{"id": int64(i), "price": float64(i) * 1.5})
	}
	return ds
}

func TestSplitCounts(t *testing.T) {
	ds := makeDataset(100)

	train, test, err := ds.Split(0.8, 42)
	require.NoError(t, err)
	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, test.Len())
}

func TestSplitDeterministic(t *testing.T) {
	ds := makeDataset(100)

	train1, test1, err := ds.Split(0.8, 42)
	require.NoError(t, err)
	train2, test2, err := ds.Split(0.8, 42)
	require.NoError(t, err)

	assert.Equal(t, train1.Rows, train2.Rows)
	assert.Equal(t, test1.Rows, test2.Rows)
}

func TestSplitDisjointAndExhaustive(t *testing.T) {
	ds := makeDataset(101)

	train, test, err := ds.Split(0.8, 7)
	require.NoError(t, err)

	seen := make(map[int64]string, ds.Len())
	for _, row := range train.Rows {
		seen[row["id"].(int64)] = "train"
	}
	for _, row := range test.Rows {
		id := row["id"].(int64)
		_, dup := seen[id]
		require.False(t, dup, fmt.Sprintf("row %d appears in both partitions", id))
		seen[id] = "test"
	}
	assert.Len(t, seen, ds.Len())
}

func TestSplitEmptyDataset(t *testing.T) {
	ds := &Dataset{Columns: []string{"a"}}
	_, _, err := ds.Split(0.8, 42)
	assert.Error(t, err)
}

func TestSplitInvalidFraction(t *testing.T) {
	ds := makeDataset(10)
	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := ds.Split(frac, 42)
		assert.Error(t, err, "fraction %v must be rejected", frac)
	}
}
