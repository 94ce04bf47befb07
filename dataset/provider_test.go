package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadOrCreateMissingFileSynthesizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	ds, err := LoadOrCreate(path, 100)
	require.NoError(t, err)

	assert.Equal(t, 100, ds.Len())
	assert.ElementsMatch(t, []string{"rating", "review_text", "category", "price"}, ds.Columns)

	for _, row := range ds.Rows {
		rating := row["rating"].(int64)
		assert.GreaterOrEqual(t, rating, int64(1))
		assert.LessOrEqual(t, rating, int64(5))

		category := row["category"].(int64)
		assert.Contains(t, []int64{0, 1}, category)

		price := row["price"].(float64)
		assert.GreaterOrEqual(t, price, 10.0)
		assert.Less(t, price, 1000.0)
	}
}

func TestLoadOrCreateShortFilePadsToMinRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	content := "rating,review_text,category,price\n"
	for i := 0; i < 30; i++ {
		content += "5,real review,1,42.5\n"
	}
	writeFile(t, path, content)

	ds, err := LoadOrCreate(path, 100)
	require.NoError(t, err)
	require.Equal(t, 100, ds.Len())

	// Every original row is present, unmodified, ahead of the padding.
	for i := 0; i < 30; i++ {
		row := ds.Rows[i]
		assert.Equal(t, int64(5), row["rating"])
		assert.Equal(t, "real review", row["review_text"])
		assert.Equal(t, int64(1), row["category"])
		assert.Equal(t, 42.5, row["price"])
	}
}

func TestLoadOrCreateLargeFileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	content := "rating,review_text,category,price\n"
	for i := 0; i < 150; i++ {
		content += "3,ok,0,10\n"
	}
	writeFile(t, path, content)

	ds, err := LoadOrCreate(path, 100)
	require.NoError(t, err)
	assert.Equal(t, 150, ds.Len())
	assert.Equal(t, []string{"rating", "review_text", "category", "price"}, ds.Columns)
}

func TestLoadOrCreateExtraColumnsTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	writeFile(t, path, "rating,review_text,category,price,seller\n4,fine,0,20.0,acme\n")

	ds, err := LoadOrCreate(path, 5)
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())
	assert.True(t, ds.HasColumn("seller"))

	// Padded rows carry the extra column as an empty cell.
	assert.Equal(t, "acme", ds.Rows[0]["seller"])
	assert.Equal(t, "", ds.Rows[1]["seller"])
}

func TestLoadOrCreateParseErrorPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	writeFile(t, path, "rating,price\n1,2\n1,2,3,4\n")

	_, err := LoadOrCreate(path, 100)
	assert.Error(t, err)
}

func TestLoadOrCreateUnreadableFilePropagates(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored for root")
	}
	path := filepath.Join(t.TempDir(), "secret.csv")
	writeFile(t, path, "rating\n1\n")
	require.NoError(t, os.Chmod(path, 0o000))

	_, err := LoadOrCreate(path, 100)
	assert.Error(t, err)
}

func TestSynthesizeIsReproducible(t *testing.T) {
	a, err := LoadOrCreate(filepath.Join(t.TempDir(), "a.csv"), 50)
	require.NoError(t, err)
	b, err := LoadOrCreate(filepath.Join(t.TempDir(), "b.csv"), 50)
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}
