package dataset

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"strconv"

	"autotab/pkg/errors"
	"autotab/pkg/log"
)

// Synthetic generator column set, in order. A fully synthetic dataset has
// exactly these columns; padded rows carry them plus empty cells for any
// extra columns the source file had.
var syntheticColumns = []string{"rating", "review_text", "category", "price"}

// LoadOrCreate loads the CSV dataset at path, padding it with synthetic rows
// up to minRows. A missing file is the only condition that triggers full
// synthesis; every other I/O or parse error is propagated as an acquisition
// failure. Real rows are never truncated or altered.
func LoadOrCreate(path string, minRows int) (*Dataset, error) {
	logger := log.With("dataset")

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info().Int("rows", minRows).Msg("data file missing, creating synthetic dataset")
			return Synthesize(minRows, rand.New(rand.NewSource(defaultSyntheticSeed))), nil
		}
		return nil, errors.Wrapf(err, "loading dataset from %s", path)
	}
	defer f.Close()

	ds, err := readCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing dataset from %s", path)
	}
	logger.Info().Int("rows", ds.Len()).Int("columns", len(ds.Columns)).Msg("data loaded from file")

	if ds.Len() < minRows {
		logger.Info().Int("have", ds.Len()).Int("want", minRows).Msg("padding with synthetic rows")
		pad(ds, minRows, rand.New(rand.NewSource(defaultSyntheticSeed)))
	}
	return ds, nil
}

// defaultSyntheticSeed keeps synthetic datasets reproducible across runs.
const defaultSyntheticSeed = 1

func readCSV(f *os.File) (*Dataset, error) {
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("csv file has no header row")
	}

	header := records[0]
	ds := &Dataset{Columns: append([]string(nil), header...)}
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		for j, c := range header {
			if j < len(rec) {
				row[c] = parseCell(rec[j])
			} else {
				row[c] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// parseCell keeps the narrowest type the cell converts to: int64, then
// float64, then string.
func parseCell(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Synthesize builds a dataset of n synthetic product-review rows:
// rating 1-5, review text, binary category, price in [10,1000).
func Synthesize(n int, rng *rand.Rand) *Dataset {
	ds := &Dataset{Columns: append([]string(nil), syntheticColumns...)}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, syntheticRow(i, rng))
	}
	return ds
}

func syntheticRow(i int, rng *rand.Rand) Row {
	return Row{
		"rating":      int64(rng.Intn(5) + 1),
		"review_text": fmt.Sprintf("Review %d", i),
		"category":    int64(rng.Intn(2)),
		"price":       10 + rng.Float64()*990,
	}
}

// pad appends synthetic rows until ds has minRows rows. Columns outside the
// synthetic generator's set are filled with empty strings so the column set
// stays stable.
func pad(ds *Dataset, minRows int, rng *rand.Rand) {
	for _, c := range syntheticColumns {
		if !ds.HasColumn(c) {
			ds.Columns = append(ds.Columns, c)
			for _, row := range ds.Rows {
				if _, ok := row[c]; !ok {
					row[c] = ""
				}
			}
		}
	}
	for i := ds.Len(); ds.Len() < minRows; i++ {
		row := syntheticRow(i, rng)
		for _, c := range ds.Columns {
			if _, ok := row[c]; !ok {
				row[c] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
}
