package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/quality"
)

// ReadWeights parses a resource,weight,baseline table. Rows with a blank
// field are skipped; a table without a single usable row is an error.
func ReadWeights(r io.Reader) (*quality.StateQuality, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: weights table is empty", protocol.ErrInvalidNumericField)
	}
	if err != nil {
		return nil, fmt.Errorf("weights table: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	weight := map[string]float64{}
	baseline := map[string]float64{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("weights table: %w", err)
		}
		res, wt, bl := field(rec, "resource"), field(rec, "weight"), field(rec, "baseline")
		if res == "" || wt == "" || bl == "" {
			continue
		}
		w, err := strconv.ParseFloat(wt, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d weight %q", protocol.ErrInvalidNumericField, line, wt)
		}
		b, err := strconv.ParseFloat(bl, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d baseline %q", protocol.ErrInvalidNumericField, line, bl)
		}
		weight[res] = w
		baseline[res] = b
	}
	if len(weight) == 0 {
		return nil, fmt.Errorf("%w: no valid weight rows", protocol.ErrInvalidNumericField)
	}
	return quality.New(weight, baseline), nil
}

func LoadWeights(path string) (*quality.StateQuality, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	q, err := ReadWeights(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}
