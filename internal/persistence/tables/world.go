// Package tables reads and writes the planner's CSV inputs and outputs.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"nations.ai/internal/protocol"
	"nations.ai/internal/sim/resources"
	"nations.ai/internal/sim/world"
)

const countryColumn = "Country"

// ReadWorld parses a world table: a Country column plus one column per
// resource. Blank cells mean the country does not hold the resource.
func ReadWorld(r io.Reader, q world.QualityFunc) (*world.World, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: world table is empty", protocol.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("world table: %w", err)
	}
	nameCol := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == countryColumn {
			nameCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("%w: world table has no %s column", protocol.ErrInvalidArgument, countryColumn)
	}

	var countries []*world.Country
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("world table: %w", err)
		}
		name := strings.TrimSpace(rec[nameCol])
		amounts := make(map[string]int, len(rec)-1)
		for i, cell := range rec {
			cell = strings.TrimSpace(cell)
			if i == nameCol || cell == "" {
				continue
			}
			n, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d, %s %s: %q", protocol.ErrInvalidNumericField, line, name, header[i], cell)
			}
			amounts[header[i]] = n
		}
		countries = append(countries, world.NewCountry(name, resources.FromMap(amounts)))
	}
	return world.New(countries, q)
}

func LoadWorld(path string, q world.QualityFunc) (*world.World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	w, err := ReadWorld(f, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// WriteWorld writes w as a world table. Resource columns are the sorted
// union of every country's resources.
func WriteWorld(out io.Writer, w *world.World) error {
	names := w.Countries()
	seen := map[string]bool{}
	var cols []string
	for _, n := range names {
		c, err := w.Country(n)
		if err != nil {
			return err
		}
		for _, r := range c.Resources.Resources() {
			if !seen[r] {
				seen[r] = true
				cols = append(cols, r)
			}
		}
	}
	sort.Strings(cols)

	cw := csv.NewWriter(out)
	if err := cw.Write(append([]string{countryColumn}, cols...)); err != nil {
		return err
	}
	for _, n := range names {
		c, _ := w.Country(n)
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, n)
		for _, r := range cols {
			if q := c.Resources.Quantity(r); q != 0 {
				rec = append(rec, strconv.Itoa(q))
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
