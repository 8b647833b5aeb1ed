package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

type catalogKey struct {
	Column string
	Label  string
}

// EquivalenceCatalog maps (column, label) pairs to the integer codes
// the externally trained regression model expects. Built once at
// startup and read-only afterwards, so concurrent lookups need no
// locking.
type EquivalenceCatalog struct {
	entries map[catalogKey]int
}

// LoadEquivalenceCatalog reads a CSV reference table with columns
// Column, Label, Index. Malformed rows are skipped, not fatal.
// Duplicate (column, label) pairs resolve last-row-wins.
func LoadEquivalenceCatalog(path string) (*EquivalenceCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening equivalence CSV %s: %w", path, err)
	}
	defer f.Close()

	return readEquivalenceCatalog(f)
}

func readEquivalenceCatalog(r io.Reader) (*EquivalenceCatalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading equivalence CSV header: %w", err)
	}

	colIdx, labelIdx, indexIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Column":
			colIdx = i
		case "Label":
			labelIdx = i
		case "Index":
			indexIdx = i
		}
	}
	if colIdx < 0 || labelIdx < 0 || indexIdx < 0 {
		return nil, fmt.Errorf("equivalence CSV header missing Column/Label/Index, got %v", header)
	}

	entries := make(map[catalogKey]int)
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Best-effort ingestion: a broken row does not fail the load.
			skipped++
			continue
		}
		width := len(row)
		if colIdx >= width || labelIdx >= width || indexIdx >= width {
			skipped++
			continue
		}
		index, err := parseCatalogIndex(row[indexIdx])
		if err != nil {
			skipped++
			continue
		}
		entries[catalogKey{Column: row[colIdx], Label: row[labelIdx]}] = index
	}

	if skipped > 0 {
		log.Printf("equivalence catalog: skipped %d malformed rows", skipped)
	}
	log.Printf("equivalence catalog: loaded %d mappings", len(entries))

	return &EquivalenceCatalog{entries: entries}, nil
}

// parseCatalogIndex accepts both integer and float-formatted index
// cells ("3" and "3.0"), since the reference table is exported from a
// dataframe that may widen the column.
func parseCatalogIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Lookup returns the index for a (column, label) pair.
func (c *EquivalenceCatalog) Lookup(column, label string) (int, bool) {
	index, ok := c.entries[catalogKey{Column: column, Label: label}]
	return index, ok
}

// Len reports the number of loaded mappings.
func (c *EquivalenceCatalog) Len() int {
	return len(c.entries)
}
