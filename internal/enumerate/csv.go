package enumerate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// CSVSource enumerates unique identities from one column of a CSV file. The
// first row is treated as a header when Column names one of its cells;
// otherwise the first column of every row is used.
type CSVSource struct {
	Path   string
	Column string
	Tier   catalog.Tier
}

// Enumerate implements Source. Any parse error fails the whole enumeration.
func (s CSVSource) Enumerate(_ context.Context) ([]catalog.Item, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv source: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv source %s is empty", s.Path)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col, skipHeader, err := s.resolveColumn(header)
	if err != nil {
		return nil, err
	}

	var raw []string
	if !skipHeader {
		if col < len(header) {
			raw = append(raw, header[col])
		}
	}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if col >= len(row) {
			return nil, fmt.Errorf("csv row has %d columns, need column %d", len(row), col+1)
		}
		raw = append(raw, row[col])
	}

	items := dedupe(raw, s.Tier)
	if len(items) == 0 {
		return nil, fmt.Errorf("csv source %s yielded no identities", s.Path)
	}
	return items, nil
}

// Describe implements Source.
func (s CSVSource) Describe() string {
	if s.Column != "" {
		return fmt.Sprintf("csv %s (column %q)", s.Path, s.Column)
	}
	return fmt.Sprintf("csv %s", s.Path)
}

// resolveColumn returns the column index and whether the first row was a
// header naming it. A named column missing from the header is a terminal
// error for the whole enumeration.
func (s CSVSource) resolveColumn(header []string) (int, bool, error) {
	if s.Column == "" {
		return 0, false, nil
	}
	for i, cell := range header {
		if cell == s.Column {
			return i, true, nil
		}
	}
	return 0, false, fmt.Errorf("csv source %s has no column %q", s.Path, s.Column)
}
