// Package importer loads occupancy and budget spreadsheets exported as CSV
// into the store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/store"
)

// Repository is the store surface the importers write to.
type Repository interface {
	store.CentreWriter
	store.OccupancyWriter
	store.BudgetWriter
}

// Result counts imported and skipped data rows.
type Result struct {
	Imported int
	Skipped  int
}

// Importer reads CSV files with a header row.
type Importer struct {
	repo   Repository
	logger *log.Logger
}

func New(repo Repository, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Importer{repo: repo, logger: logger.WithComponent(log.ComponentImport)}
}

// row gives by-name access to one record.
type row struct {
	index  map[string]int
	record []string
	line   int
}

// get returns the trimmed value of the first header present in keys.
func (r row) get(keys ...string) string {
	for _, k := range keys {
		if i, ok := r.index[k]; ok && i < len(r.record) {
			if v := strings.TrimSpace(r.record[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// readRows calls fn for each data row. Header names are trimmed and then
// passed through normalize when it is non-nil.
func readRows(r io.Reader, normalize func(string) string, fn func(row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty csv: missing header row")
		}
		return fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if normalize != nil {
			h = normalize(h)
		}
		index[h] = i
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("read csv line %d: %w", line, err)
		}
		if err := fn(row{index: index, record: record, line: line}); err != nil {
			return err
		}
	}
}

// isRowError reports whether err rejects a single row rather than the run.
func isRowError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyCentreName,
		core.ErrInvalidMonthYear,
		core.ErrInvalidPercentage,
		core.ErrInvalidCategory,
		core.ErrInvalidYear,
		core.ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (im *Importer) skip(ctx context.Context, kind string, line int, reason any) {
	im.logger.WarnContext(ctx, "Skipped "+kind+" row",
		log.FieldOperation, log.OpImport,
		"line", line,
		"reason", fmt.Sprint(reason))
}
