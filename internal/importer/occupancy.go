package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"childcare/internal/core"
	"childcare/internal/log"
)

var (
	centreNameKeys = []string{"centreName", "\ufeffcentreName"}
	apiIDKeys      = []string{"apiId"}
	monthKeys      = []string{"month", "Month"}
	u2Keys         = []string{"u2", "U2"}
	o2Keys         = []string{"o2", "O2"}
	totalKeys      = []string{"total", "Total"}
)

// ImportOccupancy reads rows of centreName, apiId, month, u2, o2, total.
// Rows missing a required value or with unusable numbers are skipped.
// Centres are created by name when unknown; a present apiId replaces the
// stored one.
func (im *Importer) ImportOccupancy(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := readRows(r, nil, func(rw row) error {
		name := rw.get(centreNameKeys...)
		month := rw.get(monthKeys...)
		u2s, o2s, totals := rw.get(u2Keys...), rw.get(o2Keys...), rw.get(totalKeys...)
		if name == "" || month == "" || u2s == "" || o2s == "" || totals == "" {
			res.Skipped++
			im.skip(ctx, "occupancy", rw.line, "missing data")
			return nil
		}

		var vals [3]int
		for i, s := range []string{u2s, o2s, totals} {
			v, err := strconv.Atoi(s)
			if err != nil {
				res.Skipped++
				im.skip(ctx, "occupancy", rw.line, fmt.Sprintf("not a number: %q", s))
				return nil
			}
			vals[i] = v
		}

		centre, err := im.repo.EnsureCentre(ctx, core.Centre{Name: name, APIID: rw.get(apiIDKeys...)})
		if err != nil {
			if isRowError(err) {
				res.Skipped++
				im.skip(ctx, "occupancy", rw.line, err)
				return nil
			}
			return fmt.Errorf("line %d: ensure centre %q: %w", rw.line, name, err)
		}

		_, err = im.repo.UpsertOccupancy(ctx, core.Occupancy{
			CentreID:  centre.ID,
			MonthYear: month,
			U2:        vals[0],
			O2:        vals[1],
			Total:     vals[2],
		})
		if err != nil {
			if isRowError(err) {
				res.Skipped++
				im.skip(ctx, "occupancy", rw.line, err)
				return nil
			}
			return fmt.Errorf("line %d: save occupancy: %w", rw.line, err)
		}
		res.Imported++
		return nil
	})
	if err != nil {
		return res, err
	}

	im.logger.InfoContext(ctx, "Occupancy import finished",
		log.FieldOperation, log.OpImport,
		"imported", res.Imported,
		"skipped", res.Skipped)
	return res, nil
}
