package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"childcare/internal/core"
	"childcare/internal/log"
)

type fakeOccupancy struct {
	rows    map[string][]core.Occupancy
	queries []string
}

func (f *fakeOccupancy) ListOccupancy(_ context.Context, monthYear string) ([]core.Occupancy, error) {
	f.queries = append(f.queries, monthYear)
	return f.rows[monthYear], nil
}

func TestOccupancyService_ByMonth(t *testing.T) {
	rows := map[string][]core.Occupancy{
		"07-2025": {{ID: 1, MonthYear: "07-2025"}},
		"2025-08": {{ID: 2, MonthYear: "2025-08"}},
	}

	tests := []struct {
		name        string
		query       string
		wantIDs     []int64
		wantQueries []string
	}{
		{"exact match", "07-2025", []int64{1}, []string{"07-2025"}},
		{"falls back to YYYY-MM", "08-2025", []int64{2}, []string{"08-2025", "2025-08"}},
		{"no fallback for YYYY-MM", "2025-07", nil, []string{"2025-07"}},
		{"no fallback for other shapes", "8-2025", nil, []string{"8-2025"}},
		{"fallback with no rows", "09-2025", nil, []string{"09-2025", "2025-09"}},
		{"trims input", " 07-2025 ", []int64{1}, []string{"07-2025"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeOccupancy{rows: rows}
			svc := NewOccupancyService(repo)

			got, err := svc.ByMonth(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("ByMonth() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ByMonth() = %+v, want ids %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("row %d id = %d, want %d", i, got[i].ID, id)
				}
			}
			if len(repo.queries) != len(tt.wantQueries) {
				t.Fatalf("queries = %v, want %v", repo.queries, tt.wantQueries)
			}
			for i, q := range tt.wantQueries {
				if repo.queries[i] != q {
					t.Errorf("query %d = %q, want %q", i, repo.queries[i], q)
				}
			}
		})
	}
}

func TestOccupancyService_MissingMonth(t *testing.T) {
	svc := NewOccupancyService(&fakeOccupancy{})
	if _, err := svc.ByMonth(context.Background(), "  "); !errors.Is(err, ErrMissingMonthYear) {
		t.Fatalf("expected ErrMissingMonthYear, got %v", err)
	}
}

func TestOccupancyService_FallbackLogFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := NewOccupancyService(&fakeOccupancy{})
	if _, err := svc.ByMonth(context.Background(), "08-2025"); err != nil {
		t.Fatalf("ByMonth() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry[log.FieldComponent] != log.ComponentOccupancy {
		t.Errorf("component = %v, want %q", entry[log.FieldComponent], log.ComponentOccupancy)
	}
	if entry[log.FieldMonthYear] != "08-2025" {
		t.Errorf("month_year = %v, want 08-2025", entry[log.FieldMonthYear])
	}
}
