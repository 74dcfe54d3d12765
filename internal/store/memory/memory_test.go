package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"childcare/internal/core"
	"childcare/internal/store"

	"github.com/shopspring/decimal"
)

func TestEnsureCentreMergesByName(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.EnsureCentre(ctx, core.Centre{Name: " Kowhai "})
	if err != nil {
		t.Fatalf("EnsureCentre: %v", err)
	}
	second, err := s.EnsureCentre(ctx, core.Centre{Name: "Kowhai", APIID: "abc"})
	if err != nil {
		t.Fatalf("EnsureCentre: %v", err)
	}
	if first.ID != second.ID || second.APIID != "abc" {
		t.Fatalf("expected same centre with api id, got %+v then %+v", first, second)
	}

	third, _ := s.EnsureCentre(ctx, core.Centre{Name: "Kowhai"})
	if third.APIID != "abc" {
		t.Fatalf("empty api id should not clear stored one: %+v", third)
	}

	if _, err := s.GetCentre(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOccupancyUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, _ := s.EnsureCentre(ctx, core.Centre{Name: "Rata", APIID: "r1"})

	if _, err := s.UpsertOccupancy(ctx, core.Occupancy{CentreID: c.ID, MonthYear: "07-2025", U2: 70, O2: 80, Total: 75}); err != nil {
		t.Fatalf("UpsertOccupancy: %v", err)
	}
	if _, err := s.UpsertOccupancy(ctx, core.Occupancy{CentreID: c.ID, MonthYear: "07-2025", U2: 90, O2: 80, Total: 85}); err != nil {
		t.Fatalf("UpsertOccupancy: %v", err)
	}

	rows, err := s.ListOccupancy(ctx, "07-2025")
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListOccupancy = %v, %v", rows, err)
	}
	if rows[0].U2 != 90 || rows[0].CentreName != "Rata" || rows[0].DiscoverAPI != "r1" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}

	if _, err := s.UpsertOccupancy(ctx, core.Occupancy{CentreID: 42, MonthYear: "07-2025"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown centre, got %v", err)
	}
}

func TestListBudgetsFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.EnsureCentre(ctx, core.Centre{Name: "A"})
	b, _ := s.EnsureCentre(ctx, core.Centre{Name: "B"})

	lines := []core.BudgetLine{
		{CentreID: a.ID, Category: core.CategoryFoodCosts, Year: 2025, AccountCode: "200", MonthlyBudget: decimal.NewFromInt(10)},
		{CentreID: a.ID, Category: core.CategoryFirstAid, Year: 2025},
		{CentreID: b.ID, Category: core.CategoryFoodCosts, Year: 2024},
	}
	for _, l := range lines {
		if _, err := s.UpsertBudget(ctx, l); err != nil {
			t.Fatalf("UpsertBudget: %v", err)
		}
	}

	all, _ := s.ListBudgets(ctx, store.BudgetFilter{})
	if len(all) != 3 || all[0].Category != core.CategoryFirstAid {
		t.Fatalf("unexpected order: %+v", all)
	}

	got, _ := s.ListBudgets(ctx, store.BudgetFilter{CentreID: &a.ID, Year: 2025})
	if len(got) != 2 {
		t.Fatalf("centre+year filter returned %d lines", len(got))
	}

	got, _ = s.ListBudgets(ctx, store.BudgetFilter{CentreName: "B"})
	if len(got) != 1 || got[0].CentreName != "B" {
		t.Fatalf("name filter returned %+v", got)
	}
}

func TestNewFromFilesSeedsCentres(t *testing.T) {
	dir := t.TempDir()
	content := "# centres\nKowhai, k-1\nRata\nRata\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_centres.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s := NewFromFiles(dir)
	centres, _ := s.ListCentres(context.Background())
	if len(centres) != 2 {
		t.Fatalf("expected 2 centres, got %+v", centres)
	}
	if centres[0].Name != "Kowhai" || centres[0].APIID != "k-1" {
		t.Fatalf("unexpected first centre: %+v", centres[0])
	}
}
