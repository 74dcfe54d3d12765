package xero

import (
	"reflect"
	"testing"

	"childcare/internal/core"
)

func TestMapToBudgets(t *testing.T) {
	actuals := ReconciledActuals{
		"200": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		"300": {5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
	}
	lines := []core.BudgetLine{
		{Category: core.CategoryFoodCosts, Year: 2025, AccountCode: "200"},
		{Category: core.CategoryFirstAid, Year: 2025, AccountCode: ""},
		{Category: core.CategoryArtMessyPlay, Year: 2025, AccountCode: "   "},
		{Category: core.CategoryNappiesWipes, Year: 2025, AccountCode: "429"},
	}

	got := MapToBudgets(actuals, lines)
	want := ReconciledActuals{
		"200": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		"429": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapToBudgets() = %v, want %v", got, want)
	}
	if _, ok := got[""]; ok {
		t.Error("MapToBudgets() emitted an empty account code")
	}
}

func TestMapToBudgetsNoLines(t *testing.T) {
	got := MapToBudgets(ReconciledActuals{"200": {}}, nil)
	if len(got) != 0 {
		t.Errorf("MapToBudgets() = %v, want empty", got)
	}
}

func TestMapToBudgetsTrimsAccountCodes(t *testing.T) {
	actuals := ReconciledActuals{"200": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	lines := []core.BudgetLine{
		{Category: core.CategoryFoodCosts, Year: 2025, AccountCode: " 200 "},
		{Category: core.CategoryFirstAid, Year: 2025, AccountCode: "   "},
	}

	got := MapToBudgets(actuals, lines)
	want := ReconciledActuals{"200": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapToBudgets() = %v, want %v", got, want)
	}
}
