package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed budget categories.
type Category string

const (
	CategoryCleaningSupplies   Category = "Cleaning Supplies"
	CategoryFirstAid           Category = "First Aid"
	CategoryFoodCosts          Category = "Food Costs"
	CategoryKiriClassroom      Category = "Kiri Classroom Resources"
	CategoryWaiClassroom       Category = "Wai Classroom Resources"
	CategoryNgaClassroom       Category = "Nga Classroom Resources"
	CategoryTeHuiClassroom     Category = "Te Hui Classroom Resources"
	CategoryCentrePurchases    Category = "Centre Purcahses"
	CategoryPrintingStationary Category = "Printing and Stationary"
	CategoryArtMessyPlay       Category = "Art and Messy Play"
	CategoryMeetingCosts       Category = "Meeting Costs"
	CategoryNappiesWipes       Category = "Nappies and Wipes"
	CategoryRepairsMaintenance Category = "Repairs and Maintenance"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{
	CategoryCleaningSupplies,
	CategoryFirstAid,
	CategoryFoodCosts,
	CategoryKiriClassroom,
	CategoryWaiClassroom,
	CategoryNgaClassroom,
	CategoryTeHuiClassroom,
	CategoryCentrePurchases,
	CategoryPrintingStationary,
	CategoryArtMessyPlay,
	CategoryMeetingCosts,
	CategoryNappiesWipes,
	CategoryRepairsMaintenance,
}

var (
	ErrInvalidCategory = errors.New("invalid budget category")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// BudgetLine is an administrator-defined monthly budget for one centre,
// category and year. AccountCode links it to the accounting system and may
// be empty.
type BudgetLine struct {
	ID            int64
	CentreID      int64
	CentreName    string
	Category      Category
	Year          int
	AccountCode   string
	MonthlyBudget decimal.Decimal
	// Overrides holds optional per-month amounts, index 0 = January.
	Overrides [12]*decimal.Decimal
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (b BudgetLine) Validate() error {
	if !b.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, b.Category)
	}
	if b.Year < 1900 || b.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, b.Year)
	}
	if len(strings.TrimSpace(b.AccountCode)) > 20 {
		return errors.New("account code too long (max 20 characters)")
	}
	if b.MonthlyBudget.IsNegative() {
		return ErrInvalidAmount
	}
	for _, o := range b.Overrides {
		if o != nil && o.IsNegative() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// HasAccountCode reports whether the line is linked to an account.
func (b BudgetLine) HasAccountCode() bool {
	return strings.TrimSpace(b.AccountCode) != ""
}

// AmountFor returns the budget for month (1-12): the override when set,
// otherwise the default monthly budget.
func (b BudgetLine) AmountFor(month int) decimal.Decimal {
	if month < 1 || month > 12 {
		return decimal.Zero
	}
	if o := b.Overrides[month-1]; o != nil {
		return *o
	}
	return b.MonthlyBudget
}

// Monthly returns the effective budget for every month of the year.
func (b BudgetLine) Monthly() [12]decimal.Decimal {
	var out [12]decimal.Decimal
	for m := 1; m <= 12; m++ {
		out[m-1] = b.AmountFor(m)
	}
	return out
}
