package sheets

import (
	"github.com/shopspring/decimal"
)

var monthHeaders = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Header returns the column titles of an exported table.
func Header() []any {
	out := []any{"Centre", "Category", "Account"}
	for _, m := range monthHeaders {
		out = append(out, m+" Budget")
	}
	for _, m := range monthHeaders {
		out = append(out, m+" Actual")
	}
	return append(out, "Total Budget", "Total Actual")
}

// Values renders rows as a values matrix, header first. Budgets are written
// as fixed two-decimal strings, actuals as numbers.
func Values(rows []ActualsRow) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, Header())
	for _, r := range rows {
		line := []any{r.Centre, r.Category, r.AccountCode}
		totalBudget := decimal.Zero
		for _, b := range r.Budget {
			line = append(line, b.StringFixed(2))
			totalBudget = totalBudget.Add(b)
		}
		var totalActual float64
		for _, a := range r.Actual {
			line = append(line, a)
			totalActual += a
		}
		line = append(line, totalBudget.StringFixed(2), totalActual)
		out = append(out, line)
	}
	return out
}
