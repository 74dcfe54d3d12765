package xero

import (
	"strings"

	"childcare/internal/core"
)

// LineCode returns the trimmed account code of a budget line, ok=false when
// the line has none.
func LineCode(line core.BudgetLine) (AccountCode, bool) {
	code := strings.TrimSpace(line.AccountCode)
	return AccountCode(code), code != ""
}

// MapToBudgets restricts actuals to the account codes referenced by lines.
// Lines without an account code are skipped; codes with no actuals map to
// twelve zeros.
func MapToBudgets(actuals ReconciledActuals, lines []core.BudgetLine) ReconciledActuals {
	out := make(ReconciledActuals)
	for _, line := range lines {
		code, ok := LineCode(line)
		if !ok {
			continue
		}
		out[code] = actuals[code]
	}
	return out
}
