package xero

// AccountCode is the ledger account identifier used to join actuals with
// budget lines.
type AccountCode string

// MonthlySeries holds one value per month, index 0 = January.
type MonthlySeries [12]float64

// ReconciledActuals maps account codes to their twelve-month actuals.
type ReconciledActuals map[AccountCode]MonthlySeries

const janNovPeriods = 11

// Reconcile parses the Jan-Nov and December report bodies and merges them
// into one series per account code. It returns a *ParseError naming the
// offending document when either body is malformed, and never returns
// partial results.
func Reconcile(janNov, december []byte) (ReconciledActuals, error) {
	first, err := ParseReport(StageJanNov, janNov)
	if err != nil {
		return nil, err
	}
	second, err := ParseReport(StageDecember, december)
	if err != nil {
		return nil, err
	}
	return Merge(first, second), nil
}

// Merge combines an eleven period Jan-Nov report with a single period
// December report.
//
// Within the Jan-Nov report a repeated account code keeps its last row.
// A code seen only in December gets eleven zero months. A code missing from
// December gets a zero December. A December code repeated within its own
// report also keeps its last row, so every series stays twelve long.
func Merge(janNov, december *Report) ReconciledActuals {
	out := make(ReconciledActuals)

	for _, row := range janNov.AccountRows() {
		code, _ := row.AccountCode()
		var s MonthlySeries
		for m := 0; m < janNovPeriods; m++ {
			s[m] = row.CellFloat(m + 1)
		}
		out[code] = s
	}

	for _, row := range december.AccountRows() {
		code, _ := row.AccountCode()
		s := out[code]
		s[11] = row.CellFloat(1)
		out[code] = s
	}

	return out
}
