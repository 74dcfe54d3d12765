package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type (
	// Centre is a childcare centre known to the dashboard.
	Centre struct {
		ID                   int64
		Name                 string
		APIID                string // Discover portal identifier
		MOENumber            string
		U2Licensed           int
		TotalLicensed        int
		NZBN                 string
		OverdueInvoiceAmount string // raw text as shown by the portal
	}

	// Occupancy holds the occupancy percentages of a centre for one month.
	Occupancy struct {
		ID          int64
		CentreID    int64
		CentreName  string
		DiscoverAPI string
		MonthYear   string
		U2          int
		O2          int
		Total       int
	}
)

var (
	ErrEmptyCentreName   = errors.New("empty centre name")
	ErrInvalidMonthYear  = errors.New("invalid month_year")
	ErrInvalidPercentage = errors.New("occupancy percentage out of range")
)

var (
	monthYearPattern = regexp.MustCompile(`^\d{2}-\d{4}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

func (c Centre) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCentreName
	}
	if len(c.Name) > 100 {
		return errors.New("centre name too long (max 100 characters)")
	}
	return nil
}

func (o Occupancy) Validate() error {
	if !monthYearPattern.MatchString(o.MonthYear) && !yearMonthPattern.MatchString(o.MonthYear) {
		return fmt.Errorf("%w: %q", ErrInvalidMonthYear, o.MonthYear)
	}
	for _, v := range []int{o.U2, o.O2, o.Total} {
		if v < 0 || v > 32767 {
			return ErrInvalidPercentage
		}
	}
	return nil
}

// IsMonthYear reports whether s has the MM-YYYY shape.
func IsMonthYear(s string) bool {
	return monthYearPattern.MatchString(s)
}

// SwapMonthYear rewrites MM-YYYY as YYYY-MM. ok is false for any other shape.
func SwapMonthYear(s string) (string, bool) {
	if !IsMonthYear(s) {
		return "", false
	}
	return s[3:] + "-" + s[:2], true
}
