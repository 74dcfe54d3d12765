package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/store"

	"github.com/microcosm-cc/bluemonday"
)

const defaultOverdueAmount = "0.00"

var ErrInvalidOverdueAmount = errors.New("invalid overdue invoice amount")

// OverdueInvoice is one entry of the overdue invoices listing.
type OverdueInvoice struct {
	CentreName string `json:"centre_name"`
	Amount     string `json:"overdue_invoice_amount"`
}

// OverdueService records scraped overdue invoice amounts and lists them.
type OverdueService struct {
	centres interface {
		store.CentreReader
		store.CentreWriter
	}
	policy *bluemonday.Policy
}

func NewOverdueService(centres interface {
	store.CentreReader
	store.CentreWriter
}) *OverdueService {
	return &OverdueService{
		centres: centres,
		policy:  bluemonday.StrictPolicy(),
	}
}

// Record stores the amount scraped for a centre. Markup is stripped and
// the text must read as a currency amount; it is stored with two decimals.
func (s *OverdueService) Record(ctx context.Context, centreID int64, raw string) error {
	text := strings.TrimSpace(s.policy.Sanitize(raw))
	amount, err := core.ParseCurrency(text)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOverdueAmount, raw)
	}
	if err := s.centres.SetOverdueInvoiceAmount(ctx, centreID, core.FormatAmount(amount)); err != nil {
		return fmt.Errorf("save overdue amount: %w", err)
	}
	slog.InfoContext(ctx, "Overdue invoice amount recorded",
		log.FieldComponent, log.ComponentOverdue,
		"centre_id", centreID,
		"amount", core.FormatAmount(amount))
	return nil
}

// List returns the overdue amount of every centre. Centres never scraped
// report 0.00.
func (s *OverdueService) List(ctx context.Context) ([]OverdueInvoice, error) {
	centres, err := s.centres.ListCentres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list centres: %w", err)
	}
	out := make([]OverdueInvoice, 0, len(centres))
	for _, c := range centres {
		amount := c.OverdueInvoiceAmount
		if amount == "" {
			amount = defaultOverdueAmount
		}
		out = append(out, OverdueInvoice{CentreName: c.Name, Amount: amount})
	}
	return out, nil
}
