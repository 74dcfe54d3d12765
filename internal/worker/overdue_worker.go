package worker

import (
	"context"
	"errors"
	"fmt"

	"childcare/internal/amqp"
	"childcare/internal/log"
	"childcare/internal/services"
	"childcare/internal/store"
)

// OverdueWorker persists overdue invoice amounts published by the scraper.
type OverdueWorker struct {
	overdue *services.OverdueService
	logger  *log.Logger
}

func NewOverdueWorker(overdue *services.OverdueService, logger *log.Logger) *OverdueWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &OverdueWorker{overdue: overdue, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleOverdueInvoice records one message. Amounts that do not parse and
// centres that no longer exist are rejected so the delivery is not retried.
func (w *OverdueWorker) HandleOverdueInvoice(ctx context.Context, msg *amqp.OverdueInvoiceMessage) error {
	fields := log.NewFields().
		WithOperation(log.OpConsume).
		WithCentre(msg.CentreID, msg.CentreName, msg.APIID)

	w.logger.DebugContext(ctx, "Processing overdue invoice message", fields.ToSlice()...)

	err := w.overdue.Record(ctx, msg.CentreID, msg.Amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrInvalidOverdueAmount), errors.Is(err, store.ErrNotFound):
		w.logger.WarnContext(ctx, "Dropping overdue invoice message", fields.WithError(err).ToSlice()...)
		return amqp.Reject(err)
	default:
		w.logger.ErrorContext(ctx, "Failed to record overdue invoice amount", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("record overdue amount: %w", err)
	}
}
