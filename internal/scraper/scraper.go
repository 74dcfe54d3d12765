package scraper

import (
	"context"
	"fmt"
	"time"

	"childcare/internal/amqp"
	"childcare/internal/core"
	"childcare/internal/log"
)

// AmountSource reads the overdue amount of one centre.
type AmountSource interface {
	OverdueAmount(ctx context.Context, apiID string) (string, error)
}

// Publisher hands a scraped amount to the worker queue.
type Publisher interface {
	PublishOverdueInvoice(ctx context.Context, msg *amqp.OverdueInvoiceMessage) error
}

// Result counts what one scrape pass did.
type Result struct {
	Published int
	Skipped   int
	Failed    int
}

// Runner scrapes every centre that has a portal id.
type Runner struct {
	source    AmountSource
	publisher Publisher
	logger    *log.Logger
}

func NewRunner(source AmountSource, publisher Publisher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentScraper)
	}
	return &Runner{source: source, publisher: publisher, logger: logger}
}

// Run scrapes the given centres one after another. A failure on one centre
// is logged and does not stop the pass; only context cancellation does.
func (r *Runner) Run(ctx context.Context, centres []core.Centre) (Result, error) {
	var res Result
	start := time.Now()

	for _, c := range centres {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if c.APIID == "" {
			res.Skipped++
			r.logger.DebugContext(ctx, "Centre has no portal id, skipping",
				log.FieldCentreID, c.ID,
				log.FieldCentreName, c.Name)
			continue
		}

		amount, err := r.source.OverdueAmount(ctx, c.APIID)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			r.logger.WarnContext(ctx, "Failed to scrape overdue amount",
				log.NewFields().WithCentre(c.ID, c.Name, c.APIID).WithError(err).ToSlice()...)
			continue
		}

		msg := amqp.NewOverdueInvoiceMessage(c.ID, c.Name, c.APIID, amount)
		if err := r.publisher.PublishOverdueInvoice(ctx, msg); err != nil {
			res.Failed++
			r.logger.ErrorContext(ctx, "Failed to publish overdue amount",
				log.NewFields().WithCentre(c.ID, c.Name, c.APIID).WithError(err).ToSlice()...)
			continue
		}
		res.Published++
		r.logger.InfoContext(ctx, "Overdue amount scraped",
			log.FieldCentreName, c.Name,
			log.FieldAmount, amount)
	}

	r.logger.InfoContext(ctx, "Scrape pass finished",
		log.FieldOperation, log.OpScrape,
		"published", res.Published,
		"skipped", res.Skipped,
		"failed", res.Failed,
		log.FieldDuration, time.Since(start).Milliseconds())

	if res.Published == 0 && res.Failed > 0 {
		return res, fmt.Errorf("all %d scrapes failed", res.Failed)
	}
	return res, nil
}
