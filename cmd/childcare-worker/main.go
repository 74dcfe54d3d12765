package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"childcare/internal/amqp"
	"childcare/internal/cli"
	"childcare/internal/log"
	"childcare/internal/scraper"
	"childcare/internal/services"
	"childcare/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting childcare-worker",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend,
		"queue", cfg.AMQPQueue)

	repo := cli.OpenStore(context.Background(), logger, cfg)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	overdueWorker := worker.NewOverdueWorker(services.NewOverdueService(repo), logger)

	scheduler := worker.NewScheduler(logger)
	scrapeOnStart := false
	discover, err := scraper.NewDiscoverClient(scraper.Config{
		BaseURL:  cfg.DiscoverBaseURL,
		Email:    cfg.DiscoverEmail,
		Password: cfg.DiscoverPassword,
		Delay:    cfg.ScrapeDelay,
	})
	switch {
	case errors.Is(err, scraper.ErrMissingCredentials):
		logger.Warn("Overdue invoice scraping disabled - DISCOVER_EMAIL or DISCOVER_PASSWORD not set")
	case err != nil:
		logger.Error("Failed to initialize Discover client", log.FieldError, err.Error())
		os.Exit(1)
	default:
		runner := scraper.NewRunner(discover, amqpClient, logger.WithComponent(log.ComponentScraper))
		if err := scheduler.Add(worker.JobScrapeOverdue, cfg.ScrapeSchedule, worker.ScrapeJob(repo, runner)); err != nil {
			logger.Error("Failed to schedule overdue invoice scraping", log.FieldError, err.Error())
			os.Exit(1)
		}
		scrapeOnStart = cfg.ScrapeOnStart
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		scheduler.Stop(ctx)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeOverdueInvoices(gctx, overdueWorker.HandleOverdueInvoice)
	})
	g.Go(func() error {
		scheduler.Start()
		if scrapeOnStart {
			if err := scheduler.RunNow(gctx, worker.JobScrapeOverdue); err != nil {
				logger.Error("Startup overdue invoice scrape failed", log.FieldError, err.Error())
			}
		}
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
