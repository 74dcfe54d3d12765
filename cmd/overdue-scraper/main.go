// Command overdue-scraper runs one scrape pass over every centre and
// publishes the overdue invoice amounts for childcare-worker to record.
package main

import (
	"context"
	"os"
	"time"

	"childcare/internal/amqp"
	"childcare/internal/cli"
	"childcare/internal/log"
	"childcare/internal/scraper"
	"childcare/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentScraper)

	discover, err := scraper.NewDiscoverClient(scraper.Config{
		BaseURL:  cfg.DiscoverBaseURL,
		Email:    cfg.DiscoverEmail,
		Password: cfg.DiscoverPassword,
		Delay:    cfg.ScrapeDelay,
	})
	if err != nil {
		logger.Error("Cannot start scraper", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	repo := cli.OpenStore(ctx, logger, cfg)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	runner := scraper.NewRunner(discover, amqpClient, logger)
	if err := worker.ScrapeJob(repo, runner)(ctx); err != nil {
		logger.Error("Scrape failed", log.FieldError, err.Error())
		os.Exit(1)
	}
}
