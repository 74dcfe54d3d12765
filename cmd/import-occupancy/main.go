// Command import-occupancy loads an occupancy CSV export into the store.
//
// Usage:
//
//	import-occupancy <file.csv>
package main

import (
	"context"
	"fmt"
	"os"

	"childcare/internal/cli"
	"childcare/internal/importer"
	"childcare/internal/log"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: import-occupancy <file.csv>")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentImport)

	f, err := os.Open(os.Args[1])
	if err != nil {
		logger.Error("Failed to open CSV file", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	repo := cli.OpenStore(ctx, logger, cfg)
	defer repo.Close()

	res, err := importer.New(repo, logger).ImportOccupancy(ctx, f)
	if err != nil {
		logger.Error("Occupancy import failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	fmt.Printf("Imported %d occupancy records.\n", res.Imported)
}
