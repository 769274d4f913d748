package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/univote/internal/bootstrap"
	"github.com/vncsmyrnk/univote/internal/config"
	"github.com/vncsmyrnk/univote/internal/core/services"
)

func main() {
	cfg, err := config.Load("tallyrecompute", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.NewLogger(os.Stderr)

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	ballotSealer, err := bootstrap.NewSealer(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	tallyService := services.NewTallyService(services.TallyDependencies{
		Elections:   storage.Elections,
		Ledger:      storage.Ledger,
		Voters:      storage.Voters,
		Results:     storage.Tallies,
		Sealer:      ballotSealer,
		Parallelism: cfg.RecomputeParallelism,
		Logger:      logger,
	})

	logger.Info("starting tally recompute job")

	outcomes, err := tallyService.RecomputeAll(ctx)
	if err != nil {
		log.Fatalf("Error recomputing tallies: %v", err)
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			fmt.Printf("%s\tFAILED\t%v\n", outcome.ElectionID, outcome.Err)
			continue
		}
		fmt.Printf("%s\tOK\t%d votes\n", outcome.ElectionID, outcome.TotalVotes)
	}

	if failed > 0 {
		logger.Error("tally recompute finished with failures", "failed", failed, "total", len(outcomes))
		os.Exit(1)
	}
	logger.Info("tally recompute completed", "total", len(outcomes))
}
