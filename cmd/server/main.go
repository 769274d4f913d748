package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/univote/internal/adapters/audit"
	"github.com/vncsmyrnk/univote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/univote/internal/bootstrap"
	"github.com/vncsmyrnk/univote/internal/config"
	"github.com/vncsmyrnk/univote/internal/core/ports"
	"github.com/vncsmyrnk/univote/internal/core/services"
)

func main() {
	cfg, err := config.Load("server", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireServerSecrets(); err != nil {
		log.Fatal(err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	ballotSealer, err := bootstrap.NewSealer(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	dispatcher := audit.NewDispatcher(storage.Audit, cfg.AuditQueueSize, logger)
	clock := services.SystemClock()

	// Initialize Services
	electionService := services.NewElectionService(storage.Elections, storage.Ledger, storage.Tallies, clock)
	voterService := services.NewVoterService(storage.Voters, storage.Ledger, cfg.BcryptCost)
	voteService := services.NewVoteService(services.VoteDependencies{
		Elections:   storage.Elections,
		Ledger:      storage.Ledger,
		Eligibility: storage.Ledger,
		Sealer:      ballotSealer,
		Audit:       dispatcher,
		Clock:       clock,
		Policy:      ports.BallotPolicy{RequireAllPositions: cfg.RequireAllPositions},
		Logger:      logger,
	})
	tallyService := services.NewTallyService(services.TallyDependencies{
		Elections:   storage.Elections,
		Ledger:      storage.Ledger,
		Voters:      storage.Voters,
		Results:     storage.Tallies,
		Sealer:      ballotSealer,
		Clock:       clock,
		Parallelism: cfg.RecomputeParallelism,
		Logger:      logger,
	})

	handler := http.NewHandler(http.Handlers{
		Elections: http.NewElectionHandler(electionService, storage.Ledger, dispatcher, clock),
		Votes:     http.NewVoteHandler(voteService, clock),
		Results:   http.NewResultsHandler(tallyService, electionService, dispatcher, clock),
		Voters:    http.NewVoterHandler(voterService, dispatcher, clock),
		Audit:     http.NewAuditHandler(storage.Audit),
	}, http.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	server := &stdhttp.Server{Addr: cfg.Addr, Handler: handler}

	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "database", cfg.DatabaseType)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("audit events not flushed", "error", err, "dropped", dispatcher.Dropped())
	}
}
