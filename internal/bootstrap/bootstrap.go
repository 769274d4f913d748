// Package bootstrap wires storage adapters and services from configuration
// for the executables under cmd/.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vncsmyrnk/univote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/univote/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/univote/internal/adapters/sealer"
	"github.com/vncsmyrnk/univote/internal/config"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type Ledger interface {
	ports.VoteLedger
	ports.EligibilityLedger
}

type Storage struct {
	DB        *sql.DB
	Elections ports.ElectionRepository
	Voters    ports.VoterRepository
	Ledger    Ledger
	Tallies   ports.TallyRepository
	Audit     ports.AuditRepository
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// OpenStorage connects to the configured backend and brings its schema up to
// date.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.DatabaseType {
	case config.DatabasePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &Storage{
			DB:        db,
			Elections: postgres.NewElectionRepository(db),
			Voters:    postgres.NewVoterRepository(db),
			Ledger:    postgres.NewLedger(db),
			Tallies:   postgres.NewTallyRepository(db),
			Audit:     postgres.NewAuditRepository(db),
		}, nil

	case config.DatabaseSQLite:
		db, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Storage{
			DB:        db,
			Elections: sqlite.NewElectionRepository(db),
			Voters:    sqlite.NewVoterRepository(db),
			Ledger:    sqlite.NewLedger(db),
			Tallies:   sqlite.NewTallyRepository(db),
			Audit:     sqlite.NewAuditRepository(db),
		}, nil
	}

	return nil, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
}

// NewSealer returns an AEAD sealer when BALLOT_SEAL_KEY is set. Without a key
// ballots are stored readable and a warning is logged.
func NewSealer(cfg *config.Config, logger *slog.Logger) (ports.BallotSealer, error) {
	if cfg.BallotSealKey == "" {
		logger.Warn("BALLOT_SEAL_KEY is not set, ballots will be stored as plaintext")
		return sealer.NewPlaintext(), nil
	}

	key, err := sealer.ParseKey(cfg.BallotSealKey)
	if err != nil {
		return nil, fmt.Errorf("invalid BALLOT_SEAL_KEY: %w", err)
	}
	if cfg.AcceptPlaintextBallots {
		logger.Info("plaintext ballots stored before BALLOT_SEAL_KEY was set will still be opened")
		return sealer.NewAEAD(key, sealer.AcceptPlaintext())
	}
	return sealer.NewAEAD(key)
}
