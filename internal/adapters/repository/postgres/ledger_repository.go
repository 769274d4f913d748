package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

// Ledger stores ballots and eligibility marks. Both live in the same
// database so a vote and its mark are written in one transaction.
type Ledger struct {
	db *sql.DB
}

var (
	_ ports.VoteLedger        = (*Ledger)(nil)
	_ ports.EligibilityLedger = (*Ledger)(nil)
)

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		db: db,
	}
}

func (l *Ledger) Commit(ctx context.Context, ballot *domain.SealedBallot) error {
	positions, err := json.Marshal(ballot.PositionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A concurrent insert for the same key blocks here until the other
	// transaction finishes, then inserts nothing.
	markQuery := `
		INSERT INTO voter_elections (voter_id, election_id, position_ids, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (voter_id, election_id) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, markQuery, ballot.VoterID, ballot.ElectionID, string(positions), ballot.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to mark voter: %w", err)
	}
	if err := expectOneRow(res, domain.ErrAlreadyVoted); err != nil {
		return err
	}

	ballotQuery := `
		INSERT INTO ballots (id, election_id, voter_id, position_ids, payload, origin, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, ballotQuery,
		ballot.ID, ballot.ElectionID, ballot.VoterID, string(positions), ballot.Payload, ballot.Origin, ballot.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ballot exists without eligibility mark", domain.ErrConflictingState)
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Ledger) ListByElection(ctx context.Context, electionID string) ([]*domain.SealedBallot, error) {
	query := `
		SELECT id, election_id, voter_id, position_ids, payload, origin, submitted_at
		FROM ballots
		WHERE election_id = $1
		ORDER BY submitted_at, id
	`
	rows, err := l.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	ballots := make([]*domain.SealedBallot, 0)
	for rows.Next() {
		var (
			ballot    domain.SealedBallot
			positions []byte
		)
		err := rows.Scan(&ballot.ID, &ballot.ElectionID, &ballot.VoterID, &positions, &ballot.Payload, &ballot.Origin, &ballot.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		if err := json.Unmarshal(positions, &ballot.PositionIDs); err != nil {
			return nil, fmt.Errorf("failed to decode ballot positions: %w", err)
		}
		ballot.SubmittedAt = ballot.SubmittedAt.UTC()
		ballots = append(ballots, &ballot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}
	return ballots, nil
}

func (l *Ledger) CountByElection(ctx context.Context, electionID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ballots WHERE election_id = $1`, electionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}

func (l *Ledger) HasVoted(ctx context.Context, voterID, electionID string) (bool, error) {
	query := `SELECT 1 FROM voter_elections WHERE voter_id = $1 AND election_id = $2 LIMIT 1`
	var exists int
	err := l.db.QueryRowContext(ctx, query, voterID, electionID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check voting state: %w", err)
	}
	return true, nil
}

func (l *Ledger) VotedPositions(ctx context.Context, voterID, electionID string) ([]string, error) {
	query := `SELECT position_ids FROM voter_elections WHERE voter_id = $1 AND election_id = $2`
	var raw []byte
	err := l.db.QueryRowContext(ctx, query, voterID, electionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read voted positions: %w", err)
	}
	var positions []string
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, fmt.Errorf("failed to decode voted positions: %w", err)
	}
	return positions, nil
}

func (l *Ledger) VotedElections(ctx context.Context, voterID string) (map[string][]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT election_id, position_ids FROM voter_elections WHERE voter_id = $1`, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voted elections: %w", err)
	}
	defer rows.Close()

	voted := make(map[string][]string)
	for rows.Next() {
		var (
			electionID string
			raw        []byte
			positions  []string
		)
		if err := rows.Scan(&electionID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan voted election: %w", err)
		}
		if err := json.Unmarshal(raw, &positions); err != nil {
			return nil, fmt.Errorf("failed to decode voted positions: %w", err)
		}
		voted[electionID] = positions
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voted elections: %w", err)
	}
	return voted, nil
}

func (l *Ledger) MarkVoted(ctx context.Context, voterID, electionID string, positionIDs []string) error {
	if len(positionIDs) == 0 {
		return &domain.InvalidSelectionError{Reason: "no positions to mark"}
	}
	positions, err := json.Marshal(positionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	query := `
		INSERT INTO voter_elections (voter_id, election_id, position_ids, voted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (voter_id, election_id) DO NOTHING
	`
	res, err := l.db.ExecContext(ctx, query, voterID, electionID, string(positions))
	if err != nil {
		return fmt.Errorf("failed to mark voter: %w", err)
	}
	if expectOneRow(res, domain.ErrAlreadyVoted) == nil {
		return nil
	}

	existing, err := l.VotedPositions(ctx, voterID, electionID)
	if err != nil {
		return err
	}
	if samePositions(existing, positionIDs) {
		return nil
	}
	return domain.ErrConflictingState
}

func samePositions(a, b []string) bool {
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}
