package ports

import (
	"context"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

// EligibilityLedger is the single authority for "has this voter already voted".
type EligibilityLedger interface {
	HasVoted(ctx context.Context, voterID, electionID string) (bool, error)
	VotedPositions(ctx context.Context, voterID, electionID string) ([]string, error)
	VotedElections(ctx context.Context, voterID string) (map[string][]string, error)
	// MarkVoted is idempotent for the same position set and fails with
	// domain.ErrConflictingState for a different one.
	MarkVoted(ctx context.Context, voterID, electionID string, positionIDs []string) error
}

// VoteLedger is the append-only store of ballots.
type VoteLedger interface {
	// Commit appends the ballot and marks the voter for ballot.PositionIDs as
	// one atomic unit. An existing mark yields domain.ErrAlreadyVoted and
	// writes nothing.
	Commit(ctx context.Context, ballot *domain.SealedBallot) error
	ListByElection(ctx context.Context, electionID string) ([]*domain.SealedBallot, error)
	CountByElection(ctx context.Context, electionID string) (int, error)
}

type BallotSealer interface {
	Seal(record *domain.VoteRecord) ([]byte, error)
	Open(ballot *domain.SealedBallot) (map[string]string, error)
}
