package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type SubmitVoteInput struct {
	ElectionID  string
	VoterID     string
	Selections  map[string]string
	SubmittedAt time.Time
	Origin      string
}

// BallotPolicy controls how complete a ballot must be. The zero value allows
// partial ballots.
type BallotPolicy struct {
	RequireAllPositions bool
}

type VoteService interface {
	SubmitVote(ctx context.Context, input SubmitVoteInput) (*domain.VoteReceipt, error)
	VoteStatus(ctx context.Context, voterID, electionID string) (*domain.VoteStatus, error)
}
