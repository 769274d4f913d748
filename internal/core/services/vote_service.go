package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type VoteDependencies struct {
	Elections   ports.ElectionRepository
	Ledger      ports.VoteLedger
	Eligibility ports.EligibilityLedger
	Sealer      ports.BallotSealer
	Audit       ports.AuditSink
	Clock       ports.Clock
	Policy      ports.BallotPolicy
	Logger      *slog.Logger
}

type voteService struct {
	elections   ports.ElectionRepository
	ledger      ports.VoteLedger
	eligibility ports.EligibilityLedger
	sealer      ports.BallotSealer
	audit       ports.AuditSink
	clock       ports.Clock
	policy      ports.BallotPolicy
	locks       *keyedMutex
	logger      *slog.Logger
}

func NewVoteService(deps VoteDependencies) ports.VoteService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &voteService{
		elections:   deps.Elections,
		ledger:      deps.Ledger,
		eligibility: deps.Eligibility,
		sealer:      deps.Sealer,
		audit:       deps.Audit,
		clock:       clock,
		policy:      deps.Policy,
		locks:       newKeyedMutex(),
		logger:      resolveLogger(deps.Logger),
	}
}

func (s *voteService) SubmitVote(ctx context.Context, input ports.SubmitVoteInput) (*domain.VoteReceipt, error) {
	logger := s.logger.With("election_id", input.ElectionID, "voter_id", input.VoterID)

	election, err := s.elections.GetByID(ctx, normalizeElectionID(input.ElectionID))
	if err != nil {
		if errors.Is(err, domain.ErrElectionNotFound) {
			s.record(ctx, input, domain.AuditVoteNotFound, "election not found: "+input.ElectionID)
			return nil, err
		}
		err = storageErr("load election", err)
		s.record(ctx, input, domain.AuditVoteStorageFailure, err.Error())
		return nil, err
	}

	if !election.IsOpenAt(input.SubmittedAt) {
		s.record(ctx, input, domain.AuditVoteClosed, fmt.Sprintf("vote outside window of election: %s", election.ID))
		return nil, domain.ErrVotingClosed
	}

	// The already-voted check and the commit must not interleave for the
	// same voter and election.
	unlock := s.locks.Lock(input.VoterID + "\x00" + election.ID)
	defer unlock()

	voted, err := s.eligibility.HasVoted(ctx, input.VoterID, election.ID)
	if err != nil {
		err = storageErr("check voting state", err)
		s.record(ctx, input, domain.AuditVoteStorageFailure, err.Error())
		return nil, err
	}
	if voted {
		s.record(ctx, input, domain.AuditVoteAlreadyVoted, "repeat vote in election: "+election.ID)
		return nil, domain.ErrAlreadyVoted
	}

	positionIDs, err := s.validateSelections(election, input.Selections)
	if err != nil {
		s.record(ctx, input, domain.AuditVoteInvalidSelection, err.Error())
		return nil, err
	}

	record := &domain.VoteRecord{
		ID:          uuid.NewString(),
		ElectionID:  election.ID,
		VoterID:     input.VoterID,
		Selections:  maps.Clone(input.Selections),
		SubmittedAt: input.SubmittedAt,
		Origin:      input.Origin,
	}

	payload, err := s.sealer.Seal(record)
	if err != nil {
		err = storageErr("seal ballot", err)
		s.record(ctx, input, domain.AuditVoteStorageFailure, err.Error())
		return nil, err
	}

	ballot := &domain.SealedBallot{
		ID:          record.ID,
		ElectionID:  record.ElectionID,
		VoterID:     record.VoterID,
		PositionIDs: positionIDs,
		SubmittedAt: record.SubmittedAt,
		Origin:      record.Origin,
		Payload:     payload,
	}

	if err := s.ledger.Commit(ctx, ballot); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyVoted):
			s.record(ctx, input, domain.AuditVoteAlreadyVoted, "repeat vote in election: "+election.ID)
		case errors.Is(err, domain.ErrConflictingState):
			s.record(ctx, input, domain.AuditVoteConflict, err.Error())
		default:
			err = storageErr("commit ballot", err)
			logger.Error("ballot commit failed", "error", err)
			s.record(ctx, input, domain.AuditVoteStorageFailure, err.Error())
		}
		return nil, err
	}

	s.record(ctx, input, domain.AuditCastVote, "Vote cast in election: "+election.ID)
	logger.Info("vote recorded", "vote_id", record.ID, "positions", len(positionIDs))

	return &domain.VoteReceipt{
		VoteID:      record.ID,
		ElectionID:  election.ID,
		PositionIDs: positionIDs,
	}, nil
}

func (s *voteService) VoteStatus(ctx context.Context, voterID, electionID string) (*domain.VoteStatus, error) {
	positions, err := s.eligibility.VotedPositions(ctx, voterID, normalizeElectionID(electionID))
	if err != nil {
		return nil, storageErr("read voting state", err)
	}
	if positions == nil {
		positions = []string{}
	}
	return &domain.VoteStatus{
		HasVoted:       len(positions) > 0,
		VotedPositions: positions,
	}, nil
}

// validateSelections checks every ballot entry against the election and
// returns the voted position ids in election order.
func (s *voteService) validateSelections(election *domain.Election, selections map[string]string) ([]string, error) {
	if len(selections) == 0 {
		return nil, &domain.InvalidSelectionError{Reason: "ballot is empty"}
	}

	keys := make([]string, 0, len(selections))
	for positionID := range selections {
		keys = append(keys, positionID)
	}
	sort.Strings(keys)

	for _, positionID := range keys {
		candidateID := selections[positionID]
		position, ok := election.Position(positionID)
		if !ok {
			return nil, &domain.InvalidSelectionError{
				PositionID:  positionID,
				CandidateID: candidateID,
				Reason:      "position does not belong to this election",
			}
		}
		if strings.TrimSpace(candidateID) == "" {
			return nil, &domain.InvalidSelectionError{
				PositionID: positionID,
				Reason:     "no candidate selected",
			}
		}
		if _, ok := position.Candidate(candidateID); !ok {
			return nil, &domain.InvalidSelectionError{
				PositionID:  positionID,
				CandidateID: candidateID,
				Reason:      "candidate does not belong to this position",
			}
		}
	}

	positionIDs := make([]string, 0, len(selections))
	for _, p := range election.Positions {
		if _, ok := selections[p.ID]; ok {
			positionIDs = append(positionIDs, p.ID)
			continue
		}
		if s.policy.RequireAllPositions {
			return nil, &domain.InvalidSelectionError{
				PositionID: p.ID,
				Reason:     "every position requires a selection",
			}
		}
	}

	return positionIDs, nil
}

func (s *voteService) record(ctx context.Context, input ports.SubmitVoteInput, action domain.AuditAction, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, domain.AuditEvent{
		Timestamp: s.clock.Now(),
		VoterID:   input.VoterID,
		Action:    action,
		Detail:    detail,
		Origin:    input.Origin,
	})
}
