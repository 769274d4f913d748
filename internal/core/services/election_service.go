package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

const electionIDPrefix = "election_"

type electionService struct {
	repo    ports.ElectionRepository
	ledger  ports.VoteLedger
	results ports.TallyRepository
	clock   ports.Clock
}

// NewElectionService manages election definitions. The ledger guards the
// ballot structure of elections that already received votes and results
// holds the cached tallies dropped whenever a definition changes.
func NewElectionService(repo ports.ElectionRepository, ledger ports.VoteLedger, results ports.TallyRepository, clock ports.Clock) ports.ElectionService {
	if clock == nil {
		clock = SystemClock()
	}
	return &electionService{
		repo:    repo,
		ledger:  ledger,
		results: results,
		clock:   clock,
	}
}

func (s *electionService) Create(ctx context.Context, input ports.ElectionInput, createdBy string) (*domain.Election, error) {
	election := buildElection(input)
	election.ID = electionIDPrefix + uuid.NewString()
	election.CreatedBy = createdBy
	election.CreatedAt = normalizeTime(s.clock.Now())

	if err := election.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, election); err != nil {
		return nil, storageErr("save election", err)
	}
	return election, nil
}

func (s *electionService) Get(ctx context.Context, id string) (*domain.Election, error) {
	return s.repo.GetByID(ctx, normalizeElectionID(id))
}

func (s *electionService) List(ctx context.Context) ([]*domain.Election, error) {
	elections, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list elections", err)
	}
	return elections, nil
}

func (s *electionService) Update(ctx context.Context, id string, input ports.ElectionInput) (*domain.Election, error) {
	existing, err := s.repo.GetByID(ctx, normalizeElectionID(id))
	if err != nil {
		return nil, err
	}

	election := buildElection(input)
	election.ID = existing.ID
	election.CreatedBy = existing.CreatedBy
	election.CreatedAt = existing.CreatedAt

	if err := election.Validate(); err != nil {
		return nil, err
	}

	count, err := s.ledger.CountByElection(ctx, election.ID)
	if err != nil {
		return nil, storageErr("count ballots", err)
	}
	if count > 0 {
		if err := keepsBallotStructure(existing, election); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, election); err != nil {
		return nil, storageErr("update election", err)
	}
	if err := s.results.Delete(ctx, election.ID); err != nil {
		return nil, storageErr("drop cached tally", err)
	}
	return election, nil
}

func (s *electionService) Delete(ctx context.Context, id string) error {
	id = normalizeElectionID(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.results.Delete(ctx, id); err != nil {
		return storageErr("drop cached tally", err)
	}
	return nil
}

// keepsBallotStructure rejects edits that would leave recorded selections
// pointing at a position or candidate the election no longer has. New
// positions and candidates may still be added.
func keepsBallotStructure(existing, updated *domain.Election) error {
	for _, position := range existing.Positions {
		next, ok := updated.Position(position.ID)
		if !ok {
			return fmt.Errorf("%w: position %q already has votes and cannot be removed", domain.ErrInvalidElection, position.ID)
		}
		for _, candidate := range position.Candidates {
			if _, ok := next.Candidate(candidate.ID); !ok {
				return fmt.Errorf("%w: candidate %q of position %q already has votes and cannot be removed", domain.ErrInvalidElection, candidate.ID, position.ID)
			}
		}
	}
	return nil
}

func buildElection(input ports.ElectionInput) *domain.Election {
	election := &domain.Election{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		StartDate:   normalizeTime(input.StartDate),
		EndDate:     normalizeTime(input.EndDate),
	}

	for _, p := range input.Positions {
		position := domain.Position{
			ID:       p.ID,
			Title:    strings.TrimSpace(p.Title),
			MaxVotes: p.MaxVotes,
		}
		if position.ID == "" {
			position.ID = uuid.NewString()
		}
		if position.MaxVotes == 0 {
			position.MaxVotes = 1
		}

		for _, c := range p.Candidates {
			candidate := domain.Candidate{
				ID:    c.ID,
				Name:  strings.TrimSpace(c.Name),
				Bio:   c.Bio,
				Photo: c.Photo,
				Goals: c.Goals,
			}
			if candidate.ID == "" {
				candidate.ID = uuid.NewString()
			}
			position.Candidates = append(position.Candidates, candidate)
		}
		election.Positions = append(election.Positions, position)
	}

	return election
}

// normalizeElectionID accepts both "election_<uuid>" and bare "<uuid>" forms.
func normalizeElectionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, electionIDPrefix) {
		return id
	}
	if _, err := uuid.Parse(id); err == nil {
		return electionIDPrefix + id
	}
	return id
}

// normalizeTime keeps millisecond precision in UTC so stored and in-memory
// values compare equal across every storage adapter.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}
