package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

const defaultRecomputeParallelism = 4

type TallyDependencies struct {
	Elections   ports.ElectionRepository
	Ledger      ports.VoteLedger
	Voters      ports.VoterRepository
	Results     ports.TallyRepository
	Sealer      ports.BallotSealer
	Clock       ports.Clock
	Parallelism int
	Logger      *slog.Logger
}

type tallyService struct {
	elections   ports.ElectionRepository
	ledger      ports.VoteLedger
	voters      ports.VoterRepository
	results     ports.TallyRepository
	sealer      ports.BallotSealer
	clock       ports.Clock
	parallelism int
	logger      *slog.Logger
}

func NewTallyService(deps TallyDependencies) ports.TallyService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	parallelism := deps.Parallelism
	if parallelism <= 0 {
		parallelism = defaultRecomputeParallelism
	}
	return &tallyService{
		elections:   deps.Elections,
		ledger:      deps.Ledger,
		voters:      deps.Voters,
		results:     deps.Results,
		sealer:      deps.Sealer,
		clock:       clock,
		parallelism: parallelism,
		logger:      resolveLogger(deps.Logger),
	}
}

// ComputeTally rebuilds the result of an election from its ballots.
func (s *tallyService) ComputeTally(ctx context.Context, electionID string) (*domain.TallyResult, error) {
	election, err := s.elections.GetByID(ctx, normalizeElectionID(electionID))
	if err != nil {
		return nil, err
	}

	ballots, err := s.ledger.ListByElection(ctx, election.ID)
	if err != nil {
		return nil, storageErr("list ballots", err)
	}

	eligible, err := s.voters.CountByRole(ctx, domain.RoleStudent)
	if err != nil {
		return nil, storageErr("count eligible voters", err)
	}

	counts := make(map[string]map[string]int, len(election.Positions))
	for _, p := range election.Positions {
		counts[p.ID] = make(map[string]int, len(p.Candidates))
	}

	for _, ballot := range ballots {
		selections, err := s.sealer.Open(ballot)
		if err != nil {
			return nil, fmt.Errorf("%w: ballot %s: %v", domain.ErrCorruptBallot, ballot.ID, err)
		}
		for positionID, candidateID := range selections {
			position, ok := election.Position(positionID)
			if !ok {
				return nil, fmt.Errorf("%w: ballot %s: unknown position %q", domain.ErrCorruptBallot, ballot.ID, positionID)
			}
			if _, ok := position.Candidate(candidateID); !ok {
				return nil, fmt.Errorf("%w: ballot %s: unknown candidate %q for position %q", domain.ErrCorruptBallot, ballot.ID, candidateID, positionID)
			}
			counts[positionID][candidateID]++
		}
	}

	result := &domain.TallyResult{
		ElectionID:     election.ID,
		Title:          election.Title,
		TotalVotes:     len(ballots),
		EligibleVoters: eligible,
		Positions:      make([]domain.PositionTally, 0, len(election.Positions)),
		GeneratedAt:    normalizeTime(s.clock.Now()),
	}
	for _, p := range election.Positions {
		result.Positions = append(result.Positions, tallyPosition(p, counts[p.ID]))
	}

	return result, nil
}

func tallyPosition(p domain.Position, counts map[string]int) domain.PositionTally {
	total := 0
	for _, n := range counts {
		total += n
	}

	tally := domain.PositionTally{
		PositionID:    p.ID,
		PositionTitle: p.Title,
		TotalVotes:    total,
		Candidates:    make([]domain.CandidateTally, 0, len(p.Candidates)),
	}
	for _, c := range p.Candidates {
		percentage := 0.0
		if total > 0 {
			percentage = float64(counts[c.ID]) / float64(total) * 100
		}
		tally.Candidates = append(tally.Candidates, domain.CandidateTally{
			CandidateID:   c.ID,
			CandidateName: c.Name,
			VoteCount:     counts[c.ID],
			Percentage:    percentage,
		})
	}

	// Ties keep candidate list order, so the first-listed leader wins.
	ranked := make([]domain.CandidateTally, len(tally.Candidates))
	copy(ranked, tally.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VoteCount > ranked[j].VoteCount
	})
	tally.Ranking = make([]string, 0, len(ranked))
	for _, c := range ranked {
		tally.Ranking = append(tally.Ranking, c.CandidateID)
	}
	if total > 0 {
		tally.WinnerID = tally.Ranking[0]
	}

	return tally
}

func (s *tallyService) Recompute(ctx context.Context, electionID string) (*domain.TallyResult, error) {
	result, err := s.ComputeTally(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if err := s.results.Save(ctx, result); err != nil {
		return nil, storageErr("save tally", err)
	}
	return result, nil
}

// RecomputeAll recomputes every election independently. A failing election is
// reported in its outcome and never stops the others.
func (s *tallyService) RecomputeAll(ctx context.Context) ([]domain.RecomputeOutcome, error) {
	elections, err := s.elections.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list elections", err)
	}

	outcomes := make([]domain.RecomputeOutcome, len(elections))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, election := range elections {
		i, election := i, election
		g.Go(func() error {
			outcome := domain.RecomputeOutcome{ElectionID: election.ID}
			result, err := s.Recompute(ctx, election.ID)
			if err != nil {
				outcome.Err = err
				outcome.Error = err.Error()
				s.logger.Warn("tally recompute failed", "election_id", election.ID, "error", err)
			} else {
				outcome.TotalVotes = result.TotalVotes
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// Results returns the persisted tally, rebuilding it when the ledger has moved
// past it.
func (s *tallyService) Results(ctx context.Context, electionID string) (*domain.TallyResult, error) {
	id := normalizeElectionID(electionID)

	cached, err := s.results.GetByElection(ctx, id)
	if err != nil {
		return nil, storageErr("load tally", err)
	}
	if cached != nil {
		count, err := s.ledger.CountByElection(ctx, id)
		if err != nil {
			return nil, storageErr("count ballots", err)
		}
		if count == cached.TotalVotes {
			return cached, nil
		}
	}

	return s.Recompute(ctx, id)
}

func (s *tallyService) ExportCSV(ctx context.Context, electionID string, w io.Writer) error {
	result, err := s.Results(ctx, electionID)
	if err != nil {
		return err
	}
	if err := writeResultsCSV(w, result); err != nil {
		return fmt.Errorf("failed to write results csv: %w", err)
	}
	return nil
}
