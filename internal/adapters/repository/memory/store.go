package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type eligibilityKey struct {
	voterID    string
	electionID string
}

// Store keeps every aggregate behind one lock so a ballot and its eligibility
// mark always land together.
type Store struct {
	mu sync.RWMutex

	elections map[string]domain.Election
	voters    map[string]domain.Voter
	ballots   map[string][]domain.SealedBallot
	marks     map[eligibilityKey][]string
	tallies   map[string]domain.TallyResult
	auditLog  []domain.AuditEvent
}

func NewStore() *Store {
	return &Store{
		elections: make(map[string]domain.Election),
		voters:    make(map[string]domain.Voter),
		ballots:   make(map[string][]domain.SealedBallot),
		marks:     make(map[eligibilityKey][]string),
		tallies:   make(map[string]domain.TallyResult),
		auditLog:  make([]domain.AuditEvent, 0),
	}
}

func (s *Store) Elections() ports.ElectionRepository {
	return electionRepository{s}
}

func (s *Store) Voters() ports.VoterRepository {
	return voterRepository{s}
}

func (s *Store) Tallies() ports.TallyRepository {
	return tallyRepository{s}
}

func (s *Store) Audit() ports.AuditRepository {
	return auditRepository{s}
}

// Ledger serves both the vote ledger and the eligibility ledger.
func (s *Store) Ledger() *Ledger {
	return &Ledger{s}
}

type electionRepository struct{ s *Store }

func (r electionRepository) Save(_ context.Context, election *domain.Election) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.elections[election.ID]; exists {
		return domain.ErrInvalidElection
	}
	r.s.elections[election.ID] = cloneElection(*election)
	return nil
}

func (r electionRepository) Update(_ context.Context, election *domain.Election) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.elections[election.ID]; !exists {
		return domain.ErrElectionNotFound
	}
	r.s.elections[election.ID] = cloneElection(*election)
	return nil
}

func (r electionRepository) GetByID(_ context.Context, id string) (*domain.Election, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, exists := r.s.elections[strings.TrimSpace(id)]
	if !exists {
		return nil, domain.ErrElectionNotFound
	}
	election := cloneElection(item)
	return &election, nil
}

func (r electionRepository) GetAll(_ context.Context) ([]*domain.Election, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.Election, 0, len(r.s.elections))
	for _, item := range r.s.elections {
		election := cloneElection(item)
		items = append(items, &election)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (r electionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.elections[id]; !exists {
		return domain.ErrElectionNotFound
	}
	delete(r.s.elections, id)
	return nil
}

type voterRepository struct{ s *Store }

func (r voterRepository) Create(_ context.Context, voter *domain.Voter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.voters[voter.ID]; exists {
		return domain.ErrVoterExists
	}
	for _, v := range r.s.voters {
		if v.Email == voter.Email {
			return domain.ErrVoterExists
		}
	}
	stored := *voter
	stored.VotedElections = nil
	r.s.voters[voter.ID] = stored
	return nil
}

func (r voterRepository) GetByID(_ context.Context, id string) (*domain.Voter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, exists := r.s.voters[id]
	if !exists {
		return nil, domain.ErrVoterNotFound
	}
	return &item, nil
}

func (r voterRepository) GetAll(_ context.Context) ([]*domain.Voter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]*domain.Voter, 0, len(r.s.voters))
	for _, item := range r.s.voters {
		voter := item
		items = append(items, &voter)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r voterRepository) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, v := range r.s.voters {
		if v.Role == role {
			count++
		}
	}
	return count, nil
}

type Ledger struct{ s *Store }

var (
	_ ports.VoteLedger        = (*Ledger)(nil)
	_ ports.EligibilityLedger = (*Ledger)(nil)
)

func (l *Ledger) Commit(_ context.Context, ballot *domain.SealedBallot) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	key := eligibilityKey{voterID: ballot.VoterID, electionID: ballot.ElectionID}
	if _, voted := l.s.marks[key]; voted {
		return domain.ErrAlreadyVoted
	}

	stored := *ballot
	stored.PositionIDs = slices.Clone(ballot.PositionIDs)
	stored.Payload = slices.Clone(ballot.Payload)
	l.s.ballots[ballot.ElectionID] = append(l.s.ballots[ballot.ElectionID], stored)
	l.s.marks[key] = slices.Clone(ballot.PositionIDs)
	return nil
}

func (l *Ledger) ListByElection(_ context.Context, electionID string) ([]*domain.SealedBallot, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	stored := l.s.ballots[electionID]
	items := make([]*domain.SealedBallot, 0, len(stored))
	for _, b := range stored {
		ballot := b
		ballot.PositionIDs = slices.Clone(b.PositionIDs)
		ballot.Payload = slices.Clone(b.Payload)
		items = append(items, &ballot)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].SubmittedAt.Before(items[j].SubmittedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (l *Ledger) CountByElection(_ context.Context, electionID string) (int, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return len(l.s.ballots[electionID]), nil
}

func (l *Ledger) HasVoted(_ context.Context, voterID, electionID string) (bool, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	_, voted := l.s.marks[eligibilityKey{voterID: voterID, electionID: electionID}]
	return voted, nil
}

func (l *Ledger) VotedPositions(_ context.Context, voterID, electionID string) ([]string, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return slices.Clone(l.s.marks[eligibilityKey{voterID: voterID, electionID: electionID}]), nil
}

func (l *Ledger) VotedElections(_ context.Context, voterID string) (map[string][]string, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	voted := make(map[string][]string)
	for key, positions := range l.s.marks {
		if key.voterID == voterID {
			voted[key.electionID] = slices.Clone(positions)
		}
	}
	return voted, nil
}

func (l *Ledger) MarkVoted(_ context.Context, voterID, electionID string, positionIDs []string) error {
	if len(positionIDs) == 0 {
		return &domain.InvalidSelectionError{Reason: "no positions to mark"}
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	key := eligibilityKey{voterID: voterID, electionID: electionID}
	existing, voted := l.s.marks[key]
	if !voted {
		l.s.marks[key] = slices.Clone(positionIDs)
		return nil
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

type tallyRepository struct{ s *Store }

func (r tallyRepository) Save(_ context.Context, result *domain.TallyResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tallies[result.ElectionID] = cloneTally(*result)
	return nil
}

func (r tallyRepository) GetByElection(_ context.Context, electionID string) (*domain.TallyResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, exists := r.s.tallies[electionID]
	if !exists {
		return nil, nil
	}
	result := cloneTally(item)
	return &result, nil
}

func (r tallyRepository) Delete(_ context.Context, electionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tallies, electionID)
	return nil
}

type auditRepository struct{ s *Store }

func (r auditRepository) Append(_ context.Context, event domain.AuditEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.auditLog = append(r.s.auditLog, event)
	return nil
}

// List returns the newest events first.
func (r auditRepository) List(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := len(r.s.auditLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	items := make([]domain.AuditEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		items = append(items, r.s.auditLog[i])
	}
	return items, nil
}

func cloneElection(e domain.Election) domain.Election {
	positions := make([]domain.Position, len(e.Positions))
	for i, p := range e.Positions {
		p.Candidates = slices.Clone(p.Candidates)
		positions[i] = p
	}
	e.Positions = positions
	return e
}

func cloneTally(r domain.TallyResult) domain.TallyResult {
	positions := make([]domain.PositionTally, len(r.Positions))
	for i, p := range r.Positions {
		p.Ranking = slices.Clone(p.Ranking)
		p.Candidates = slices.Clone(p.Candidates)
		positions[i] = p
	}
	r.Positions = positions
	return r
}
