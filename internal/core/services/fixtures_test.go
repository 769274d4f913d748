package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/univote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/univote/internal/adapters/sealer"
	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

var (
	windowStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	duringVote  = windowStart.Add(2 * time.Hour)
	afterVote   = windowEnd.Add(2 * time.Hour)
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type auditRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *auditRecorder) Record(_ context.Context, event domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *auditRecorder) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]domain.AuditAction, 0, len(r.events))
	for _, e := range r.events {
		actions = append(actions, e.Action)
	}
	return actions
}

type testEnv struct {
	store     *memory.Store
	audit     *auditRecorder
	elections ports.ElectionService
	votes     ports.VoteService
	tallies   ports.TallyService
	voters    ports.VoterService
	election  *domain.Election
}

type envOption func(*VoteDependencies)

func withPolicy(policy ports.BallotPolicy) envOption {
	return func(d *VoteDependencies) { d.Policy = policy }
}

func withLedger(ledger ports.VoteLedger) envOption {
	return func(d *VoteDependencies) { d.Ledger = ledger }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store := memory.NewStore()
	audit := &auditRecorder{}
	clock := fixedClock{t: afterVote}
	ballotSealer := sealer.NewPlaintext()

	env := &testEnv{
		store:     store,
		audit:     audit,
		elections: NewElectionService(store.Elections(), store.Ledger(), store.Tallies(), clock),
		voters:    NewVoterService(store.Voters(), store.Ledger(), 4),
		tallies: NewTallyService(TallyDependencies{
			Elections: store.Elections(),
			Ledger:    store.Ledger(),
			Voters:    store.Voters(),
			Results:   store.Tallies(),
			Sealer:    ballotSealer,
			Clock:     clock,
		}),
	}

	deps := VoteDependencies{
		Elections:   store.Elections(),
		Ledger:      store.Ledger(),
		Eligibility: store.Ledger(),
		Sealer:      ballotSealer,
		Audit:       audit,
		Clock:       clock,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.votes = NewVoteService(deps)

	election, err := env.elections.Create(context.Background(), councilInput("Student Council"), "admin1")
	require.NoError(t, err)
	env.election = election

	return env
}

func councilInput(title string) ports.ElectionInput {
	return ports.ElectionInput{
		Title:       title,
		Description: "Annual council vote",
		StartDate:   windowStart,
		EndDate:     windowEnd,
		Positions: []ports.PositionInput{
			{
				ID:    "pres",
				Title: "President",
				Candidates: []ports.CandidateInput{
					{ID: "alice", Name: "Alice"},
					{ID: "bob", Name: "Bob"},
				},
			},
			{
				ID:    "vp",
				Title: "Vice President",
				Candidates: []ports.CandidateInput{
					{ID: "carol", Name: "Carol"},
					{ID: "dave", Name: "Dave"},
				},
			},
		},
	}
}

func (e *testEnv) vote(t *testing.T, voterID string, selections map[string]string) *domain.VoteReceipt {
	t.Helper()
	receipt, err := e.votes.SubmitVote(context.Background(), ports.SubmitVoteInput{
		ElectionID:  e.election.ID,
		VoterID:     voterID,
		Selections:  selections,
		SubmittedAt: duringVote,
		Origin:      "127.0.0.1",
	})
	require.NoError(t, err)
	return receipt
}
