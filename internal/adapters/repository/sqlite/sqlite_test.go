package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "univote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db))
	return db
}

var votingDay = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestElectionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewElectionRepository(newTestDB(t))

	election := &domain.Election{
		ID:          "election_1",
		Title:       "Student Council",
		Description: "Annual vote",
		StartDate:   votingDay,
		EndDate:     votingDay.Add(10 * time.Hour),
		CreatedBy:   "admin1",
		CreatedAt:   votingDay.Add(-time.Hour + 123*time.Millisecond),
		Positions: []domain.Position{{
			ID: "pres", Title: "President", MaxVotes: 1,
			Candidates: []domain.Candidate{{ID: "alice", Name: "Alice", Goals: "Free coffee"}},
		}},
	}
	require.NoError(t, repo.Save(ctx, election))

	stored, err := repo.GetByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, election, stored)

	older := *election
	older.ID = "election_0"
	older.CreatedAt = votingDay.Add(-48 * time.Hour)
	require.NoError(t, repo.Save(ctx, &older))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "election_1", all[0].ID)

	election.Title = "Renamed"
	require.NoError(t, repo.Update(ctx, election))
	stored, err = repo.GetByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)

	require.NoError(t, repo.Delete(ctx, election.ID))
	_, err = repo.GetByID(ctx, election.ID)
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, election.ID), domain.ErrElectionNotFound)
}

func TestVoterRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewVoterRepository(newTestDB(t))

	voter := &domain.Voter{ID: "s1", Name: "Ada", Email: "ada@uni.edu", Role: domain.RoleStudent, CredentialHash: "hash"}
	require.NoError(t, repo.Create(ctx, voter))
	assert.ErrorIs(t, repo.Create(ctx, voter), domain.ErrVoterExists)
	assert.ErrorIs(t, repo.Create(ctx, &domain.Voter{ID: "s2", Name: "B", Email: "ada@uni.edu", Role: domain.RoleStudent, CredentialHash: "h"}), domain.ErrVoterExists)
	require.NoError(t, repo.Create(ctx, &domain.Voter{ID: "a1", Name: "Admin", Email: "admin@uni.edu", Role: domain.RoleAdmin, CredentialHash: "h"}))

	stored, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, voter, stored)

	_, err = repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrVoterNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.CountByRole(ctx, domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newTestDB(t))

	ballot := &domain.SealedBallot{
		ID: "b1", ElectionID: "e1", VoterID: "s1",
		PositionIDs: []string{"pres"}, SubmittedAt: votingDay, Origin: "10.0.0.1", Payload: []byte("sealed"),
	}
	require.NoError(t, ledger.Commit(ctx, ballot))

	err := ledger.Commit(ctx, &domain.SealedBallot{ID: "b2", ElectionID: "e1", VoterID: "s1", PositionIDs: []string{"vp"}, SubmittedAt: votingDay, Payload: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	ballots, err := ledger.ListByElection(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	assert.Equal(t, ballot, ballots[0])

	count, err := ledger.CountByElection(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	voted, err := ledger.HasVoted(ctx, "s1", "e1")
	require.NoError(t, err)
	assert.True(t, voted)

	positions, err := ledger.VotedPositions(ctx, "s2", "e1")
	require.NoError(t, err)
	assert.Empty(t, positions)

	require.NoError(t, ledger.MarkVoted(ctx, "s1", "e1", []string{"pres"}))
	assert.ErrorIs(t, ledger.MarkVoted(ctx, "s1", "e1", []string{"pres", "vp"}), domain.ErrConflictingState)
	assert.ErrorIs(t, ledger.MarkVoted(ctx, "s1", "e2", nil), domain.ErrInvalidSelection)

	elections, err := ledger.VotedElections(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"e1": {"pres"}}, elections)
}

func TestLedgerConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newTestDB(t))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- ledger.Commit(ctx, &domain.SealedBallot{
				ID: fmt.Sprintf("b%d", i), ElectionID: "e1", VoterID: "s1",
				PositionIDs: []string{"pres"}, SubmittedAt: votingDay, Payload: []byte("x"),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	}
	assert.Equal(t, 1, succeeded)
}

func TestTallyAndAuditRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tallies := NewTallyRepository(db)
	missing, err := tallies.GetByElection(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	result := &domain.TallyResult{
		ElectionID:  "e1",
		Title:       "Council",
		TotalVotes:  1,
		GeneratedAt: votingDay.Add(12 * time.Hour),
		Positions: []domain.PositionTally{{
			PositionID: "pres", TotalVotes: 1, WinnerID: "alice", Ranking: []string{"alice"},
			Candidates: []domain.CandidateTally{{CandidateID: "alice", CandidateName: "Alice", VoteCount: 1, Percentage: 100}},
		}},
	}
	require.NoError(t, tallies.Save(ctx, result))
	result.TotalVotes = 2
	require.NoError(t, tallies.Save(ctx, result))

	stored, err := tallies.GetByElection(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, result, stored)

	require.NoError(t, tallies.Delete(ctx, "e1"))
	stored, err = tallies.GetByElection(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, stored)

	audit := NewAuditRepository(db)
	for i, action := range []domain.AuditAction{domain.AuditCreateElection, domain.AuditCastVote} {
		require.NoError(t, audit.Append(ctx, domain.AuditEvent{Timestamp: votingDay.Add(time.Duration(i) * time.Minute), VoterID: "s1", Action: action}))
	}

	events, err := audit.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.AuditCastVote, events[0].Action)
	assert.Equal(t, votingDay, events[1].Timestamp)

	events, err = audit.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
