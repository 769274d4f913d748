package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test")
	}

	ctx := context.Background()
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// Migrations are re-runnable.
	require.NoError(t, Migrate(ctx, db))

	return db
}

func sampleElection(id string) *domain.Election {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return &domain.Election{
		ID:          id,
		Title:       "Student Council",
		Description: "Annual vote",
		StartDate:   start,
		EndDate:     start.Add(10 * time.Hour),
		CreatedBy:   "admin1",
		CreatedAt:   start.Add(-24 * time.Hour),
		Positions: []domain.Position{{
			ID:       "pres",
			Title:    "President",
			MaxVotes: 1,
			Candidates: []domain.Candidate{
				{ID: "alice", Name: "Alice", Bio: "Runs a lot"},
				{ID: "bob", Name: "Bob"},
			},
		}},
	}
}

func TestPostgresRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	t.Run("Elections", func(t *testing.T) {
		repo := NewElectionRepository(db)
		election := sampleElection("election_pg_1")

		require.NoError(t, repo.Save(ctx, election))

		stored, err := repo.GetByID(ctx, election.ID)
		require.NoError(t, err)
		assert.Equal(t, election, stored)

		election.Title = "Renamed"
		require.NoError(t, repo.Update(ctx, election))
		stored, err = repo.GetByID(ctx, election.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.Title)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		require.NoError(t, repo.Delete(ctx, election.ID))
		_, err = repo.GetByID(ctx, election.ID)
		assert.ErrorIs(t, err, domain.ErrElectionNotFound)
		assert.ErrorIs(t, repo.Update(ctx, election), domain.ErrElectionNotFound)
	})

	t.Run("Voters", func(t *testing.T) {
		repo := NewVoterRepository(db)
		voter := &domain.Voter{ID: "s1", Name: "Ada", Email: "ada@uni.edu", Role: domain.RoleStudent, CredentialHash: "hash"}

		require.NoError(t, repo.Create(ctx, voter))
		assert.ErrorIs(t, repo.Create(ctx, voter), domain.ErrVoterExists)

		dupEmail := &domain.Voter{ID: "s2", Name: "Other", Email: "ada@uni.edu", Role: domain.RoleStudent, CredentialHash: "hash"}
		assert.ErrorIs(t, repo.Create(ctx, dupEmail), domain.ErrVoterExists)

		stored, err := repo.GetByID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, voter, stored)

		_, err = repo.GetByID(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrVoterNotFound)

		count, err := repo.CountByRole(ctx, domain.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Tallies", func(t *testing.T) {
		repo := NewTallyRepository(db)

		missing, err := repo.GetByElection(ctx, "election_none")
		require.NoError(t, err)
		assert.Nil(t, missing)

		result := &domain.TallyResult{
			ElectionID:  "election_t",
			Title:       "T",
			TotalVotes:  3,
			GeneratedAt: time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
			Positions: []domain.PositionTally{{
				PositionID: "pres",
				TotalVotes: 3,
				WinnerID:   "alice",
				Ranking:    []string{"alice", "bob"},
				Candidates: []domain.CandidateTally{
					{CandidateID: "alice", VoteCount: 2, Percentage: 200.0 / 3},
					{CandidateID: "bob", VoteCount: 1, Percentage: 100.0 / 3},
				},
			}},
		}
		require.NoError(t, repo.Save(ctx, result))
		result.TotalVotes = 4
		require.NoError(t, repo.Save(ctx, result))

		stored, err := repo.GetByElection(ctx, "election_t")
		require.NoError(t, err)
		assert.Equal(t, result, stored)

		require.NoError(t, repo.Delete(ctx, "election_t"))
		require.NoError(t, repo.Delete(ctx, "election_t"))
		stored, err = repo.GetByElection(ctx, "election_t")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("Audit", func(t *testing.T) {
		repo := NewAuditRepository(db)
		at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

		require.NoError(t, repo.Append(ctx, domain.AuditEvent{Timestamp: at, VoterID: "s1", Action: domain.AuditCastVote, Origin: "10.0.0.1"}))
		require.NoError(t, repo.Append(ctx, domain.AuditEvent{Timestamp: at.Add(time.Second), VoterID: "a1", Action: domain.AuditExportResults}))

		events, err := repo.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.AuditExportResults, events[0].Action)

		events, err = repo.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, at, events[1].Timestamp)
		assert.Equal(t, "10.0.0.1", events[1].Origin)
	})
}

func TestPostgresLedger(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	ledger := NewLedger(db)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("Commit writes ballot and mark together", func(t *testing.T) {
		ballot := &domain.SealedBallot{
			ID: "b1", ElectionID: "e1", VoterID: "s1",
			PositionIDs: []string{"pres", "vp"}, SubmittedAt: at, Origin: "10.0.0.1", Payload: []byte{0x01, 0x02},
		}
		require.NoError(t, ledger.Commit(ctx, ballot))

		err := ledger.Commit(ctx, &domain.SealedBallot{ID: "b2", ElectionID: "e1", VoterID: "s1", PositionIDs: []string{"pres"}, SubmittedAt: at, Payload: []byte{0x03}})
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

		ballots, err := ledger.ListByElection(ctx, "e1")
		require.NoError(t, err)
		require.Len(t, ballots, 1)
		assert.Equal(t, ballot, ballots[0])

		positions, err := ledger.VotedPositions(ctx, "s1", "e1")
		require.NoError(t, err)
		assert.Equal(t, []string{"pres", "vp"}, positions)

		voted, err := ledger.VotedElections(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"e1": {"pres", "vp"}}, voted)
	})

	t.Run("Concurrent commits admit one ballot", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- ledger.Commit(ctx, &domain.SealedBallot{
					ID: fmt.Sprintf("race-%d", i), ElectionID: "e2", VoterID: "s1",
					PositionIDs: []string{"pres"}, SubmittedAt: at, Payload: []byte{0x01},
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

		count, err := ledger.CountByElection(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("MarkVoted", func(t *testing.T) {
		require.NoError(t, ledger.MarkVoted(ctx, "s3", "e3", []string{"pres", "vp"}))
		assert.NoError(t, ledger.MarkVoted(ctx, "s3", "e3", []string{"vp", "pres"}))
		assert.ErrorIs(t, ledger.MarkVoted(ctx, "s3", "e3", []string{"pres"}), domain.ErrConflictingState)
		assert.ErrorIs(t, ledger.MarkVoted(ctx, "s4", "e3", nil), domain.ErrInvalidSelection)

		voted, err := ledger.HasVoted(ctx, "s3", "e3")
		require.NoError(t, err)
		assert.True(t, voted)

		positions, err := ledger.VotedPositions(ctx, "nobody", "e3")
		require.NoError(t, err)
		assert.Empty(t, positions)
	})
}

func TestMigrationFile(t *testing.T) {
	name, content, err := MigrationFile("create_univote_schema.up")
	require.NoError(t, err)
	assert.Equal(t, "000001_create_univote_schema.up.sql", name)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS ballots")

	_, _, err = MigrationFile("missing")
	assert.Error(t, err)
}
