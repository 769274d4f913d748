package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

func TestComputeTally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := env.voters.Register(ctx, ports.RegisterVoterInput{StudentID: id, Name: id, Email: id + "@uni.edu", Password: "secret"})
		require.NoError(t, err)
	}
	_, err := env.voters.Register(ctx, ports.RegisterVoterInput{StudentID: "a1", Name: "Admin", Email: "admin@uni.edu", Role: domain.RoleAdmin, Password: "secret"})
	require.NoError(t, err)

	env.vote(t, "s1", map[string]string{"pres": "alice", "vp": "carol"})
	env.vote(t, "s2", map[string]string{"pres": "alice"})
	env.vote(t, "s3", map[string]string{"pres": "bob", "vp": "dave"})

	result, err := env.tallies.ComputeTally(ctx, env.election.ID)
	require.NoError(t, err)

	assert.Equal(t, env.election.ID, result.ElectionID)
	assert.Equal(t, "Student Council", result.Title)
	assert.Equal(t, 3, result.TotalVotes)
	assert.Equal(t, 3, result.EligibleVoters)
	assert.Equal(t, afterVote, result.GeneratedAt)
	require.Len(t, result.Positions, 2)

	pres := result.Positions[0]
	assert.Equal(t, "pres", pres.PositionID)
	assert.Equal(t, 3, pres.TotalVotes)
	assert.Equal(t, "alice", pres.WinnerID)
	assert.Equal(t, []string{"alice", "bob"}, pres.Ranking)
	assert.Equal(t, 2, pres.Candidates[0].VoteCount)
	assert.InDelta(t, 66.67, pres.Candidates[0].Percentage, 0.01)
	assert.InDelta(t, 33.33, pres.Candidates[1].Percentage, 0.01)

	vp := result.Positions[1]
	assert.Equal(t, 2, vp.TotalVotes)
	assert.InDelta(t, 50.0, vp.Candidates[0].Percentage, 0.001)

	// Every position's counts sum to its total, never above the ballot count.
	for _, p := range result.Positions {
		sum := 0
		for _, c := range p.Candidates {
			sum += c.VoteCount
		}
		assert.Equal(t, p.TotalVotes, sum)
		assert.LessOrEqual(t, p.TotalVotes, result.TotalVotes)
	}
}

func TestComputeTallyNoVotes(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.tallies.ComputeTally(context.Background(), env.election.ID)
	require.NoError(t, err)

	assert.Zero(t, result.TotalVotes)
	for _, p := range result.Positions {
		assert.Empty(t, p.WinnerID)
		for _, c := range p.Candidates {
			assert.Zero(t, c.VoteCount)
			assert.Zero(t, c.Percentage)
		}
	}
}

func TestComputeTallyTieGoesToFirstListed(t *testing.T) {
	env := newTestEnv(t)

	// Bob votes land first so insertion order cannot explain the winner.
	env.vote(t, "s1", map[string]string{"pres": "bob"})
	env.vote(t, "s2", map[string]string{"pres": "bob"})
	env.vote(t, "s3", map[string]string{"pres": "alice"})
	env.vote(t, "s4", map[string]string{"pres": "alice"})

	for i := 0; i < 20; i++ {
		result, err := env.tallies.ComputeTally(context.Background(), env.election.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", result.Positions[0].WinnerID)
		assert.Equal(t, []string{"alice", "bob"}, result.Positions[0].Ranking)
	}
}

func TestComputeTallyIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vote(t, "s1", map[string]string{"pres": "alice", "vp": "dave"})
	env.vote(t, "s2", map[string]string{"pres": "bob", "vp": "dave"})

	first, err := env.tallies.ComputeTally(ctx, env.election.ID)
	require.NoError(t, err)
	second, err := env.tallies.ComputeTally(ctx, env.election.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeTallyCorruptBallot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.store.Ledger().Commit(ctx, &domain.SealedBallot{
		ID:          "forged",
		ElectionID:  env.election.ID,
		VoterID:     "s9",
		PositionIDs: []string{"pres"},
		Payload:     []byte(`PLAINTEXT:{"pres":"mallory"}`),
	})
	require.NoError(t, err)

	_, err = env.tallies.ComputeTally(ctx, env.election.ID)
	assert.ErrorIs(t, err, domain.ErrCorruptBallot)
}

func TestComputeTallyUnknownElection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tallies.ComputeTally(context.Background(), "election_missing")
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
}

func TestRecomputeAllIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vote(t, "s1", map[string]string{"pres": "alice"})

	broken, err := env.elections.Create(ctx, councilInput("Broken"), "admin1")
	require.NoError(t, err)
	err = env.store.Ledger().Commit(ctx, &domain.SealedBallot{
		ID:          "forged",
		ElectionID:  broken.ID,
		VoterID:     "s1",
		PositionIDs: []string{"pres"},
		Payload:     []byte("garbage"),
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := env.elections.Create(ctx, councilInput(fmt.Sprintf("Extra %d", i)), "admin1")
		require.NoError(t, err)
	}

	outcomes, err := env.tallies.RecomputeAll(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 7)

	failed := 0
	for _, o := range outcomes {
		if o.ElectionID == broken.ID {
			failed++
			assert.ErrorIs(t, o.Err, domain.ErrCorruptBallot)
			assert.NotEmpty(t, o.Error)
			continue
		}
		assert.NoError(t, o.Err)

		stored, err := env.store.Tallies().GetByElection(ctx, o.ElectionID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, o.TotalVotes, stored.TotalVotes)
	}
	assert.Equal(t, 1, failed)

	stored, err := env.store.Tallies().GetByElection(ctx, env.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVotes)
}

func TestResultsRefreshWhenLedgerMoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vote(t, "s1", map[string]string{"pres": "alice"})
	_, err := env.tallies.Recompute(ctx, env.election.ID)
	require.NoError(t, err)

	result, err := env.tallies.Results(ctx, env.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalVotes)

	env.vote(t, "s2", map[string]string{"pres": "bob"})

	result, err = env.tallies.Results(ctx, env.election.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalVotes)
	assert.Equal(t, 1, result.Positions[0].Candidates[1].VoteCount)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.vote(t, "s1", map[string]string{"pres": "alice", "vp": "carol"})
	env.vote(t, "s2", map[string]string{"pres": "alice"})

	var buf bytes.Buffer
	require.NoError(t, env.tallies.ExportCSV(ctx, env.election.ID, &buf))

	want := resultsCSVHeader + "\n" +
		"President,Alice,2,100.00,Student Council,2,0,2026-03-02T20:00:00Z\n" +
		"President,Bob,0,0.00,Student Council,2,0,2026-03-02T20:00:00Z\n" +
		"Vice President,Carol,1,100.00,Student Council,2,0,2026-03-02T20:00:00Z\n" +
		"Vice President,Dave,0,0.00,Student Council,2,0,2026-03-02T20:00:00Z"
	assert.Equal(t, want, buf.String())
}
