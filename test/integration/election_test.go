package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

func doJSON(t *testing.T, app *TestApp, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

func openElectionPayload() map[string]any {
	now := time.Now().UTC()
	return map[string]any{
		"title":       "Student Council",
		"description": "Integration run",
		"start_date":  now.Add(-time.Hour).Format(time.RFC3339),
		"end_date":    now.Add(time.Hour).Format(time.RFC3339),
		"positions": []map[string]any{
			{
				"id":    "pres",
				"title": "President",
				"candidates": []map[string]any{
					{"id": "alice", "name": "Alice"},
					{"id": "bob", "name": "Bob"},
				},
			},
			{
				"id":    "vp",
				"title": "Vice President",
				"candidates": []map[string]any{
					{"id": "carol", "name": "Carol"},
					{"id": "dave", "name": "Dave"},
				},
			},
		},
	}
}

func createElection(t *testing.T, app *TestApp, admin string) domain.Election {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/elections", admin, openElectionPayload())
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var election domain.Election
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&election))
	return election
}

func TestElectionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	admin := createToken(t, "admin1", domain.RoleAdmin)

	// 1. Register voters
	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/admin/users", admin, map[string]any{
			"student_id": fmt.Sprintf("s%d", i),
			"name":       fmt.Sprintf("Student %d", i),
			"email":      fmt.Sprintf("s%d@uni.edu", i),
			"password":   "secret",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// 2. Create election
	election := createElection(t, app, admin)

	// 3. Vote
	ballots := map[string]map[string]string{
		"s0": {"pres": "alice", "vp": "carol"},
		"s1": {"pres": "alice", "vp": "dave"},
		"s2": {"pres": "bob"},
	}
	for voter, votes := range ballots {
		resp := doJSON(t, app, http.MethodPost, "/api/elections/"+election.ID+"/vote", createToken(t, voter, domain.RoleStudent), map[string]any{"votes": votes})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode, voter)
	}

	// 4. Repeat vote is rejected and leaves the ledger untouched
	resp := doJSON(t, app, http.MethodPost, "/api/elections/"+election.ID+"/vote", createToken(t, "s2", domain.RoleStudent), map[string]any{
		"votes": map[string]string{"vp": "carol"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var count int
	err := app.DB.QueryRow("SELECT COUNT(*) FROM ballots WHERE election_id = $1", election.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var positions string
	err = app.DB.QueryRow("SELECT position_ids FROM voter_elections WHERE voter_id = $1 AND election_id = $2", "s2", election.ID).Scan(&positions)
	require.NoError(t, err)
	assert.JSONEq(t, `["pres"]`, positions)

	// 5. Stored ballots are sealed
	var payload []byte
	err = app.DB.QueryRow("SELECT payload FROM ballots WHERE voter_id = $1", "s0").Scan(&payload)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "alice")
	assert.NotContains(t, string(payload), "PLAINTEXT:")

	// 6. Results
	resp = doJSON(t, app, http.MethodGet, "/api/elections/"+election.ID+"/results", createToken(t, "s0", domain.RoleStudent), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/elections/"+election.ID+"/results", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result domain.TallyResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()

	assert.Equal(t, 3, result.TotalVotes)
	assert.Equal(t, 3, result.EligibleVoters)
	require.Len(t, result.Positions, 2)
	assert.Equal(t, "alice", result.Positions[0].WinnerID)
	assert.Equal(t, 3, result.Positions[0].TotalVotes)
	assert.Equal(t, 2, result.Positions[1].TotalVotes)
	assert.Equal(t, "carol", result.Positions[1].WinnerID)

	// 7. Voter profile reflects the ledger
	resp = doJSON(t, app, http.MethodGet, "/api/me", createToken(t, "s2", domain.RoleStudent), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me domain.Voter
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, map[string][]string{election.ID: {"pres"}}, me.VotedElections)

	// 8. Export
	resp = doJSON(t, app, http.MethodGet, "/api/admin/elections/"+election.ID+"/export", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	csv, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(csv), "President,Alice,2,66.67,Student Council,3,3,")

	// 9. Audit trail is flushed on shutdown
	require.NoError(t, app.Audit.Close(context.Background()))
	rows, err := app.DB.Query("SELECT action FROM audit_logs ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var action string
		require.NoError(t, rows.Scan(&action))
		actions = append(actions, action)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{
		"CREATE_USER", "CREATE_USER", "CREATE_USER",
		"CREATE_ELECTION",
		"CAST_VOTE", "CAST_VOTE", "CAST_VOTE",
		"VOTE_REJECTED_ALREADY_VOTED",
		"EXPORT_RESULTS",
	}, actions)
}

func TestConcurrentVotesFromOneVoter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	election := createElection(t, app, createToken(t, "admin1", domain.RoleAdmin))
	token := createToken(t, "s1", domain.RoleStudent)

	const attempts = 20
	statuses := make([]int, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidate := "alice"
			if i%2 == 1 {
				candidate = "bob"
			}
			payload, _ := json.Marshal(map[string]any{"votes": map[string]string{"pres": candidate}})
			req, err := http.NewRequest(http.MethodPost, app.Server.URL+"/api/elections/"+election.ID+"/vote", bytes.NewReader(payload))
			if err != nil {
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.Client.Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	created := 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		default:
			assert.Equal(t, http.StatusConflict, status)
		}
	}
	assert.Equal(t, 1, created)

	var ballots, marks int
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM ballots WHERE voter_id = $1", "s1").Scan(&ballots))
	require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM voter_elections WHERE voter_id = $1", "s1").Scan(&marks))
	assert.Equal(t, 1, ballots)
	assert.Equal(t, 1, marks)
}
