package domain

import "time"

// TallyResult is derived from the vote ledger and can always be rebuilt from it.
type TallyResult struct {
	ElectionID     string          `json:"election_id"`
	Title          string          `json:"title"`
	TotalVotes     int             `json:"total_votes"`
	EligibleVoters int             `json:"eligible_voters"`
	Positions      []PositionTally `json:"results"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type PositionTally struct {
	PositionID    string           `json:"position_id"`
	PositionTitle string           `json:"position_title"`
	TotalVotes    int              `json:"total_votes"`
	WinnerID      string           `json:"winner_id,omitempty"`
	Ranking       []string         `json:"ranking"`
	Candidates    []CandidateTally `json:"candidates"`
}

type CandidateTally struct {
	CandidateID   string  `json:"candidate_id"`
	CandidateName string  `json:"candidate_name"`
	VoteCount     int     `json:"vote_count"`
	Percentage    float64 `json:"percentage"`
}

// RecomputeOutcome is the per-election result of a batch recompute.
type RecomputeOutcome struct {
	ElectionID string `json:"election_id"`
	TotalVotes int    `json:"total_votes"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}
