package domain

import "time"

// VoteRecord is a single submitted ballot. Created once per (voter, election)
// and never mutated.
type VoteRecord struct {
	ID          string            `json:"id"`
	ElectionID  string            `json:"election_id"`
	VoterID     string            `json:"voter_id"`
	Selections  map[string]string `json:"selections"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Origin      string            `json:"origin"`
}

// SealedBallot is the stored form of a VoteRecord: metadata needed for
// eligibility checks in the clear, selections sealed into Payload.
type SealedBallot struct {
	ID          string
	ElectionID  string
	VoterID     string
	PositionIDs []string
	SubmittedAt time.Time
	Origin      string
	Payload     []byte
}

type VoteReceipt struct {
	VoteID      string   `json:"vote_id"`
	ElectionID  string   `json:"election_id"`
	PositionIDs []string `json:"positions"`
}

type VoteStatus struct {
	HasVoted       bool     `json:"has_voted"`
	VotedPositions []string `json:"voted_positions"`
}
