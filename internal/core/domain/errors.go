package domain

import (
	"errors"
	"fmt"
)

var (
	ErrElectionNotFound = errors.New("election not found")
	ErrInvalidElection  = errors.New("invalid election definition")
	ErrVotingClosed     = errors.New("voting is not currently allowed for this election")
	ErrAlreadyVoted     = errors.New("voter has already voted in this election")
	ErrInvalidSelection = errors.New("invalid ballot selection")
	ErrConflictingState = errors.New("conflicting voting state for this voter and election")
	ErrStorage          = errors.New("storage failure")
	ErrCorruptBallot    = errors.New("ballot does not match election structure")
	ErrVoterNotFound    = errors.New("voter not found")
	ErrVoterExists      = errors.New("voter already exists")
	ErrInvalidVoter     = errors.New("invalid voter")
	ErrResultsNotReady  = errors.New("results not available until election ends")
)

// InvalidSelectionError reports the ballot entry that failed referential checks.
type InvalidSelectionError struct {
	PositionID  string
	CandidateID string
	Reason      string
}

func (e *InvalidSelectionError) Error() string {
	switch {
	case e.CandidateID != "":
		return fmt.Sprintf("%s: position %q candidate %q: %s", ErrInvalidSelection, e.PositionID, e.CandidateID, e.Reason)
	case e.PositionID != "":
		return fmt.Sprintf("%s: position %q: %s", ErrInvalidSelection, e.PositionID, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrInvalidSelection, e.Reason)
	}
}

func (e *InvalidSelectionError) Unwrap() error {
	return ErrInvalidSelection
}
