package domain

import "time"

type AuditAction string

const (
	AuditCastVote             AuditAction = "CAST_VOTE"
	AuditVoteNotFound         AuditAction = "VOTE_REJECTED_NOT_FOUND"
	AuditVoteClosed           AuditAction = "VOTE_REJECTED_CLOSED"
	AuditVoteAlreadyVoted     AuditAction = "VOTE_REJECTED_ALREADY_VOTED"
	AuditVoteInvalidSelection AuditAction = "VOTE_REJECTED_INVALID_SELECTION"
	AuditVoteConflict         AuditAction = "VOTE_REJECTED_CONFLICT"
	AuditVoteStorageFailure   AuditAction = "VOTE_FAILED_STORAGE"
	AuditCreateElection       AuditAction = "CREATE_ELECTION"
	AuditUpdateElection       AuditAction = "UPDATE_ELECTION"
	AuditDeleteElection       AuditAction = "DELETE_ELECTION"
	AuditCreateVoter          AuditAction = "CREATE_USER"
	AuditRecomputeStats       AuditAction = "RECOMPUTE_STATS"
	AuditRecomputeAllStats    AuditAction = "RECOMPUTE_ALL_STATS"
	AuditExportResults        AuditAction = "EXPORT_RESULTS"
)

type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	VoterID   string      `json:"user_id"`
	Action    AuditAction `json:"action"`
	Detail    string      `json:"details"`
	Origin    string      `json:"ip_address"`
}
