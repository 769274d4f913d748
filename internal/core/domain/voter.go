package domain

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Voter is a registered user. VotedElections is filled from the eligibility
// ledger when a voter is read and is never written back through the voter.
type Voter struct {
	ID             string              `json:"student_id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Role           Role                `json:"role"`
	CredentialHash string              `json:"-"`
	VotedElections map[string][]string `json:"voted_elections,omitempty"`
}
