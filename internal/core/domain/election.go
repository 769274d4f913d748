package domain

import (
	"fmt"
	"strings"
	"time"
)

type Election struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Positions   []Position `json:"positions"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Position struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	MaxVotes   int         `json:"max_votes"`
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Photo string `json:"photo,omitempty"`
	Goals string `json:"goals,omitempty"`
}

type ElectionStatus string

const (
	StatusUpcoming ElectionStatus = "upcoming"
	StatusActive   ElectionStatus = "active"
	StatusClosed   ElectionStatus = "closed"
)

// StatusAt agrees with IsOpenAt: an election is active on both window edges.
func (e *Election) StatusAt(t time.Time) ElectionStatus {
	switch {
	case t.Before(e.StartDate):
		return StatusUpcoming
	case t.After(e.EndDate):
		return StatusClosed
	default:
		return StatusActive
	}
}

// IsOpenAt reports whether t falls inside [StartDate, EndDate], both ends inclusive.
func (e *Election) IsOpenAt(t time.Time) bool {
	return !t.Before(e.StartDate) && !t.After(e.EndDate)
}

// HasEnded reports whether t is strictly after the end of the voting window.
func (e *Election) HasEnded(t time.Time) bool {
	return t.After(e.EndDate)
}

func (e *Election) Position(id string) (*Position, bool) {
	for i := range e.Positions {
		if e.Positions[i].ID == id {
			return &e.Positions[i], true
		}
	}
	return nil, false
}

func (p *Position) Candidate(id string) (*Candidate, bool) {
	for i := range p.Candidates {
		if p.Candidates[i].ID == id {
			return &p.Candidates[i], true
		}
	}
	return nil, false
}

// Validate checks the structural invariants of an election definition.
func (e *Election) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidElection)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidElection)
	}
	if !e.StartDate.Before(e.EndDate) {
		return fmt.Errorf("%w: start date must be before end date", ErrInvalidElection)
	}
	if len(e.Positions) == 0 {
		return fmt.Errorf("%w: at least one position is required", ErrInvalidElection)
	}

	seen := make(map[string]struct{}, len(e.Positions))
	for _, p := range e.Positions {
		if p.ID == "" {
			return fmt.Errorf("%w: position id is required", ErrInvalidElection)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate position id %q", ErrInvalidElection, p.ID)
		}
		seen[p.ID] = struct{}{}

		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Position) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: position %q: title is required", ErrInvalidElection, p.ID)
	}
	if p.MaxVotes < 1 {
		return fmt.Errorf("%w: position %q: max votes must be at least 1", ErrInvalidElection, p.ID)
	}
	if len(p.Candidates) == 0 {
		return fmt.Errorf("%w: position %q: at least one candidate is required", ErrInvalidElection, p.ID)
	}

	seen := make(map[string]struct{}, len(p.Candidates))
	for _, c := range p.Candidates {
		if c.ID == "" {
			return fmt.Errorf("%w: position %q: candidate id is required", ErrInvalidElection, p.ID)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: position %q: candidate %q: name is required", ErrInvalidElection, p.ID, c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: position %q: duplicate candidate id %q", ErrInvalidElection, p.ID, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
