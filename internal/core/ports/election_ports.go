package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type ElectionRepository interface {
	Save(ctx context.Context, election *domain.Election) error
	Update(ctx context.Context, election *domain.Election) error
	GetByID(ctx context.Context, id string) (*domain.Election, error)
	GetAll(ctx context.Context) ([]*domain.Election, error)
	Delete(ctx context.Context, id string) error
}

type CandidateInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Photo string `json:"photo,omitempty"`
	Goals string `json:"goals,omitempty"`
}

type PositionInput struct {
	ID         string           `json:"id,omitempty"`
	Title      string           `json:"title"`
	MaxVotes   int              `json:"max_votes"`
	Candidates []CandidateInput `json:"candidates"`
}

type ElectionInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Positions   []PositionInput `json:"positions"`
}

type ElectionService interface {
	Create(ctx context.Context, input ElectionInput, createdBy string) (*domain.Election, error)
	Get(ctx context.Context, id string) (*domain.Election, error)
	List(ctx context.Context) ([]*domain.Election, error)
	Update(ctx context.Context, id string, input ElectionInput) (*domain.Election, error)
	Delete(ctx context.Context, id string) error
}
