package ports

import (
	"context"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type VoterRepository interface {
	Create(ctx context.Context, voter *domain.Voter) error
	GetByID(ctx context.Context, id string) (*domain.Voter, error)
	GetAll(ctx context.Context) ([]*domain.Voter, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

type RegisterVoterInput struct {
	StudentID string      `json:"student_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Password  string      `json:"password"`
}

type VoterService interface {
	Register(ctx context.Context, input RegisterVoterInput) (*domain.Voter, error)
	Get(ctx context.Context, id string) (*domain.Voter, error)
	List(ctx context.Context) ([]*domain.Voter, error)
}
