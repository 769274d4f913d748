package ports

import (
	"context"
	"io"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

type TallyRepository interface {
	Save(ctx context.Context, result *domain.TallyResult) error
	GetByElection(ctx context.Context, electionID string) (*domain.TallyResult, error)
	// Delete drops the stored snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, electionID string) error
}

type TallyService interface {
	ComputeTally(ctx context.Context, electionID string) (*domain.TallyResult, error)
	Recompute(ctx context.Context, electionID string) (*domain.TallyResult, error)
	RecomputeAll(ctx context.Context) ([]domain.RecomputeOutcome, error)
	Results(ctx context.Context, electionID string) (*domain.TallyResult, error)
	ExportCSV(ctx context.Context, electionID string, w io.Writer) error
}
