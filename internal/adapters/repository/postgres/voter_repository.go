package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type voterRepository struct {
	db *sql.DB
}

func NewVoterRepository(db *sql.DB) ports.VoterRepository {
	return &voterRepository{
		db: db,
	}
}

func (r *voterRepository) Create(ctx context.Context, voter *domain.Voter) error {
	query := `
		INSERT INTO voters (id, name, email, role, credential_hash)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, voter.ID, voter.Name, voter.Email, string(voter.Role), voter.CredentialHash)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVoterExists
		}
		return fmt.Errorf("failed to insert voter: %w", err)
	}
	return nil
}

func (r *voterRepository) GetByID(ctx context.Context, id string) (*domain.Voter, error) {
	query := `SELECT id, name, email, role, credential_hash FROM voters WHERE id = $1`

	var voter domain.Voter
	err := r.db.QueryRowContext(ctx, query, id).Scan(&voter.ID, &voter.Name, &voter.Email, &voter.Role, &voter.CredentialHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return &voter, nil
}

func (r *voterRepository) GetAll(ctx context.Context) ([]*domain.Voter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, role, credential_hash FROM voters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	voters := make([]*domain.Voter, 0)
	for rows.Next() {
		var voter domain.Voter
		if err := rows.Scan(&voter.ID, &voter.Name, &voter.Email, &voter.Role, &voter.CredentialHash); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, &voter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voters: %w", err)
	}
	return voters, nil
}

func (r *voterRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters WHERE role = $1`, string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return count, nil
}
