package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type electionRepository struct {
	db *sql.DB
}

func NewElectionRepository(db *sql.DB) ports.ElectionRepository {
	return &electionRepository{
		db: db,
	}
}

func (r *electionRepository) Save(ctx context.Context, election *domain.Election) error {
	positions, err := json.Marshal(election.Positions)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	query := `
		INSERT INTO elections (id, title, description, start_date, end_date, positions, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		election.ID, election.Title, election.Description, election.StartDate, election.EndDate,
		string(positions), election.CreatedBy, election.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}
	return nil
}

func (r *electionRepository) Update(ctx context.Context, election *domain.Election) error {
	positions, err := json.Marshal(election.Positions)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	query := `
		UPDATE elections
		SET title = $2, description = $3, start_date = $4, end_date = $5, positions = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		election.ID, election.Title, election.Description, election.StartDate, election.EndDate, string(positions),
	)
	if err != nil {
		return fmt.Errorf("failed to update election: %w", err)
	}
	return expectOneRow(res, domain.ErrElectionNotFound)
}

func (r *electionRepository) GetByID(ctx context.Context, id string) (*domain.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, positions, created_by, created_at
		FROM elections
		WHERE id = $1
	`
	election, err := scanElection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) GetAll(ctx context.Context) ([]*domain.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, positions, created_by, created_at
		FROM elections
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	elections := make([]*domain.Election, 0)
	for rows.Next() {
		election, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, election)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return elections, nil
}

func (r *electionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}
	return expectOneRow(res, domain.ErrElectionNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var (
		election  domain.Election
		positions []byte
	)
	err := row.Scan(
		&election.ID, &election.Title, &election.Description, &election.StartDate, &election.EndDate,
		&positions, &election.CreatedBy, &election.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(positions, &election.Positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	election.StartDate = election.StartDate.UTC()
	election.EndDate = election.EndDate.UTC()
	election.CreatedAt = election.CreatedAt.UTC()
	return &election, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
