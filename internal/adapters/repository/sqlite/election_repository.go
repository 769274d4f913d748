package sqlite

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
	return &electionRepository{db: db}
}

func (r *electionRepository) Save(ctx context.Context, election *domain.Election) error {
	positions, err := json.Marshal(election.Positions)
	if err != nil {
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO elections (id, title, description, start_date, end_date, positions, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		election.ID, election.Title, election.Description, toMillis(election.StartDate), toMillis(election.EndDate),
		string(positions), election.CreatedBy, toMillis(election.CreatedAt),
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

	res, err := r.db.ExecContext(ctx, `
		UPDATE elections
		SET title = ?, description = ?, start_date = ?, end_date = ?, positions = ?
		WHERE id = ?`,
		election.Title, election.Description, toMillis(election.StartDate), toMillis(election.EndDate),
		string(positions), election.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update election: %w", err)
	}
	return expectOneRow(res, domain.ErrElectionNotFound)
}

func (r *electionRepository) GetByID(ctx context.Context, id string) (*domain.Election, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_date, end_date, positions, created_by, created_at
		FROM elections WHERE id = ?`, id)

	election, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) GetAll(ctx context.Context) ([]*domain.Election, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, start_date, end_date, positions, created_by, created_at
		FROM elections ORDER BY created_at DESC, id`)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM elections WHERE id = ?`, id)
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
		election            domain.Election
		start, end, created int64
		positions           string
	)
	err := row.Scan(&election.ID, &election.Title, &election.Description, &start, &end, &positions, &election.CreatedBy, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(positions), &election.Positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	election.StartDate = fromMillis(start)
	election.EndDate = fromMillis(end)
	election.CreatedAt = fromMillis(created)
	return &election, nil
}
