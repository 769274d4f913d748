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

type tallyRepository struct {
	db *sql.DB
}

func NewTallyRepository(db *sql.DB) ports.TallyRepository {
	return &tallyRepository{
		db: db,
	}
}

func (r *tallyRepository) Save(ctx context.Context, result *domain.TallyResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode tally: %w", err)
	}

	query := `
		INSERT INTO election_results (election_id, total_votes, result, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (election_id)
		DO UPDATE SET total_votes = EXCLUDED.total_votes, result = EXCLUDED.result, generated_at = EXCLUDED.generated_at
	`
	_, err = r.db.ExecContext(ctx, query, result.ElectionID, result.TotalVotes, string(encoded), result.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save tally: %w", err)
	}
	return nil
}

func (r *tallyRepository) GetByElection(ctx context.Context, electionID string) (*domain.TallyResult, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT result FROM election_results WHERE election_id = $1`, electionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tally: %w", err)
	}

	var result domain.TallyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tally: %w", err)
	}
	result.GeneratedAt = result.GeneratedAt.UTC()
	return &result, nil
}

func (r *tallyRepository) Delete(ctx context.Context, electionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM election_results WHERE election_id = $1`, electionID); err != nil {
		return fmt.Errorf("failed to delete tally: %w", err)
	}
	return nil
}
