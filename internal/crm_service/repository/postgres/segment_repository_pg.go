package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/platform/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PgSegmentRepository struct {
	db     database.Pool
	logger *slog.Logger
}

func NewPgSegmentRepository(db database.Pool, logger *slog.Logger) *PgSegmentRepository {
	return &PgSegmentRepository{db: db, logger: logger}
}

func (r *PgSegmentRepository) Create(ctx context.Context, s *domain.Segment) error {
	conditionsJSON, err := json.Marshal(s.Conditions)
	if err != nil {
		return fmt.Errorf("marshal segment conditions: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO segments (id, name, conditions, logic, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Name, conditionsJSON, string(s.Logic), s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating segment", "error", err, "segment_id", s.ID)
		return err
	}
	return nil
}

func (r *PgSegmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Segment, error) {
	s, err := scanSegment(r.db.QueryRow(ctx,
		`SELECT id, name, conditions, logic, created_at FROM segments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSegmentNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *PgSegmentRepository) List(ctx context.Context) ([]*domain.Segment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, conditions, logic, created_at FROM segments ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*domain.Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func scanSegment(row pgx.Row) (*domain.Segment, error) {
	s := &domain.Segment{}
	var conditionsJSON []byte
	var logic string
	if err := row.Scan(&s.ID, &s.Name, &conditionsJSON, &logic, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditionsJSON, &s.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal segment conditions: %w", err)
	}
	s.Logic = domain.Logic(logic)
	return s, nil
}
