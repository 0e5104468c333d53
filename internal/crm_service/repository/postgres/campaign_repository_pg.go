package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/platform/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `id, name, segment_id, message, status, created_at, updated_at`

type PgCampaignRepository struct {
	db     database.Pool
	logger *slog.Logger
}

func NewPgCampaignRepository(db database.Pool, logger *slog.Logger) *PgCampaignRepository {
	return &PgCampaignRepository{db: db, logger: logger}
}

func (r *PgCampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, c.SegmentID, c.Message, string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating campaign", "error", err, "campaign_id", c.ID)
		return err
	}
	return nil
}

func (r *PgCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *PgCampaignRepository) List(ctx context.Context) ([]*domain.Campaign, error) {
	rows, err := r.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *PgCampaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE campaigns SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating campaign status", "error", err, "campaign_id", id, "status", status)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var status string
	if err := row.Scan(&c.ID, &c.Name, &c.SegmentID, &c.Message, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignStatus(status)
	return c, nil
}
