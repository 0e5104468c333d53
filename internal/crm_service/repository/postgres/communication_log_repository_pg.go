package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/platform/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const logColumns = `id, campaign_id, customer_email, status, message, sent_at, delivered_at`

type PgCommunicationLogRepository struct {
	db     database.Pool
	logger *slog.Logger
}

func NewPgCommunicationLogRepository(db database.Pool, logger *slog.Logger) *PgCommunicationLogRepository {
	return &PgCommunicationLogRepository{db: db, logger: logger}
}

func (r *PgCommunicationLogRepository) Append(ctx context.Context, rec *domain.CommunicationLogRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO communication_log (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.CampaignID, rec.CustomerEmail, string(rec.Status), rec.Message, rec.Timestamp, rec.DeliveredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error appending communication log record", "error", err, "campaign_id", rec.CampaignID)
		return err
	}
	return nil
}

func (r *PgCommunicationLogRepository) List(ctx context.Context) ([]*domain.CommunicationLogRecord, error) {
	return r.query(ctx, `SELECT `+logColumns+` FROM communication_log ORDER BY seq`)
}

func (r *PgCommunicationLogRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*domain.CommunicationLogRecord, error) {
	return r.query(ctx, `SELECT `+logColumns+` FROM communication_log WHERE campaign_id = $1 ORDER BY seq`, campaignID)
}

// UpdateDeliveries applies every update in one transaction; an unknown record id rolls all of them back.
func (r *PgCommunicationLogRepository) UpdateDeliveries(ctx context.Context, updates []domain.DeliveryUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, u := range updates {
			tag, err := tx.Exec(ctx,
				`UPDATE communication_log SET status = $2, delivered_at = $3 WHERE id = $1`,
				u.RecordID, string(u.Status), u.DeliveredAt.UTC())
			if err != nil {
				return fmt.Errorf("update communication log %s: %w", u.RecordID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("communication log %s: %w", u.RecordID, domain.ErrNotFound)
			}
		}
		return nil
	})
}

func (r *PgCommunicationLogRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.CommunicationLogRecord, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CommunicationLogRecord
	for rows.Next() {
		rec := &domain.CommunicationLogRecord{}
		var status string
		if err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.CustomerEmail, &status, &rec.Message, &rec.Timestamp, &rec.DeliveredAt); err != nil {
			return nil, err
		}
		rec.Status = domain.DeliveryStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

