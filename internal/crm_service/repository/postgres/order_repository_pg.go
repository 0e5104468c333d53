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

type PgOrderRepository struct {
	db     database.Pool
	logger *slog.Logger
}

func NewPgOrderRepository(db database.Pool, logger *slog.Logger) *PgOrderRepository {
	return &PgOrderRepository{db: db, logger: logger}
}

// CreateWithRollup inserts the order and updates the customer's totals in one transaction.
// The customer row is locked so concurrent orders for one customer serialize.
func (r *PgOrderRepository) CreateWithRollup(ctx context.Context, o *domain.Order) (*domain.Customer, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	metadataJSON, err := json.Marshal(o.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal order metadata: %w", err)
	}

	var cust *domain.Customer
	txErr := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		c, err := scanCustomer(tx.QueryRow(ctx,
			`SELECT `+customerColumns+` FROM customers WHERE email = $1 FOR UPDATE`, o.CustomerEmail))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrCustomerNotFound
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, customer_email, amount, order_date, items, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, o.ID, o.CustomerEmail, o.Amount, o.Date, itemsJSON, metadataJSON, o.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEntry
			}
			return err
		}

		c.ApplyOrder(o.Amount, o.Date)
		_, err = tx.Exec(ctx,
			`UPDATE customers SET total_spent = $2, last_order_date = $3 WHERE id = $1`,
			c.ID, c.TotalSpent, c.LastOrderDate)
		if err != nil {
			return err
		}
		cust = c
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, domain.ErrNotFound) && !errors.Is(txErr, domain.ErrDuplicateEntry) {
			r.logger.ErrorContext(ctx, "Error creating order with rollup", "error", txErr, "order_id", o.ID)
		}
		return nil, txErr
	}
	return cust, nil
}

func (r *PgOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o := &domain.Order{}
	var itemsJSON, metadataJSON []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, customer_email, amount, order_date, items, metadata, created_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.CustomerEmail, &o.Amount, &o.Date, &itemsJSON, &metadataJSON, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &o.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal order metadata: %w", err)
		}
	}
	return o, nil
}
