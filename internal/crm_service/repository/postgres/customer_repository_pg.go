package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/platform/database"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, name, email, phone, total_spent, last_order_date, metadata, created_at`

type PgCustomerRepository struct {
	db     database.Pool
	logger *slog.Logger
}

func NewPgCustomerRepository(db database.Pool, logger *slog.Logger) *PgCustomerRepository {
	return &PgCustomerRepository{db: db, logger: logger}
}

func (r *PgCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal customer metadata: %w", err)
	}
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		c.ID, c.Name, domain.NormalizeEmail(c.Email), c.Phone, c.TotalSpent, c.LastOrderDate, metadataJSON, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating customer", "error", err, "email", c.Email)
		return err
	}
	return nil
}

func (r *PgCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	c, err := scanCustomer(r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *PgCustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY seq`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	c := &domain.Customer{}
	var metadataJSON []byte
	if err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpent, &c.LastOrderDate, &metadataJSON, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal customer metadata: %w", err)
		}
	}
	return c, nil
}
