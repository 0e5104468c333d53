// Package postgres implements the record store on PostgreSQL with pgx.
package postgres

import (
	"errors"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ domain.CustomerRepository         = (*PgCustomerRepository)(nil)
	_ domain.OrderRepository            = (*PgOrderRepository)(nil)
	_ domain.SegmentRepository          = (*PgSegmentRepository)(nil)
	_ domain.CampaignRepository         = (*PgCampaignRepository)(nil)
	_ domain.CommunicationLogRepository = (*PgCommunicationLogRepository)(nil)
)
