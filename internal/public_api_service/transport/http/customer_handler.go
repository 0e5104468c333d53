package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// CustomerLister reads the customer store.
type CustomerLister interface {
	List(ctx context.Context) ([]*domain.Customer, error)
}

// CustomerHandler handles customer and order ingestion.
type CustomerHandler struct {
	ingestor  app.Ingestor
	customers CustomerLister
	logger    *slog.Logger
	validate  *validator.Validate
}

func NewCustomerHandler(ingestor app.Ingestor, customers CustomerLister, logger *slog.Logger, validate *validator.Validate) *CustomerHandler {
	return &CustomerHandler{
		ingestor:  ingestor,
		customers: customers,
		logger:    logger.With("handler", "customer"),
		validate:  validate,
	}
}

func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/customers", h.CreateCustomer)
	r.Get("/customers", h.ListCustomers)
	r.Post("/orders", h.CreateOrder)
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req CreateCustomerRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	res, err := h.ingestor.IngestCustomer(ctx, req.toInput())
	if err != nil {
		respondWithDomainError(ctx, w, logger, "Failed to ingest customer", err)
		return
	}
	code, status := ingestStatus(res)
	respondWithJSON(w, code, IngestResponseDTO{Status: status, Customer: res.Customer})
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customers, err := h.customers.List(ctx)
	if err != nil {
		respondWithDomainError(ctx, w, h.logger, "Failed to list customers", err)
		return
	}
	if customers == nil {
		customers = []*domain.Customer{}
	}
	respondWithJSON(w, http.StatusOK, ListCustomersResponseDTO{Customers: customers, Total: len(customers)})
}

func (h *CustomerHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req CreateOrderRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	res, err := h.ingestor.IngestOrder(ctx, req.toInput())
	if err != nil {
		respondWithDomainError(ctx, w, logger, "Failed to ingest order", err)
		return
	}
	code, status := ingestStatus(res)
	respondWithJSON(w, code, IngestResponseDTO{Status: status, Customer: res.Customer, Order: res.Order})
}

func ingestStatus(res *app.IngestResult) (int, string) {
	switch {
	case res.Queued:
		return http.StatusAccepted, "queued"
	case res.Created:
		return http.StatusCreated, "created"
	default:
		return http.StatusOK, "existing"
	}
}
