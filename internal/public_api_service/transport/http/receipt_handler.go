package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
)

// ReceiptAcceptor buffers a delivery receipt for the next reconciliation tick.
type ReceiptAcceptor interface {
	AcceptAt(ctx context.Context, campaignID, email, status string, receivedAt time.Time, source string) (*domain.Receipt, error)
}

// ReceiptHandler is the vendor webhook for delivery receipts.
type ReceiptHandler struct {
	intake   ReceiptAcceptor
	logger   *slog.Logger
	validate *validator.Validate
}

func NewReceiptHandler(intake ReceiptAcceptor, logger *slog.Logger, validate *validator.Validate) *ReceiptHandler {
	return &ReceiptHandler{
		intake:   intake,
		logger:   logger.With("handler", "receipt"),
		validate: validate,
	}
}

func (h *ReceiptHandler) RegisterRoutes(r chi.Router) {
	r.Post("/receipts", h.SubmitReceipt)
}

// SubmitReceipt only buffers the receipt; the log is updated by the reconciler.
func (h *ReceiptHandler) SubmitReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req SubmitReceiptRequestDTO
	if msg, ok := decodeJSON(r, &req); !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	var receivedAt time.Time
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}
	receipt, err := h.intake.AcceptAt(ctx, req.CampaignID, req.CustomerEmail, req.Status, receivedAt, "http")
	if err != nil {
		respondWithDomainError(ctx, w, logger, "Failed to accept receipt", err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, SubmitReceiptResponseDTO{Status: "accepted", ReceiptID: receipt.ID})
}
