package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

// DefaultReconcileInterval is the period between reconciliation ticks.
const DefaultReconcileInterval = 30 * time.Second

// ReconcileReport describes one tick.
type ReconcileReport struct {
	Drained   int
	Matched   int
	Unmatched int
}

// Reconciler applies buffered receipts to the communication log.
type Reconciler struct {
	buffer *ReceiptBuffer
	logs   domain.CommunicationLogRepository
	logger *slog.Logger
	now    func() time.Time

	tickMu sync.Mutex
}

func NewReconciler(buffer *ReceiptBuffer, logs domain.CommunicationLogRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		buffer: buffer,
		logs:   logs,
		logger: logger.With("component", "reconciler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type logKey struct {
	campaignID uuid.UUID
	email      string
}

// RunOnce drains the buffer and applies every receipt that matches a log record.
// On a store failure the drained receipts go back to the front of the buffer.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	receipts := r.buffer.Drain()
	report := ReconcileReport{Drained: len(receipts)}
	if len(receipts) == 0 {
		return report, nil
	}

	start := time.Now()
	defer func() { reconcileTickDurationHist.Observe(time.Since(start).Seconds()) }()

	// A started tick runs to completion even if shutdown begins.
	ctx = context.WithoutCancel(ctx)

	records, err := r.logs.List(ctx)
	if err != nil {
		r.requeue(ctx, receipts, err)
		return report, domain.NewStorageError("list communication log", err)
	}

	first := make(map[logKey]uuid.UUID, len(records))
	for _, rec := range records {
		k := logKey{campaignID: rec.CampaignID, email: domain.NormalizeEmail(rec.CustomerEmail)}
		if _, seen := first[k]; !seen {
			first[k] = rec.ID
		}
	}

	var (
		order   []uuid.UUID
		updates = make(map[uuid.UUID]domain.DeliveryUpdate)
	)
	for _, rc := range receipts {
		id, ok := first[logKey{campaignID: rc.CampaignID, email: domain.NormalizeEmail(rc.CustomerEmail)}]
		if !ok {
			report.Unmatched++
			r.logger.DebugContext(ctx, "Discarding unmatched receipt",
				"receipt_id", rc.ID, "campaign_id", rc.CampaignID, "customer_email", rc.CustomerEmail)
			continue
		}
		report.Matched++
		deliveredAt := rc.ReceivedAt
		if deliveredAt.IsZero() {
			deliveredAt = r.now()
		}
		if _, exists := updates[id]; !exists {
			order = append(order, id)
		}
		// Later receipts for the same record win.
		updates[id] = domain.DeliveryUpdate{RecordID: id, Status: rc.Status, DeliveredAt: deliveredAt}
	}

	if len(updates) > 0 {
		batch := make([]domain.DeliveryUpdate, 0, len(order))
		for _, id := range order {
			batch = append(batch, updates[id])
		}
		if err := r.logs.UpdateDeliveries(ctx, batch); err != nil {
			r.requeue(ctx, receipts, err)
			return report, domain.NewStorageError("update deliveries", err)
		}
	}

	receiptsReconciledCounter.WithLabelValues("matched").Add(float64(report.Matched))
	receiptsReconciledCounter.WithLabelValues("unmatched").Add(float64(report.Unmatched))
	r.logger.InfoContext(ctx, "Reconciliation tick complete",
		"drained", report.Drained, "matched", report.Matched, "unmatched", report.Unmatched)
	return report, nil
}

func (r *Reconciler) requeue(ctx context.Context, receipts []domain.Receipt, cause error) {
	r.buffer.Requeue(receipts)
	receiptsReconciledCounter.WithLabelValues("requeued").Add(float64(len(receipts)))
	r.logger.ErrorContext(ctx, "Reconciliation tick abandoned, receipts requeued",
		"error", cause, "count", len(receipts))
}

// Run ticks every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "Reconciler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Reconciler stopping", "pending", r.buffer.Len())
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Reconciliation tick failed", "error", err)
			}
		}
	}
}
