package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
)

const (
	// DefaultSuccessRate is the probability that a simulated delivery attempt succeeds.
	DefaultSuccessRate = 0.9
	// DispatchSampleSize caps the log records echoed back from a send.
	DispatchSampleSize = 5
)

// OutcomeFunc decides whether one simulated delivery attempt succeeds.
type OutcomeFunc func() bool

// RandomOutcome succeeds with probability p.
func RandomOutcome(p float64) OutcomeFunc {
	return func() bool { return rand.Float64() < p }
}

// DispatchResult summarizes a completed send.
type DispatchResult struct {
	CampaignID    uuid.UUID                        `json:"campaign_id"`
	Status        domain.CampaignStatus            `json:"status"`
	AudienceCount int                              `json:"audience_count"`
	Sent          int                              `json:"sent"`
	Failed        int                              `json:"failed"`
	Sample        []*domain.CommunicationLogRecord `json:"sample"`
}

// Dispatcher resolves a campaign's audience and records one delivery attempt per customer.
type Dispatcher struct {
	campaigns     domain.CampaignRepository
	segments      domain.SegmentRepository
	customers     domain.CustomerRepository
	logs          domain.CommunicationLogRepository
	shouldSucceed OutcomeFunc
	logger        *slog.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewDispatcher(
	campaigns domain.CampaignRepository,
	segments domain.SegmentRepository,
	customers domain.CustomerRepository,
	logs domain.CommunicationLogRepository,
	shouldSucceed OutcomeFunc,
	logger *slog.Logger,
) *Dispatcher {
	if shouldSucceed == nil {
		shouldSucceed = RandomOutcome(DefaultSuccessRate)
	}
	return &Dispatcher{
		campaigns:     campaigns,
		segments:      segments,
		customers:     customers,
		logs:          logs,
		shouldSucceed: shouldSucceed,
		logger:        logger.With("component", "dispatcher"),
		inflight:      make(map[uuid.UUID]struct{}),
	}
}

// Send dispatches a CREATED campaign to every customer in its segment.
// A campaign in a terminal state is rejected without writing anything.
func (d *Dispatcher) Send(ctx context.Context, campaignID uuid.UUID) (*DispatchResult, error) {
	if !d.claim(campaignID) {
		return nil, domain.ErrDispatchInProgress
	}
	defer d.release(campaignID)
	// Once claimed, a send runs to completion over the resolved audience even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	defer func() { dispatchDurationHist.Observe(time.Since(start).Seconds()) }()

	campaign, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, storageErr("get campaign", err)
	}
	if campaign.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrCampaignAlreadyDispatched, campaign.Status)
	}

	segment, err := d.segments.GetByID(ctx, campaign.SegmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSegmentNotFound
		}
		return nil, storageErr("get segment", err)
	}

	customers, err := d.customers.List(ctx)
	if err != nil {
		return nil, storageErr("list customers", err)
	}
	audience := Resolve(customers, segment)

	result := &DispatchResult{
		CampaignID:    campaign.ID,
		AudienceCount: len(audience),
		Sample:        []*domain.CommunicationLogRecord{},
	}

	if len(audience) == 0 {
		if err := d.campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusNoAudience); err != nil {
			return nil, storageErr("update campaign status", err)
		}
		result.Status = domain.CampaignStatusNoAudience
		campaignsDispatchedCounter.WithLabelValues(string(result.Status)).Inc()
		d.logger.InfoContext(ctx, "Campaign has no audience", "campaign_id", campaign.ID, "segment_id", segment.ID)
		return result, nil
	}

	d.logger.InfoContext(ctx, "Dispatching campaign", "campaign_id", campaign.ID, "audience_count", len(audience))

	for _, cust := range audience {
		status := domain.DeliveryStatusFailed
		if d.shouldSucceed() {
			status = domain.DeliveryStatusSent
		}
		rec := domain.NewCommunicationLogRecord(uuid.New(), campaign.ID, cust.Email, status, campaign.Message)
		if err := d.logs.Append(ctx, rec); err != nil {
			d.logger.ErrorContext(ctx, "Failed to append communication log record, aborting dispatch",
				"error", err, "campaign_id", campaign.ID, "customer_email", cust.Email,
				"sent", result.Sent, "failed", result.Failed)
			d.markPartialFailed(ctx, campaign.ID)
			return nil, domain.NewStorageError("append communication log", err)
		}
		deliveryAttemptsCounter.WithLabelValues(string(status)).Inc()

		if status == domain.DeliveryStatusSent {
			result.Sent++
		} else {
			result.Failed++
		}
		if len(result.Sample) < DispatchSampleSize {
			result.Sample = append(result.Sample, rec)
		}
	}

	result.Status = domain.CampaignStatusSent
	if result.Failed > 0 {
		result.Status = domain.CampaignStatusPartialFailed
	}
	if err := d.campaigns.UpdateStatus(ctx, campaign.ID, result.Status); err != nil {
		return nil, storageErr("update campaign status", err)
	}
	campaignsDispatchedCounter.WithLabelValues(string(result.Status)).Inc()

	d.logger.InfoContext(ctx, "Campaign dispatched",
		"campaign_id", campaign.ID,
		"status", result.Status,
		"audience_count", result.AudienceCount,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

// markPartialFailed moves an aborted campaign out of CREATED so it is never re-sent.
func (d *Dispatcher) markPartialFailed(ctx context.Context, id uuid.UUID) {
	if err := d.campaigns.UpdateStatus(ctx, id, domain.CampaignStatusPartialFailed); err != nil {
		d.logger.ErrorContext(ctx, "Failed to mark aborted campaign", "error", err, "campaign_id", id)
		return
	}
	campaignsDispatchedCounter.WithLabelValues(string(domain.CampaignStatusPartialFailed)).Inc()
}

func (d *Dispatcher) claim(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[id]; busy {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) release(id uuid.UUID) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}
