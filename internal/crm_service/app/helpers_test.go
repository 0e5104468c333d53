package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/crm_service/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storeFixture struct {
	store     *memory.Store
	customers *memory.CustomerRepository
	orders    *memory.OrderRepository
	segments  *memory.SegmentRepository
	campaigns *memory.CampaignRepository
	logs      *flakyLogRepository
}

func newStoreFixture() storeFixture {
	s := memory.NewStore()
	return storeFixture{
		store:     s,
		customers: memory.NewCustomerRepository(s),
		orders:    memory.NewOrderRepository(s),
		segments:  memory.NewSegmentRepository(s),
		campaigns: memory.NewCampaignRepository(s),
		logs:      &flakyLogRepository{CommunicationLogRepository: memory.NewCommunicationLogRepository(s)},
	}
}

func (f storeFixture) addCustomer(t *testing.T, email string, spent float64, last *time.Time) *domain.Customer {
	t.Helper()
	c := domain.NewCustomer(uuid.New(), "Customer "+email, email, "", spent, last, nil)
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func (f storeFixture) addSegment(t *testing.T, logic string, conds ...domain.Condition) *domain.Segment {
	t.Helper()
	seg, err := domain.NewSegment(uuid.New(), "segment", conds, logic)
	require.NoError(t, err)
	require.NoError(t, f.segments.Create(context.Background(), seg))
	return seg
}

func (f storeFixture) addCampaign(t *testing.T, segmentID uuid.UUID) *domain.Campaign {
	t.Helper()
	c, err := domain.NewCampaign(uuid.New(), "campaign", segmentID, "Hello there")
	require.NoError(t, err)
	require.NoError(t, f.campaigns.Create(context.Background(), c))
	return c
}

// flakyLogRepository wraps the memory log and fails selected calls on demand.
type flakyLogRepository struct {
	*memory.CommunicationLogRepository

	mu            sync.Mutex
	failListN     int
	failUpdateN   int
	failAppendAt  int // 1-based append number that fails; 0 disables
	afterAppend   func(n int)
	appends       int
	updateBatches [][]domain.DeliveryUpdate
}

func (r *flakyLogRepository) Append(ctx context.Context, rec *domain.CommunicationLogRecord) error {
	// Behave like a network store: a cancelled context fails the write.
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.appends++
	n := r.appends
	fail := r.failAppendAt > 0 && n == r.failAppendAt
	hook := r.afterAppend
	r.mu.Unlock()
	if fail {
		return errStoreDown
	}
	if err := r.CommunicationLogRepository.Append(ctx, rec); err != nil {
		return err
	}
	if hook != nil {
		hook(n)
	}
	return nil
}

func (r *flakyLogRepository) List(ctx context.Context) ([]*domain.CommunicationLogRecord, error) {
	r.mu.Lock()
	fail := r.failListN > 0
	if fail {
		r.failListN--
	}
	r.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return r.CommunicationLogRepository.List(ctx)
}

func (r *flakyLogRepository) UpdateDeliveries(ctx context.Context, updates []domain.DeliveryUpdate) error {
	r.mu.Lock()
	fail := r.failUpdateN > 0
	if fail {
		r.failUpdateN--
	} else {
		r.updateBatches = append(r.updateBatches, updates)
	}
	r.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return r.CommunicationLogRepository.UpdateDeliveries(ctx, updates)
}

func (r *flakyLogRepository) updateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updateBatches)
}

// sequence returns outcomes in order, then succeeds.
func sequence(outcomes ...bool) OutcomeFunc {
	var mu sync.Mutex
	i := 0
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(outcomes) {
			return true
		}
		v := outcomes[i]
		i++
		return v
	}
}

func timePtr(t time.Time) *time.Time { return &t }
