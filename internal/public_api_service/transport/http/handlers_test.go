package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/crm_service/repository/memory"
	"github.com/aradsms/crm_services/internal/public_api_service/middleware"
)

const testVendorKey = "vendor-secret"

// MockIngestor is a mock implementation of app.Ingestor
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) IngestCustomer(ctx context.Context, in app.CustomerInput) (*app.IngestResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.IngestResult), args.Error(1)
}

func (m *MockIngestor) IngestOrder(ctx context.Context, in app.OrderInput) (*app.IngestResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.IngestResult), args.Error(1)
}

type apiFixture struct {
	router    chi.Router
	store     *memory.Store
	buffer    *app.ReceiptBuffer
	customers *memory.CustomerRepository
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newAPIFixture wires the full router over an in-memory store. Every send succeeds.
func newAPIFixture(t *testing.T, ingestor app.Ingestor) apiFixture {
	t.Helper()
	logger := testLogger()
	validate := validator.New()

	s := memory.NewStore()
	customers := memory.NewCustomerRepository(s)
	orders := memory.NewOrderRepository(s)
	segments := memory.NewSegmentRepository(s)
	campaigns := memory.NewCampaignRepository(s)
	logs := memory.NewCommunicationLogRepository(s)

	if ingestor == nil {
		ingestor = app.NewDirectIngestor(customers, orders, logger)
	}
	buffer := app.NewReceiptBuffer()

	handlers := Handlers{
		Customers:   NewCustomerHandler(ingestor, customers, logger, validate),
		Segments:    NewSegmentHandler(app.NewSegmentService(segments, customers, logger), logger, validate),
		Campaigns:   NewCampaignHandler(app.NewCampaignService(campaigns, segments, logs, logger), app.NewDispatcher(campaigns, segments, customers, logs, func() bool { return true }, logger), logger, validate),
		Receipts:    NewReceiptHandler(app.NewReceiptIntake(buffer, logger), logger, validate),
		Suggestions: NewSuggestionHandler(app.NewSuggestionService(nil, logger), logger, validate),
		Auth:        NewAuthHandler(logger),
	}
	injectIdentity := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Test-User") != "" {
				r = r.WithContext(middleware.WithIdentity(r.Context(), middleware.Identity{
					ID: r.Header.Get("X-Test-User"), DisplayName: "Test User", Emails: []string{"test@example.com"},
				}))
			}
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(handlers, injectIdentity, middleware.VendorKeyMiddleware(middleware.HashAPIKey(testVendorKey), logger))
	return apiFixture{router: router, store: s, buffer: buffer, customers: customers}
}

func (f apiFixture) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (f apiFixture) createCustomer(t *testing.T, email string, spent float64) {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/customers", CreateCustomerRequestDTO{Name: "N " + email, Email: email, TotalSpent: spent})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func (f apiFixture) createSegment(t *testing.T, conds ...ConditionDTO) uuid.UUID {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/segments", SaveSegmentRequestDTO{Name: "seg", Conditions: conds})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[domain.Segment](t, rr).ID
}

func (f apiFixture) createCampaign(t *testing.T, segmentID uuid.UUID) uuid.UUID {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/campaigns", CreateCampaignRequestDTO{Name: "c", SegmentID: segmentID.String(), Message: "hello"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[domain.Campaign](t, rr).ID
}

func TestCustomerHandler_CreateCustomer(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/customers", CreateCustomerRequestDTO{Name: "Ada", Email: "Ada@Example.com", TotalSpent: 10})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[IngestResponseDTO](t, rr)
	assert.Equal(t, "created", resp.Status)
	assert.Equal(t, "ada@example.com", resp.Customer.Email)

	// Same identity key again is idempotent.
	rr = f.do(t, http.MethodPost, "/api/v1/customers", CreateCustomerRequestDTO{Name: "Ada L", Email: "ada@example.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp = decodeBody[IngestResponseDTO](t, rr)
	assert.Equal(t, "existing", resp.Status)
	assert.Equal(t, "Ada", resp.Customer.Name)

	rr = f.do(t, http.MethodGet, "/api/v1/customers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[ListCustomersResponseDTO](t, rr).Total)
}

func TestCustomerHandler_CreateCustomer_Invalid(t *testing.T) {
	f := newAPIFixture(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing email", CreateCustomerRequestDTO{Name: "Ada"}},
		{"bad email", CreateCustomerRequestDTO{Name: "Ada", Email: "nope"}},
		{"negative spend", CreateCustomerRequestDTO{Name: "Ada", Email: "a@b.co", TotalSpent: -1}},
		{"empty body", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/api/v1/customers", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestCustomerHandler_CreateOrder(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.createCustomer(t, "ada@example.com", 10)

	rr := f.do(t, http.MethodPost, "/api/v1/orders", CreateOrderRequestDTO{
		CustomerEmail: "ADA@example.com",
		Amount:        15.555,
		Items:         []LineItemDTO{{SKU: "sku-1", Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[IngestResponseDTO](t, rr)
	assert.Equal(t, "created", resp.Status)
	require.NotNil(t, resp.Customer)
	assert.Equal(t, 25.56, resp.Customer.TotalSpent)
	assert.NotNil(t, resp.Customer.LastOrderDate)

	rr = f.do(t, http.MethodPost, "/api/v1/orders", CreateOrderRequestDTO{CustomerEmail: "ghost@example.com", Amount: 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/orders", CreateOrderRequestDTO{
		CustomerEmail: "ada@example.com", Amount: 1, Items: []LineItemDTO{{SKU: "x", Quantity: 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCustomerHandler_Queued(t *testing.T) {
	mockIngestor := new(MockIngestor)
	f := newAPIFixture(t, mockIngestor)

	mockIngestor.On("IngestCustomer", mock.Anything, mock.MatchedBy(func(in app.CustomerInput) bool {
		return in.Email == "q@example.com"
	})).Return(&app.IngestResult{Queued: true}, nil).Once()

	rr := f.do(t, http.MethodPost, "/api/v1/customers", CreateCustomerRequestDTO{Name: "Q", Email: "q@example.com"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "queued", decodeBody[IngestResponseDTO](t, rr).Status)
	mockIngestor.AssertExpectations(t)
}

func TestCustomerHandler_StorageErrorIsMasked(t *testing.T) {
	mockIngestor := new(MockIngestor)
	f := newAPIFixture(t, mockIngestor)

	mockIngestor.On("IngestOrder", mock.Anything, mock.Anything).
		Return(nil, domain.NewStorageError("create order", errors.New("connection reset by peer"))).Once()

	rr := f.do(t, http.MethodPost, "/api/v1/orders", CreateOrderRequestDTO{CustomerEmail: "a@b.co", Amount: 1})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
	mockIngestor.AssertExpectations(t)
}

func TestSegmentHandler(t *testing.T) {
	f := newAPIFixture(t, nil)
	for i := 0; i < 12; i++ {
		f.createCustomer(t, fmt.Sprintf("c%02d@example.com", i), float64(i*100))
	}

	t.Run("preview caps the sample", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments/preview", PreviewSegmentRequestDTO{
			Conditions: []ConditionDTO{{Field: "total_spent", Operator: "gte", Value: 0}},
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		res := decodeBody[app.PreviewResult](t, rr)
		assert.Equal(t, 12, res.Count)
		assert.Len(t, res.Sample, app.PreviewSampleSize)
		assert.Equal(t, "c00@example.com", res.Sample[0].Email)
	})

	t.Run("preview with OR logic", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments/preview", PreviewSegmentRequestDTO{
			Conditions: []ConditionDTO{
				{Field: "total_spent", Operator: "gt", Value: 1000},
				{Field: "email", Operator: "eq", Value: "C00@EXAMPLE.COM"},
			},
			Logic: "or",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 2, decodeBody[app.PreviewResult](t, rr).Count)
	})

	t.Run("logic is case insensitive", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments/preview", PreviewSegmentRequestDTO{
			Conditions: []ConditionDTO{
				{Field: "total_spent", Operator: "gt", Value: 1000},
				{Field: "email", Operator: "eq", Value: "c00@example.com"},
			},
			Logic: "Or",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 2, decodeBody[app.PreviewResult](t, rr).Count)

		rr = f.do(t, http.MethodPost, "/api/v1/segments", SaveSegmentRequestDTO{
			Name: "mixed", Conditions: []ConditionDTO{{Field: "total_spent", Operator: "gt", Value: 1}}, Logic: "And",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, domain.LogicAND, decodeBody[domain.Segment](t, rr).Logic)

		rr = f.do(t, http.MethodPost, "/api/v1/segments/preview", PreviewSegmentRequestDTO{
			Conditions: []ConditionDTO{{Field: "total_spent", Operator: "gt", Value: 1}}, Logic: "XOR",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty conditions rejected", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments", SaveSegmentRequestDTO{Name: "empty", Conditions: []ConditionDTO{}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments", SaveSegmentRequestDTO{
			Name: "bad", Conditions: []ConditionDTO{{Field: "age", Operator: "gt", Value: 3}},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing value rejected", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/segments", SaveSegmentRequestDTO{
			Name: "bad", Conditions: []ConditionDTO{{Field: "total_spent", Operator: "gt"}},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("save get and list", func(t *testing.T) {
		id := f.createSegment(t, ConditionDTO{Field: "total_spent", Operator: "gt", Value: 500})

		rr := f.do(t, http.MethodGet, "/api/v1/segments/"+id.String(), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		seg := decodeBody[domain.Segment](t, rr)
		assert.Equal(t, domain.LogicAND, seg.Logic)

		rr = f.do(t, http.MethodGet, "/api/v1/segments", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.GreaterOrEqual(t, decodeBody[ListSegmentsResponseDTO](t, rr).Total, 1)
	})

	t.Run("get unknown and malformed ids", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/segments/"+uuid.NewString(), nil).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/segments/not-a-uuid", nil).Code)
	})
}

func TestCampaignHandler_SendLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.createCustomer(t, "big@example.com", 5000)
	f.createCustomer(t, "small@example.com", 5)

	segID := f.createSegment(t, ConditionDTO{Field: "total_spent", Operator: "gt", Value: 1000})
	campaignID := f.createCampaign(t, segID)

	rr := f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/send", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeBody[app.DispatchResult](t, rr)
	assert.Equal(t, domain.CampaignStatusSent, res.Status)
	assert.Equal(t, 1, res.AudienceCount)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, res.Failed)

	// A terminal campaign cannot be sent again.
	rr = f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/send", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/v1/campaigns/"+campaignID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.CampaignStatusSent, decodeBody[domain.Campaign](t, rr).Status)

	rr = f.do(t, http.MethodGet, "/api/v1/communication-log?campaign_id="+campaignID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	logResp := decodeBody[CommunicationLogResponseDTO](t, rr)
	require.Equal(t, 1, logResp.Total)
	assert.Equal(t, "big@example.com", logResp.Records[0].CustomerEmail)

	rr = f.do(t, http.MethodGet, "/api/v1/communication-log?campaign_id=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCampaignHandler_NoAudience(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.createCustomer(t, "small@example.com", 5)
	campaignID := f.createCampaign(t, f.createSegment(t, ConditionDTO{Field: "total_spent", Operator: "gt", Value: 1000}))

	rr := f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/send", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decodeBody[app.DispatchResult](t, rr)
	assert.Equal(t, domain.CampaignStatusNoAudience, res.Status)
	assert.Zero(t, res.AudienceCount)

	rr = f.do(t, http.MethodGet, "/api/v1/communication-log", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, decodeBody[CommunicationLogResponseDTO](t, rr).Total)
}

func TestCampaignHandler_NotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/campaigns", CreateCampaignRequestDTO{Name: "c", SegmentID: uuid.NewString(), Message: "m"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/campaigns/"+uuid.NewString()+"/send", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/campaigns", CreateCampaignRequestDTO{Name: "c", SegmentID: "x", Message: "m"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReceiptHandler(t *testing.T) {
	f := newAPIFixture(t, nil)
	body := SubmitReceiptRequestDTO{CampaignID: uuid.NewString(), CustomerEmail: "Ada@Example.com", Status: "delivered"}

	rr := f.do(t, http.MethodPost, "/receipts", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, f.buffer.Len())

	rr = f.do(t, http.MethodPost, "/receipts", body, middleware.VendorKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/receipts", body, middleware.VendorKeyHeader, testVendorKey)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, "accepted", decodeBody[SubmitReceiptResponseDTO](t, rr).Status)

	drained := f.buffer.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "ada@example.com", drained[0].CustomerEmail)
	assert.Equal(t, domain.DeliveryStatusDelivered, drained[0].Status)

	rr = f.do(t, http.MethodPost, "/receipts", SubmitReceiptRequestDTO{CustomerEmail: "a@b.co"}, middleware.VendorKeyHeader, testVendorKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSuggestionHandler(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/suggestions", SuggestRequestDTO{Context: "spring sale", N: 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decodeBody[SuggestResponseDTO](t, rr).Suggestions
	assert.Len(t, out, 2)
	for _, s := range out {
		assert.LessOrEqual(t, len([]rune(s)), app.MaxSuggestionLength)
	}

	rr = f.do(t, http.MethodPost, "/api/v1/suggestions", SuggestRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/auth/me", nil, "X-Test-User", "user-1")
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decodeBody[UserProfileResponse](t, rr)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, []string{"test@example.com"}, profile.Emails)

	rr = f.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, nil)
	rr := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMapDomainErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("f", "bad"), http.StatusBadRequest},
		{domain.ErrSegmentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrCustomerNotFound), http.StatusNotFound},
		{domain.ErrCampaignAlreadyDispatched, http.StatusConflict},
		{domain.ErrDispatchInProgress, http.StatusConflict},
		{domain.ErrDependencyUnavailable, http.StatusServiceUnavailable},
		{domain.NewStorageError("op", errors.New("x")), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapDomainErrorToHTTPStatus(tt.err), tt.err.Error())
	}
}
