package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSegment_Validation(t *testing.T) {
	t.Run("EmptyConditionsRejected", func(t *testing.T) {
		_, err := NewSegment(uuid.New(), "vip", nil, "AND")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("UnknownFieldRejected", func(t *testing.T) {
		_, err := NewSegment(uuid.New(), "vip", []Condition{{Field: "age", Operator: OpGT, Value: 3}}, "")
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "conditions.field", vErr.Field)
	})

	t.Run("LogicDefaultsToAND", func(t *testing.T) {
		seg, err := NewSegment(uuid.New(), " vip ", []Condition{{Field: FieldTotalSpent, Operator: OpGT, Value: 100}}, "")
		require.NoError(t, err)
		assert.Equal(t, LogicAND, seg.Logic)
		assert.Equal(t, "vip", seg.Name)
	})

	t.Run("LowercaseOrAccepted", func(t *testing.T) {
		seg, err := NewSegment(uuid.New(), "any", []Condition{{Field: FieldEmail, Operator: OpEQ, Value: "a@b.c"}}, "or")
		require.NoError(t, err)
		assert.Equal(t, LogicOR, seg.Logic)
	})

	t.Run("BadLogicRejected", func(t *testing.T) {
		_, err := NewSegment(uuid.New(), "x", []Condition{{Field: FieldEmail, Operator: OpEQ, Value: "a"}}, "XOR")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCampaignStatus_IsTerminal(t *testing.T) {
	assert.False(t, CampaignStatusCreated.IsTerminal())
	assert.True(t, CampaignStatusNoAudience.IsTerminal())
	assert.True(t, CampaignStatusSent.IsTerminal())
	assert.True(t, CampaignStatusPartialFailed.IsTerminal())
}

func TestNewCampaign_RequiresFields(t *testing.T) {
	_, err := NewCampaign(uuid.New(), "", uuid.New(), "hi")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewCampaign(uuid.New(), "spring", uuid.Nil, "hi")
	assert.ErrorIs(t, err, ErrValidation)

	c, err := NewCampaign(uuid.New(), "spring", uuid.New(), "hi")
	require.NoError(t, err)
	assert.Equal(t, CampaignStatusCreated, c.Status)
}

func TestCustomer_ApplyOrder(t *testing.T) {
	c := NewCustomer(uuid.New(), "Ada", "ADA@Example.com", "", 0, nil, nil)
	assert.Equal(t, "ada@example.com", c.Email)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.ApplyOrder(25.555, march)
	assert.Equal(t, 25.56, c.TotalSpent)
	require.NotNil(t, c.LastOrderDate)
	assert.True(t, march.Equal(*c.LastOrderDate))

	january := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.ApplyOrder(10, january)
	assert.Equal(t, 35.56, c.TotalSpent)
	assert.True(t, january.Equal(*c.LastOrderDate), "last_order_date follows the latest ingested order")
}

func TestOrder_Validate(t *testing.T) {
	o := NewOrder(uuid.New(), "a@b.c", 10, time.Time{}, []LineItem{{SKU: "x", Quantity: 0}}, nil)
	assert.ErrorIs(t, o.Validate(), ErrValidation)
	assert.False(t, o.Date.IsZero())

	o = NewOrder(uuid.New(), "a@b.c", -1, time.Now(), nil, nil)
	assert.ErrorIs(t, o.Validate(), ErrValidation)
}

func TestErrors_Classes(t *testing.T) {
	assert.ErrorIs(t, ErrCampaignNotFound, ErrNotFound)
	assert.ErrorIs(t, NewStorageError("append", errors.New("disk full")), ErrStorage)
	assert.Equal(t, DeliveryStatusSent, ParseDeliveryStatus(""))
	assert.Equal(t, DeliveryStatusDelivered, ParseDeliveryStatus(" delivered "))
}
