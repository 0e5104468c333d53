package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReceiptConsumer_HandleMessage(t *testing.T) {
	ctx := context.Background()
	buf := NewReceiptBuffer()
	consumer := NewReceiptConsumer(NewReceiptIntake(buf, discardLogger()), discardLogger())
	cid := uuid.New()
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		data, _ := json.Marshal(ReceiptMessage{CampaignID: cid.String(), CustomerEmail: "Ada@example.com", Status: "delivered", ReceivedAt: at})
		require.NoError(t, consumer.HandleMessage(ctx, "crm.receipts.acme", data))

		got := buf.Drain()
		require.Len(t, got, 1)
		assert.Equal(t, cid, got[0].CampaignID)
		assert.Equal(t, "ada@example.com", got[0].CustomerEmail)
		assert.Equal(t, domain.DeliveryStatusDelivered, got[0].Status)
		assert.True(t, at.Equal(got[0].ReceivedAt))
	})

	t.Run("BadSubject", func(t *testing.T) {
		assert.Error(t, consumer.HandleMessage(ctx, "crm.receipts", []byte(`{}`)))
		assert.Error(t, consumer.HandleMessage(ctx, "dlr.raw.acme", []byte(`{}`)))
		assert.Error(t, consumer.HandleMessage(ctx, "crm.receipts.*", []byte(`{}`)))
	})

	t.Run("BadPayload", func(t *testing.T) {
		assert.Error(t, consumer.HandleMessage(ctx, "crm.receipts.acme", []byte("nope")))
	})

	t.Run("MissingCampaign", func(t *testing.T) {
		err := consumer.HandleMessage(ctx, "crm.receipts.acme", []byte(`{"customer_email":"a@example.com"}`))
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, buf.Len())
	})
}

func TestReceiptConsumer_Start(t *testing.T) {
	ctx := context.Background()
	buf := NewReceiptBuffer()
	consumer := NewReceiptConsumer(NewReceiptIntake(buf, discardLogger()), discardLogger())

	sub := new(MockSubscriber)
	sub.On("Subscribe", ctx, SubjectReceipts, "crm_receipts", mock.Anything).Return(nil, nil).Run(func(args mock.Arguments) {
		handler := args.Get(3).(nats.MsgHandler)
		handler(&nats.Msg{Subject: "crm.receipts.acme", Data: []byte(`{"campaign_id":"` + uuid.NewString() + `","customer_email":"x@example.com"}`)})
	}).Once()

	require.NoError(t, consumer.Start(ctx, sub, "crm_receipts"))
	assert.Equal(t, 1, buf.Len())
	sub.AssertExpectations(t)
}
