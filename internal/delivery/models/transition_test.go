package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  Status
		req   TransitionRequest
		field string
		rule  string
	}{
		{
			name:  "delivered without signature",
			from:  StatusInTransit,
			req:   TransitionRequest{To: StatusDelivered, CustomerName: "Ada"},
			field: "signature", rule: RuleRequired,
		},
		{
			name:  "delivered without customer name",
			from:  StatusInTransit,
			req:   TransitionRequest{To: StatusDelivered, SignatureRef: "signatures/x.png", CustomerName: "  "},
			field: "customer_name", rule: RuleRequired,
		},
		{
			name:  "returned with blank reason",
			from:  StatusInTransit,
			req:   TransitionRequest{To: StatusReturned, Reason: "   "},
			field: "reason", rule: RuleRequired,
		},
		{
			name:  "door locked without reason",
			from:  StatusInTransit,
			req:   TransitionRequest{To: StatusDoorLocked},
			field: "reason", rule: RuleRequired,
		},
		{
			name:  "pending cannot jump to delivered",
			from:  StatusPending,
			req:   TransitionRequest{To: StatusDelivered, SignatureRef: "s", CustomerName: "Ada"},
			field: "status", rule: RuleNotAllowed,
		},
		{
			name:  "terminal status rejects everything",
			from:  StatusCancelled,
			req:   TransitionRequest{To: StatusInTransit},
			field: "status", rule: RuleNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.req)
			require.Error(t, err)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.field, te.Field)
			assert.Equal(t, tt.rule, te.Rule)
			assert.Equal(t, tt.from, te.From)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	t.Run("accepted transitions", func(t *testing.T) {
		assert.NoError(t, ValidateTransition(StatusInTransit, TransitionRequest{To: StatusDelivered, SignatureRef: "signatures/x.png", CustomerName: "Ada"}))
		assert.NoError(t, ValidateTransition(StatusPending, TransitionRequest{To: StatusInTransit}))
		assert.NoError(t, ValidateTransition(StatusAssigned, TransitionRequest{To: StatusCancelled}))
		assert.NoError(t, ValidateTransition(StatusInTransit, TransitionRequest{To: StatusDamagedInTransit, Reason: "box crushed"}))
	})
}

func TestDeliveryLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	deliveryID := id.DeliveryID(uuid.MustParse("0a1b2c3d-4e5f-6789-abcd-ef0123456789"))

	t.Run("new delivery is pending with derived number", func(t *testing.T) {
		d, err := NewDelivery(deliveryID, " Ada Lovelace ", "1 Analytical Way", "", now, "", now)
		require.NoError(t, err)
		assert.Equal(t, "DLV-0A1B2C3D", d.Number)
		assert.Equal(t, StatusPending, d.Status)
		assert.Equal(t, PriorityStandard, d.Priority)
		assert.Equal(t, "Ada Lovelace", d.CustomerName)
		assert.Nil(t, d.AssignedAt)
	})

	t.Run("agent assignment", func(t *testing.T) {
		d, err := NewDelivery(deliveryID, "Ada", "1 Analytical Way", PriorityEmergency, now, "agent7", now)
		require.NoError(t, err)
		assert.Equal(t, StatusAssigned, d.Status)
		require.NotNil(t, d.AssignedAt)
	})

	t.Run("invariants", func(t *testing.T) {
		_, err := NewDelivery(deliveryID, "", "addr", "", now, "", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		_, err = NewDelivery(deliveryID, "Ada", " ", "", now, "", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("delivered records signature and time", func(t *testing.T) {
		d, err := NewDelivery(deliveryID, "Ada", "1 Analytical Way", "", now, "", now)
		require.NoError(t, err)
		require.NoError(t, d.Transition(TransitionRequest{To: StatusInTransit}, now))

		later := now.Add(time.Hour)
		require.NoError(t, d.Transition(TransitionRequest{To: StatusDelivered, SignatureRef: "signatures/a.png", CustomerName: "Ada"}, later))
		assert.True(t, d.IsTerminal())
		assert.Equal(t, "signatures/a.png", d.SignatureRef)
		assert.Equal(t, "Ada", d.ReceivedBy)
		require.NotNil(t, d.DeliveredAt)
		assert.Equal(t, later, *d.DeliveredAt)

		assert.Error(t, d.Transition(TransitionRequest{To: StatusReturned, Reason: "x"}, later))
	})
}
