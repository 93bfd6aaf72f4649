package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dlvery/pkg/domain-errors"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"", "delivered", "SHIPPED", " PENDING"} {
		_, err := ParseStatus(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestAllowedNext(t *testing.T) {
	assert.Equal(t, []Status{StatusInTransit, StatusCancelled}, AllowedNext(StatusPending))
	assert.Equal(t, []Status{StatusInTransit, StatusCancelled}, AllowedNext(StatusAssigned))
	assert.ElementsMatch(t,
		[]Status{StatusDelivered, StatusDamagedInTransit, StatusDoorLocked, StatusReturned},
		AllowedNext(StatusInTransit))

	t.Run("terminal statuses have no successors", func(t *testing.T) {
		for _, s := range []Status{StatusDelivered, StatusDoorLocked, StatusDamagedInTransit, StatusReturned, StatusCancelled} {
			assert.Empty(t, AllowedNext(s), s)
			assert.True(t, s.IsTerminal(), s)
		}
	})

	t.Run("non terminal statuses", func(t *testing.T) {
		for _, s := range []Status{StatusPending, StatusAssigned, StatusInTransit} {
			assert.False(t, s.IsTerminal(), s)
		}
		assert.False(t, Status("BOGUS").IsTerminal())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		next := AllowedNext(StatusPending)
		next[0] = StatusDelivered
		assert.Equal(t, StatusInTransit, AllowedNext(StatusPending)[0])
	})
}

func TestStatusDisplay(t *testing.T) {
	d := StatusInTransit.Display()
	assert.Equal(t, StatusDisplay{Label: "IN TRANSIT", Icon: "local_shipping", CSSClass: "in-transit", Color: "#9c27b0"}, d)

	for _, s := range Statuses {
		assert.NotEqual(t, "unknown", s.Display().CSSClass, s)
	}
	assert.Equal(t, "unknown", Status("BOGUS").Display().CSSClass)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityStandard, p)

	_, err = ParsePriority("URGENT")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	assert.Less(t, PriorityEmergency.Level(), PriorityPerishable.Level())
	assert.Less(t, PriorityLow.Level(), Priority("??").Level())
}
