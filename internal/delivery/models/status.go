package models

import (
	"slices"

	dErrors "dlvery/pkg/domain-errors"
)

// Status is the lifecycle state of a delivery. The set is closed; ParseStatus is
// the only way to turn untrusted input into a Status.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusAssigned         Status = "ASSIGNED"
	StatusInTransit        Status = "IN_TRANSIT"
	StatusDelivered        Status = "DELIVERED"
	StatusDoorLocked       Status = "DOOR_LOCKED"
	StatusDamagedInTransit Status = "DAMAGED_IN_TRANSIT"
	StatusReturned         Status = "RETURNED"
	StatusCancelled        Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusAssigned,
	StatusInTransit,
	StatusDelivered,
	StatusDoorLocked,
	StatusDamagedInTransit,
	StatusReturned,
	StatusCancelled,
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusInTransit, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusDamagedInTransit, StatusDoorLocked, StatusReturned},
}

// ParseStatus validates s against the closed set.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid delivery status: "+s)
	}
	return st, nil
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// IsTerminal reports whether no further transition is possible.
// This is the only place "final state" is decided.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether next is an allowed successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// AllowedNext returns a copy of the successors of s. Terminal and unknown
// statuses have none.
func AllowedNext(s Status) []Status {
	return slices.Clone(transitions[s])
}

// IsOpen reports whether the delivery still awaits dispatch.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusAssigned
}

// StatusDisplay is the presentation metadata clients render for a status.
type StatusDisplay struct {
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	CSSClass string `json:"css_class"`
	Color    string `json:"color"`
}

var displays = map[Status]StatusDisplay{
	StatusPending:          {Label: "PENDING", Icon: "schedule", CSSClass: "pending", Color: "#ff9800"},
	StatusAssigned:         {Label: "ASSIGNED", Icon: "assignment", CSSClass: "assigned", Color: "#2196f3"},
	StatusInTransit:        {Label: "IN TRANSIT", Icon: "local_shipping", CSSClass: "in-transit", Color: "#9c27b0"},
	StatusDelivered:        {Label: "DELIVERED", Icon: "check_circle", CSSClass: "delivered", Color: "#4caf50"},
	StatusDoorLocked:       {Label: "DOOR LOCKED", Icon: "lock", CSSClass: "door-locked", Color: "#ff5722"},
	StatusDamagedInTransit: {Label: "DAMAGED", Icon: "warning", CSSClass: "damaged", Color: "#f44336"},
	StatusReturned:         {Label: "RETURNED", Icon: "keyboard_return", CSSClass: "returned", Color: "#795548"},
	StatusCancelled:        {Label: "CANCELLED", Icon: "cancel", CSSClass: "cancelled", Color: "#607d8b"},
}

// Display returns the presentation metadata for s. Unknown statuses fall back
// to their raw value with a neutral style.
func (s Status) Display() StatusDisplay {
	if d, ok := displays[s]; ok {
		return d
	}
	return StatusDisplay{Label: string(s), Icon: "help", CSSClass: "unknown", Color: "#9e9e9e"}
}
