package domain

import dErrors "dlvery/pkg/domain-errors"

// Role is an account's job function. It decides which deliveries a user may see and change.
type Role string

const (
	RoleInventoryTeam Role = "INVENTORY_TEAM"
	RoleDeliveryAgent Role = "DELIVERY_AGENT"
)

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleInventoryTeam, RoleDeliveryAgent:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
}
