package models

import (
	"strings"
	"time"

	id "dlvery/pkg/domain"
)

// AgentProfile is a delivery agent's onboarding record.
//
// Invariants:
//   - Complete is derived from the required fields and never set directly
//   - DisplayName is frozen once the profile is complete
type AgentProfile struct {
	UserID                id.UserID  `json:"user_id"`
	Email                 string     `json:"email"`
	DisplayName           string     `json:"display_name"`
	Phone                 string     `json:"phone"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
	Address               string     `json:"address"`
	City                  string     `json:"city"`
	State                 string     `json:"state"`
	PostalCode            string     `json:"postal_code,omitempty"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	LicenseNumber         string     `json:"license_number"`
	LicenseExpiry         *time.Time `json:"license_expiry,omitempty"`
	VehicleType           string     `json:"vehicle_type"`
	VehicleNumber         string     `json:"vehicle_number"`
	PictureURL            string     `json:"picture_url,omitempty"`
	Available             bool       `json:"available"`
	Complete              bool       `json:"complete"`
	CreatedAt             time.Time  `json:"created_at,omitzero"`
	UpdatedAt             time.Time  `json:"updated_at,omitzero"`
}

// NewAgentProfile is the blank profile shown before an agent's first save.
func NewAgentProfile(u *User) *AgentProfile {
	return &AgentProfile{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.FullName,
		Available:   true,
	}
}

// AgentProfileUpdate carries the editable fields. A nil Available keeps the agent available.
type AgentProfileUpdate struct {
	DisplayName           string
	Phone                 string
	EmergencyContactName  string
	EmergencyContactPhone string
	Address               string
	City                  string
	State                 string
	PostalCode            string
	DateOfBirth           *time.Time
	LicenseNumber         string
	LicenseExpiry         *time.Time
	VehicleType           string
	VehicleNumber         string
	PictureURL            string
	Available             *bool
}

// Apply overwrites the editable fields and recomputes completeness.
// The display name falls back to fallbackName and is ignored once the profile is complete.
func (p *AgentProfile) Apply(upd AgentProfileUpdate, fallbackName string, now time.Time) {
	if !p.Complete {
		p.DisplayName = strings.TrimSpace(upd.DisplayName)
		if p.DisplayName == "" {
			p.DisplayName = fallbackName
		}
	}
	p.Phone = strings.TrimSpace(upd.Phone)
	p.EmergencyContactName = strings.TrimSpace(upd.EmergencyContactName)
	p.EmergencyContactPhone = strings.TrimSpace(upd.EmergencyContactPhone)
	p.Address = strings.TrimSpace(upd.Address)
	p.City = strings.TrimSpace(upd.City)
	p.State = strings.TrimSpace(upd.State)
	p.PostalCode = strings.TrimSpace(upd.PostalCode)
	p.DateOfBirth = upd.DateOfBirth
	p.LicenseNumber = strings.TrimSpace(upd.LicenseNumber)
	p.LicenseExpiry = upd.LicenseExpiry
	p.VehicleType = strings.TrimSpace(upd.VehicleType)
	p.VehicleNumber = strings.TrimSpace(upd.VehicleNumber)
	p.PictureURL = strings.TrimSpace(upd.PictureURL)
	p.Available = upd.Available == nil || *upd.Available

	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Complete = p.hasRequiredFields()
}

func (p *AgentProfile) hasRequiredFields() bool {
	for _, v := range []string{p.Phone, p.Address, p.City, p.State, p.LicenseNumber, p.VehicleType, p.VehicleNumber} {
		if v == "" {
			return false
		}
	}
	return p.DateOfBirth != nil
}

// AgentOption is an entry in the agent picker used when assigning deliveries.
type AgentOption struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Available   bool   `json:"available"`
}
