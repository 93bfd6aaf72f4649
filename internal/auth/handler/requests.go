package handler

import (
	"time"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email,max=254"`
	FullName        string `json:"full_name" validate:"required,max=100"`
	Password        string `json:"password" validate:"required" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" validate:"required" sanitize:"-"`
	Role            string `json:"role" validate:"required"`

	parsedRole id.Role
}

// Validate parses the requested role.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

// LoginRequest is the body for POST /auth/login. Role selects the portal.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required" sanitize:"-"`
	Role     string `json:"role" validate:"required"`

	parsedRole id.Role
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

// AssessPasswordRequest is the body for POST /auth/password/assess.
type AssessPasswordRequest struct {
	Password string `json:"password" validate:"max=1024" sanitize:"-"`
}

func (r *AssessPasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// UpdateProfileRequest is the body for PUT /auth/profile.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// ChangePasswordRequest is the body for POST /auth/profile/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" sanitize:"-"`
	NewPassword     string `json:"new_password" validate:"required" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" validate:"required" sanitize:"-"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

const dateLayout = "2006-01-02"

// AgentProfileRequest is the body for PUT /auth/profile/agent. Dates use YYYY-MM-DD.
type AgentProfileRequest struct {
	DisplayName           string `json:"display_name" validate:"max=100"`
	Phone                 string `json:"phone" validate:"max=20"`
	EmergencyContactName  string `json:"emergency_contact_name" validate:"max=100"`
	EmergencyContactPhone string `json:"emergency_contact_phone" validate:"max=20"`
	Address               string `json:"address" validate:"max=500"`
	City                  string `json:"city" validate:"max=100"`
	State                 string `json:"state" validate:"max=100"`
	PostalCode            string `json:"postal_code" validate:"max=20"`
	DateOfBirth           string `json:"date_of_birth"`
	LicenseNumber         string `json:"license_number" validate:"max=50"`
	LicenseExpiry         string `json:"license_expiry"`
	VehicleType           string `json:"vehicle_type" validate:"max=50"`
	VehicleNumber         string `json:"vehicle_number" validate:"max=20"`
	PictureURL            string `json:"picture_url" validate:"omitempty,url,max=2048"`
	Available             *bool  `json:"available"`

	parsedDateOfBirth   *time.Time
	parsedLicenseExpiry *time.Time
}

// Validate parses the optional dates.
func (r *AgentProfileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	var err error
	if r.parsedDateOfBirth, err = parseDate("date_of_birth", r.DateOfBirth); err != nil {
		return err
	}
	if r.parsedLicenseExpiry, err = parseDate("license_expiry", r.LicenseExpiry); err != nil {
		return err
	}
	return nil
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be a date in YYYY-MM-DD form")
	}
	return &t, nil
}

func (r *AgentProfileRequest) toUpdate() models.AgentProfileUpdate {
	return models.AgentProfileUpdate{
		DisplayName:           r.DisplayName,
		Phone:                 r.Phone,
		EmergencyContactName:  r.EmergencyContactName,
		EmergencyContactPhone: r.EmergencyContactPhone,
		Address:               r.Address,
		City:                  r.City,
		State:                 r.State,
		PostalCode:            r.PostalCode,
		DateOfBirth:           r.parsedDateOfBirth,
		LicenseNumber:         r.LicenseNumber,
		LicenseExpiry:         r.parsedLicenseExpiry,
		VehicleType:           r.VehicleType,
		VehicleNumber:         r.VehicleNumber,
		PictureURL:            r.PictureURL,
		Available:             r.Available,
	}
}
