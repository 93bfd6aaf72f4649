package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// Schema creates the agent_profiles table. It depends on users.
const Schema = `
CREATE TABLE IF NOT EXISTS agent_profiles (
	user_id                 UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	email                   TEXT NOT NULL,
	display_name            TEXT NOT NULL,
	phone                   TEXT NOT NULL DEFAULT '',
	emergency_contact_name  TEXT NOT NULL DEFAULT '',
	emergency_contact_phone TEXT NOT NULL DEFAULT '',
	address                 TEXT NOT NULL DEFAULT '',
	city                    TEXT NOT NULL DEFAULT '',
	state                   TEXT NOT NULL DEFAULT '',
	postal_code             TEXT NOT NULL DEFAULT '',
	date_of_birth           DATE,
	license_number          TEXT NOT NULL DEFAULT '',
	license_expiry          DATE,
	vehicle_type            TEXT NOT NULL DEFAULT '',
	vehicle_number          TEXT NOT NULL DEFAULT '',
	picture_url             TEXT NOT NULL DEFAULT '',
	available               BOOLEAN NOT NULL DEFAULT TRUE,
	complete                BOOLEAN NOT NULL DEFAULT FALSE,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.AgentProfile, error) {
	var (
		p              models.AgentProfile
		dob, licExpiry sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT email, display_name, phone, emergency_contact_name, emergency_contact_phone,
			address, city, state, postal_code, date_of_birth, license_number, license_expiry,
			vehicle_type, vehicle_number, picture_url, available, complete, created_at, updated_at
		FROM agent_profiles WHERE user_id = $1
	`, userID.String()).Scan(
		&p.Email, &p.DisplayName, &p.Phone, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.Address, &p.City, &p.State, &p.PostalCode, &dob, &p.LicenseNumber, &licExpiry,
		&p.VehicleType, &p.VehicleNumber, &p.PictureURL, &p.Available, &p.Complete, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find agent profile: %w", err)
	}
	p.UserID = userID
	p.DateOfBirth = timePtr(dob)
	p.LicenseExpiry = timePtr(licExpiry)
	return &p, nil
}

// Save upserts the profile keyed by user_id.
func (s *PostgresStore) Save(ctx context.Context, p *models.AgentProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_profiles (user_id, email, display_name, phone, emergency_contact_name,
			emergency_contact_phone, address, city, state, postal_code, date_of_birth, license_number,
			license_expiry, vehicle_type, vehicle_number, picture_url, available, complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			phone = EXCLUDED.phone,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_phone = EXCLUDED.emergency_contact_phone,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			date_of_birth = EXCLUDED.date_of_birth,
			license_number = EXCLUDED.license_number,
			license_expiry = EXCLUDED.license_expiry,
			vehicle_type = EXCLUDED.vehicle_type,
			vehicle_number = EXCLUDED.vehicle_number,
			picture_url = EXCLUDED.picture_url,
			available = EXCLUDED.available,
			complete = EXCLUDED.complete,
			updated_at = EXCLUDED.updated_at
	`, p.UserID.String(), p.Email, p.DisplayName, p.Phone, p.EmergencyContactName,
		p.EmergencyContactPhone, p.Address, p.City, p.State, p.PostalCode, p.DateOfBirth, p.LicenseNumber,
		p.LicenseExpiry, p.VehicleType, p.VehicleNumber, p.PictureURL, p.Available, p.Complete, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save agent profile: %w", err)
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
