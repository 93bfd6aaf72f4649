package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"dlvery/internal/auth/models"
	"dlvery/internal/auth/service/mocks"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

func (s *AuthServiceSuite) TestUpdateProfile() {
	s.Run("changes name and email", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().FindByEmail(gomock.Any(), "ada@example.com").Return(nil, sentinel.ErrNotFound)
		s.users.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *models.User) error {
			s.Equal("Ada Lovelace", got.FullName)
			s.Equal("ada@example.com", got.Email)
			return nil
		})

		got, err := s.service.UpdateProfile(s.ctx, u.ID, UpdateProfileCommand{FullName: " Ada Lovelace ", Email: "ADA@example.com"})
		s.Require().NoError(err)
		s.Equal("ada@example.com", got.Email)
	})

	s.Run("keeping the same email skips the uniqueness lookup", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.UpdateProfile(s.ctx, u.ID, UpdateProfileCommand{FullName: "Ada", Email: u.Email})
		s.NoError(err)
	})

	s.Run("email owned by another account", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().FindByEmail(gomock.Any(), "taken@example.com").Return(s.existingUser(id.RoleDeliveryAgent), nil)

		_, err := s.service.UpdateProfile(s.ctx, u.ID, UpdateProfileCommand{FullName: "Ada", Email: "taken@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store reports a late email conflict", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().FindByEmail(gomock.Any(), "race@example.com").Return(nil, sentinel.ErrNotFound)
		s.users.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.UpdateProfile(s.ctx, u.ID, UpdateProfileCommand{FullName: "Ada", Email: "race@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid email", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		_, err := s.service.UpdateProfile(s.ctx, u.ID, UpdateProfileCommand{FullName: "Ada", Email: "nope"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuthServiceSuite) TestChangePassword() {
	const newPassword = "Vb4$wNq9tL"

	s.Run("re-hashes the new password", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.users.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *models.User) error {
			s.NoError(bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte(newPassword)))
			return nil
		})

		err := s.service.ChangePassword(s.ctx, u.ID, ChangePasswordCommand{
			CurrentPassword: strongPassword, NewPassword: newPassword, ConfirmPassword: newPassword,
		})
		s.NoError(err)
	})

	s.Run("wrong current password", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		err := s.service.ChangePassword(s.ctx, u.ID, ChangePasswordCommand{
			CurrentPassword: "wrong", NewPassword: newPassword, ConfirmPassword: newPassword,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("new password must pass the policy", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		err := s.service.ChangePassword(s.ctx, u.ID, ChangePasswordCommand{
			CurrentPassword: strongPassword, NewPassword: "abc", ConfirmPassword: "abc",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("confirmation mismatch", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		err := s.service.ChangePassword(s.ctx, u.ID, ChangePasswordCommand{
			CurrentPassword: strongPassword, NewPassword: newPassword, ConfirmPassword: newPassword + "x",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("reusing the current password", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		err := s.service.ChangePassword(s.ctx, u.ID, ChangePasswordCommand{
			CurrentPassword: strongPassword, NewPassword: strongPassword, ConfirmPassword: strongPassword,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "differ")
	})
}

func (s *AuthServiceSuite) TestChangePasswordLockout() {
	lockout := mocks.NewMockLoginLockout(s.ctrl)
	svc, err := New(s.users, s.trl, s.tokens,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBcryptCost(bcrypt.MinCost),
		WithLockout(lockout),
	)
	s.Require().NoError(err)
	ctx := requestcontext.WithClientMetadata(s.ctx, "10.0.0.9", "")
	u := s.existingUser(id.RoleDeliveryAgent)

	s.Run("wrong current password counts a failure", func() {
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		lockout.EXPECT().Check(gomock.Any(), "agent1", "10.0.0.9").Return(nil)
		lockout.EXPECT().RecordFailure(gomock.Any(), "agent1", "10.0.0.9").Return(true, nil)

		err := svc.ChangePassword(ctx, u.ID, ChangePasswordCommand{CurrentPassword: "guess"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("locked account is rejected before verification", func() {
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		lockout.EXPECT().Check(gomock.Any(), "agent1", "10.0.0.9").
			Return(dErrors.New(dErrors.CodeTooManyRequests, "too many failed login attempts"))

		err := svc.ChangePassword(ctx, u.ID, ChangePasswordCommand{CurrentPassword: strongPassword})
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	})
}

func (s *AuthServiceSuite) TestAgentProfile() {
	s.Run("blank profile before the first save", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.profiles.EXPECT().FindByUserID(gomock.Any(), u.ID).Return(nil, sentinel.ErrNotFound)

		p, err := s.service.AgentProfile(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Ada Agent", p.DisplayName)
		s.Equal(u.Email, p.Email)
		s.True(p.Available)
		s.False(p.Complete)
	})

	s.Run("inventory staff have no agent profile", func() {
		u := s.existingUser(id.RoleInventoryTeam)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

		_, err := s.service.AgentProfile(s.ctx, u.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("store failure", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.profiles.EXPECT().FindByUserID(gomock.Any(), u.ID).Return(nil, errors.New("db down"))

		_, err := s.service.AgentProfile(s.ctx, u.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("not configured", func() {
		svc, err := New(s.users, s.trl, s.tokens, WithBcryptCost(bcrypt.MinCost))
		s.Require().NoError(err)
		_, err = svc.AgentProfile(s.ctx, id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *AuthServiceSuite) TestSaveAgentProfile() {
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	complete := models.AgentProfileUpdate{
		DisplayName: "Ada", Phone: "555-0100", Address: "1 Main St", City: "Springfield", State: "IL",
		DateOfBirth: &dob, LicenseNumber: "D123", VehicleType: "van", VehicleNumber: "IL-42",
	}

	s.Run("first save completes the profile", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.profiles.EXPECT().FindByUserID(gomock.Any(), u.ID).Return(nil, sentinel.ErrNotFound)
		s.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		p, err := s.service.SaveAgentProfile(s.ctx, u.ID, complete)
		s.Require().NoError(err)
		s.True(p.Complete)
		s.Equal("Ada", p.DisplayName)
		s.Equal(s.now, p.CreatedAt)
	})

	s.Run("display name is frozen after completion", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		existing := models.NewAgentProfile(u)
		existing.Apply(complete, u.FullName, s.now.Add(-time.Hour))
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.profiles.EXPECT().FindByUserID(gomock.Any(), u.ID).Return(existing, nil)
		s.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.AgentProfile) error {
			s.Equal("Ada", p.DisplayName)
			s.Equal("Shelbyville", p.City)
			return nil
		})

		renamed := complete
		renamed.DisplayName = "Someone Else"
		renamed.City = "Shelbyville"
		_, err := s.service.SaveAgentProfile(s.ctx, u.ID, renamed)
		s.NoError(err)
	})

	s.Run("save failure", func() {
		u := s.existingUser(id.RoleDeliveryAgent)
		s.users.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		s.profiles.EXPECT().FindByUserID(gomock.Any(), u.ID).Return(nil, sentinel.ErrNotFound)
		s.profiles.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := s.service.SaveAgentProfile(s.ctx, u.ID, complete)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *AuthServiceSuite) TestActiveAgents() {
	withProfile := s.existingUser(id.RoleDeliveryAgent)
	withProfile.Username = "agent1"
	bare := s.existingUser(id.RoleDeliveryAgent)
	bare.Username = "agent2"
	bare.FullName = "Bo Bare"
	inactive := s.existingUser(id.RoleDeliveryAgent)
	inactive.Username = "agent3"
	inactive.Active = false

	off := false
	saved := models.NewAgentProfile(withProfile)
	saved.Apply(models.AgentProfileUpdate{DisplayName: "Ace", Available: &off}, withProfile.FullName, s.now)

	s.users.EXPECT().ListByRole(gomock.Any(), id.RoleDeliveryAgent).
		Return([]models.User{*withProfile, *bare, *inactive}, nil)
	s.profiles.EXPECT().FindByUserID(gomock.Any(), withProfile.ID).Return(saved, nil)
	s.profiles.EXPECT().FindByUserID(gomock.Any(), bare.ID).Return(nil, sentinel.ErrNotFound)

	agents, err := s.service.ActiveAgents(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.AgentOption{
		{Username: "agent1", DisplayName: "Ace", Available: false},
		{Username: "agent2", DisplayName: "Bo Bare", Available: true},
	}, agents)
}
