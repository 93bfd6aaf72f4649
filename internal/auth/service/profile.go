package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"dlvery/internal/auth/models"
	"dlvery/internal/password"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

// UpdateProfileCommand replaces the caller's contact details.
type UpdateProfileCommand struct {
	FullName string
	Email    string
}

// UpdateProfile changes the caller's full name and email. Email stays unique across accounts.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, cmd UpdateProfileCommand) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	previousEmail := u.Email
	if err := u.ChangeContact(cmd.FullName, cmd.Email); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if u.Email != previousEmail {
		if _, err := s.users.FindByEmail(ctx, u.Email); err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
		}
	}
	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "profile_updated",
		"user_id", u.ID.String(),
		"email_changed", u.Email != previousEmail,
	)
	return u, nil
}

// ChangePasswordCommand carries the current password for re-verification.
type ChangePasswordCommand struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword re-verifies the current password before applying the policy to the new one.
// Wrong current passwords count toward the login lockout for the account.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, cmd ChangePasswordCommand) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	ip := requestcontext.ClientIP(ctx)
	if s.lockout != nil {
		if err := s.lockout.Check(ctx, u.Username, ip); err != nil {
			s.passwordChangeFailed(ctx, u, outcomeLocked)
			return err
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.CurrentPassword)); err != nil {
		s.passwordChangeFailed(ctx, u, outcomeFailed)
		s.countFailure(ctx, u.Username, ip)
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}
	if err := s.checkPassword(cmd.NewPassword); err != nil {
		return err
	}
	if err := password.ValidateMatch(cmd.NewPassword, cmd.ConfirmPassword); err != nil {
		return err
	}
	if cmd.NewPassword == cmd.CurrentPassword {
		return dErrors.New(dErrors.CodeValidation, "new password must differ from the current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.NewPassword), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = string(hash)
	if err := s.saveUser(ctx, u); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementPasswordChange(outcomeSuccess)
	}
	s.logAudit(ctx, "password_changed", "user_id", u.ID.String())
	return nil
}

func (s *Service) passwordChangeFailed(ctx context.Context, u *models.User, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementPasswordChange(outcome)
	}
	s.logger.WarnContext(ctx, "password change rejected",
		"user_id", u.ID.String(),
		"outcome", outcome,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) saveUser(ctx context.Context, u *models.User) error {
	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "email already exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return nil
}

// AgentProfile returns the caller's delivery agent profile, or a blank one before the first save.
func (s *Service) AgentProfile(ctx context.Context, userID id.UserID) (*models.AgentProfile, error) {
	u, err := s.agentAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.FindByUserID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewAgentProfile(u), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent profile")
	}
	p.Email = u.Email
	return p, nil
}

// SaveAgentProfile creates or replaces the caller's profile.
func (s *Service) SaveAgentProfile(ctx context.Context, userID id.UserID, upd models.AgentProfileUpdate) (*models.AgentProfile, error) {
	u, err := s.agentAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.FindByUserID(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent profile")
		}
		p = models.NewAgentProfile(u)
	}
	wasComplete := p.Complete
	p.Email = u.Email
	p.Apply(upd, u.FullName, requestcontext.Now(ctx))
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save agent profile")
	}

	s.logAudit(ctx, "agent_profile_saved",
		"user_id", u.ID.String(),
		"complete", p.Complete,
		"was_complete", wasComplete,
	)
	return p, nil
}

func (s *Service) agentAccount(ctx context.Context, userID id.UserID) (*models.User, error) {
	if s.profiles == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "agent profiles are not configured")
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != id.RoleDeliveryAgent {
		return nil, dErrors.New(dErrors.CodeForbidden, "user is not a delivery agent")
	}
	return u, nil
}

// ActiveAgents lists active delivery agent accounts for assignment pickers.
// Agents without a saved profile show their full name and count as available.
func (s *Service) ActiveAgents(ctx context.Context) ([]models.AgentOption, error) {
	users, err := s.users.ListByRole(ctx, id.RoleDeliveryAgent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agents")
	}
	out := make([]models.AgentOption, 0, len(users))
	for _, u := range users {
		if !u.Active {
			continue
		}
		opt := models.AgentOption{Username: u.Username, DisplayName: u.FullName, Available: true}
		if s.profiles != nil {
			p, err := s.profiles.FindByUserID(ctx, u.ID)
			switch {
			case err == nil:
				opt.DisplayName = p.DisplayName
				opt.Available = p.Available
			case !errors.Is(err, sentinel.ErrNotFound):
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent profile")
			}
		}
		out = append(out, opt)
	}
	return out, nil
}
