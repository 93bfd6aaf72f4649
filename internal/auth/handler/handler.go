// Package handler serves the account endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dlvery/internal/auth/models"
	"dlvery/internal/auth/service"
	"dlvery/internal/password"
	"dlvery/internal/platform/middleware"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/httputil"
	"dlvery/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, cmd service.RegisterCommand) (*models.User, error)
	Login(ctx context.Context, cmd service.LoginCommand) (*models.Session, error)
	Logout(ctx context.Context, ident requestcontext.Identity) error
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	AssessPassword(pw string) password.Assessment
	UpdateProfile(ctx context.Context, userID id.UserID, cmd service.UpdateProfileCommand) (*models.User, error)
	ChangePassword(ctx context.Context, userID id.UserID, cmd service.ChangePasswordCommand) error
	AgentProfile(ctx context.Context, userID id.UserID) (*models.AgentProfile, error)
	SaveAgentProfile(ctx context.Context, userID id.UserID, upd models.AgentProfileUpdate) (*models.AgentProfile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/password/assess", h.HandleAssessPassword)
}

// RegisterAuthenticated mounts endpoints that need RequireAuth upstream.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
	r.Route("/auth/profile", func(r chi.Router) {
		r.Get("/", h.HandleMe)
		r.Put("/", h.HandleUpdateProfile)
		r.Post("/password", h.HandleChangePassword)
		r.With(middleware.RequireRole(h.logger, id.RoleDeliveryAgent)).Route("/agent", func(r chi.Router) {
			r.Get("/", h.HandleAgentProfile)
			r.Put("/", h.HandleSaveAgentProfile)
		})
	})
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.Register(ctx, service.RegisterCommand{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        req.FullName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.parsedRole,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.Login(ctx, service.LoginCommand{
		Username: req.Username,
		Password: req.Password,
		Role:     req.parsedRole,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "login rejected", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, session)
}

// HandleAssessPassword handles POST /auth/password/assess.
func (h *Handler) HandleAssessPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AssessPasswordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.AssessPassword(req.Password))
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if err := h.service.Logout(ctx, ident); err != nil {
		h.writeServiceError(ctx, w, "failed to log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	u, err := h.service.Me(ctx, ident.UserID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// HandleUpdateProfile handles PUT /auth/profile.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	u, err := h.service.UpdateProfile(ctx, ident.UserID, service.UpdateProfileCommand{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// HandleChangePassword handles POST /auth/profile/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangePasswordRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	err := h.service.ChangePassword(ctx, ident.UserID, service.ChangePasswordCommand{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAgentProfile handles GET /auth/profile/agent.
func (h *Handler) HandleAgentProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	p, err := h.service.AgentProfile(ctx, ident.UserID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load agent profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleSaveAgentProfile handles PUT /auth/profile/agent.
func (h *Handler) HandleSaveAgentProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[AgentProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.SaveAgentProfile(ctx, ident.UserID, req.toUpdate())
	if err != nil {
		h.writeServiceError(ctx, w, "failed to save agent profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelError
	if de, ok := dErrors.From(err); ok && httputil.StatusFor(de.Code) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
