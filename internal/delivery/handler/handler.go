package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/service"
	"dlvery/internal/platform/middleware"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/httputil"
	"dlvery/pkg/requestcontext"
)

// Service defines the delivery operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Delivery, error)
	Get(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error)
	Dashboard(ctx context.Context, agent string) (*service.Dashboard, error)
	UpdateStatus(ctx context.Context, deliveryID id.DeliveryID, cmd service.StatusCommand) (*models.Delivery, error)
	Track(ctx context.Context, q service.TrackQuery) ([]models.Delivery, error)
	Transitions(ctx context.Context, deliveryID id.DeliveryID) (*service.TransitionOptions, error)
	Signature(ctx context.Context, deliveryID id.DeliveryID) ([]byte, error)
}

// Handler serves the /deliveries endpoints. Routes expect RequireAuth upstream.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a delivery handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts delivery endpoints on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.HandleTrack)
		r.With(middleware.RequireRole(h.logger, id.RoleInventoryTeam)).Post("/", h.HandleCreate)
		r.Get("/dashboard", h.HandleDashboard)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/status", h.HandleUpdateStatus)
			r.Get("/transitions", h.HandleTransitions)
			r.Get("/signature", h.HandleSignature)
		})
	})
}

// HandleDashboard handles GET /deliveries/dashboard.
// Inventory staff may pass ?agent= to view another agent's board.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	board, err := h.service.Dashboard(ctx, r.URL.Query().Get("agent"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDashboardResponse(board, requestcontext.Now(ctx)))
}

// HandleTrack handles GET /deliveries with optional search, status, priority and agent filters.
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	q := r.URL.Query()

	criteria := categorize.Criteria{Search: q.Get("search")}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		criteria.Status = status
	}
	if raw := q.Get("priority"); raw != "" {
		priority, err := models.ParsePriority(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		criteria.Priority = priority
	}

	records, err := h.service.Track(ctx, service.TrackQuery{Agent: q.Get("agent"), Criteria: criteria})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to track deliveries",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := toResponses(records, requestcontext.Now(ctx))
	httputil.WriteJSON(w, http.StatusOK, DeliveryListResponse{Deliveries: resp, Count: len(resp)})
}

// HandleCreate handles POST /deliveries.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDeliveryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Create(ctx, service.CreateCommand{
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerPhone:   req.CustomerPhone,
		Notes:           req.Notes,
		Priority:        req.parsedPriority,
		ScheduledAt:     req.parsedScheduledAt,
		Agent:           req.Agent,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create delivery",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(*d, requestcontext.Now(ctx)))
}

// HandleGet handles GET /deliveries/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deliveryID, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(ctx, deliveryID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get delivery", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*d, requestcontext.Now(ctx)))
}

// HandleUpdateStatus handles POST /deliveries/{id}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	deliveryID, ok := h.deliveryID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.UpdateStatus(ctx, deliveryID, service.StatusCommand{
		To:           string(req.parsedStatus),
		CustomerName: req.CustomerName,
		Reason:       req.Reason,
		Notes:        req.Notes,
		Signature:    req.Signature,
		Strokes:      req.Strokes,
		CanvasWidth:  req.CanvasWidth,
		CanvasHeight: req.CanvasHeight,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update delivery status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*d, requestcontext.Now(ctx)))
}

// HandleTransitions handles GET /deliveries/{id}/transitions.
func (h *Handler) HandleTransitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deliveryID, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	opts, err := h.service.Transitions(ctx, deliveryID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load transitions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opts)
}

// HandleSignature handles GET /deliveries/{id}/signature and streams the PNG.
func (h *Handler) HandleSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deliveryID, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	png, err := h.service.Signature(ctx, deliveryID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load signature", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.ErrorContext(ctx, "failed to write signature",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (h *Handler) deliveryID(w http.ResponseWriter, r *http.Request) (id.DeliveryID, bool) {
	deliveryID, err := id.ParseDeliveryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DeliveryID{}, false
	}
	return deliveryID, true
}

// writeServiceError logs client errors at warn and everything else at error.
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
