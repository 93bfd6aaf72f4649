// Package handler serves the /inventory endpoints for inventory staff.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "dlvery/internal/auth/models"
	"dlvery/internal/inventory/models"
	"dlvery/internal/inventory/service"
	"dlvery/internal/platform/middleware"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/httputil"
	"dlvery/pkg/requestcontext"
)

// Service defines the inventory operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Product, error)
	Get(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, q service.ListQuery) ([]models.Product, error)
	Update(ctx context.Context, sku string, cmd service.UpdateCommand) (*models.Product, error)
	Delete(ctx context.Context, sku string) error
	RecordMovement(ctx context.Context, sku string, cmd service.MovementCommand) (*models.Movement, error)
	Movements(ctx context.Context, sku string) ([]models.Movement, error)
	SKUs(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Agents(ctx context.Context) ([]authmodels.AgentOption, error)
}

// Handler serves inventory endpoints. Routes expect RequireAuth upstream.
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

// Register mounts the inventory endpoints, restricted to inventory staff.
func (h *Handler) Register(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, id.RoleInventoryTeam))
		r.Get("/stats", h.HandleStats)
		r.Get("/skus", h.HandleSKUs)
		r.Get("/agents", h.HandleAgents)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.HandleList)
			r.Post("/", h.HandleCreate)
			r.Route("/{sku}", func(r chi.Router) {
				r.Get("/", h.HandleGet)
				r.Put("/", h.HandleUpdate)
				r.Delete("/", h.HandleDelete)
				r.Get("/movements", h.HandleMovements)
				r.Post("/movements", h.HandleRecordMovement)
			})
		})
	})
}

type productListResponse struct {
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
}

// HandleList handles GET /inventory/products with optional available and category filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := service.ListQuery{AvailableOnly: q.Get("available") == "true"}
	if raw := q.Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		query.Category = category
	}

	products, err := h.service.List(ctx, query)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list products", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, productListResponse{Products: products, Count: len(products)})
}

// HandleCreate handles POST /inventory/products. The SKU is generated from the category.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ProductRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.Quantity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "quantity is required"))
		return
	}
	p, err := h.service.Create(ctx, service.CreateCommand{Details: req.details, Quantity: *req.Quantity})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /inventory/products/{sku}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.service.Get(ctx, chi.URLParam(r, "sku"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PUT /inventory/products/{sku}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ProductRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, chi.URLParam(r, "sku"), service.UpdateCommand{
		Details:  req.details,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /inventory/products/{sku}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, chi.URLParam(r, "sku")); err != nil {
		h.writeServiceError(ctx, w, "failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordMovement handles POST /inventory/products/{sku}/movements.
func (h *Handler) HandleRecordMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[MovementRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	m, err := h.service.RecordMovement(ctx, chi.URLParam(r, "sku"), service.MovementCommand{
		Type:      req.parsedType,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record movement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

// HandleMovements handles GET /inventory/products/{sku}/movements.
func (h *Handler) HandleMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	history, err := h.service.Movements(ctx, chi.URLParam(r, "sku"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load movements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, history)
}

// HandleSKUs handles GET /inventory/skus.
func (h *Handler) HandleSKUs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skus, err := h.service.SKUs(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list skus", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, skus)
}

// HandleStats handles GET /inventory/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to build inventory stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleAgents handles GET /inventory/agents.
func (h *Handler) HandleAgents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agents, err := h.service.Agents(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list agents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agents)
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
