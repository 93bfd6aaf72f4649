package handler

import (
	"time"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/service"
)

// DeliveryResponse is a delivery plus its presentation hints.
type DeliveryResponse struct {
	models.Delivery
	Display       models.StatusDisplay `json:"display"`
	PriorityLevel int                  `json:"priority_level"`
	Overdue       bool                 `json:"overdue"`
	PendingReason string               `json:"pending_reason,omitempty"`
}

type DeliveryListResponse struct {
	Deliveries []DeliveryResponse `json:"deliveries"`
	Count      int                `json:"count"`
}

type DashboardResponse struct {
	Today     []DeliveryResponse     `json:"today"`
	Pending   []DeliveryResponse     `json:"pending"`
	Delivered []DeliveryResponse     `json:"delivered"`
	Stats     service.DashboardStats `json:"stats"`
}

func toResponse(d models.Delivery, now time.Time) DeliveryResponse {
	resp := DeliveryResponse{
		Delivery:      d,
		Display:       d.Status.Display(),
		PriorityLevel: d.Priority.Level(),
		Overdue:       categorize.IsOverdue(d, now),
	}
	if reason := categorize.PendingReason(d, now); reason != categorize.ReasonNone {
		resp.PendingReason = string(reason)
	}
	return resp
}

func toResponses(records []models.Delivery, now time.Time) []DeliveryResponse {
	out := make([]DeliveryResponse, 0, len(records))
	for _, d := range records {
		out = append(out, toResponse(d, now))
	}
	return out
}

func toDashboardResponse(d *service.Dashboard, now time.Time) DashboardResponse {
	return DashboardResponse{
		Today:     toResponses(d.Today, now),
		Pending:   toResponses(d.Pending, now),
		Delivered: toResponses(d.Delivered, now),
		Stats:     d.Stats,
	}
}
