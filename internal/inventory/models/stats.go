package models

// Stats summarizes stock and delivery throughput for the inventory dashboard.
type Stats struct {
	TotalProducts       int              `json:"total_products"`
	AvailableProducts   int              `json:"available_products"`
	DamagedProducts     int              `json:"damaged_products"`
	ExpiringProducts    int              `json:"expiring_products"`
	PendingDeliveries   int              `json:"pending_deliveries"`
	CompletedDeliveries int              `json:"completed_deliveries"`
	ProductsByCategory  map[Category]int `json:"products_by_category"`
}
