// Package store persists products and their movement ledger. Product writes are
// compare-and-set on the version the caller last read, and every stock change is
// stored together with its movement.
package store

import "dlvery/internal/inventory/models"

// Query selects products. Zero fields do not constrain the result.
type Query struct {
	AvailableOnly bool
	Category      models.Category
}

func (q Query) matches(p *models.Product) bool {
	if q.AvailableOnly && !p.Available() {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	return true
}
