package models

import "time"

// InventoryItem represents a stocked supply item tracked by the hotel
type InventoryItem struct {
	ID              string       `gorm:"primary_key" json:"id"`
	Name            string       `json:"name"`
	Category        ItemCategory `json:"category"`
	CurrentQuantity float64      `json:"currentQuantity"`
	MinThreshold    float64      `json:"minThreshold"`
	MaxThreshold    float64      `json:"maxThreshold"`
	Unit            string       `json:"unit"`
	CostPerUnit     float64      `json:"costPerUnit"`
	Supplier        string       `json:"supplier"`
	LastRestocked   *time.Time   `json:"lastRestocked,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// TableName sets the table name for InventoryItem
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// ItemCategory represents the category of an inventory item
type ItemCategory string

const (
	// Inventory categories
	CategoryFood         ItemCategory = "food"
	CategoryBeverages    ItemCategory = "beverages"
	CategoryHousekeeping ItemCategory = "housekeeping"
	CategoryMaintenance  ItemCategory = "maintenance"
	CategoryOffice       ItemCategory = "office"
	CategoryAmenities    ItemCategory = "amenities"
)

// Categories lists every valid inventory category
func Categories() []ItemCategory {
	return []ItemCategory{
		CategoryFood,
		CategoryBeverages,
		CategoryHousekeeping,
		CategoryMaintenance,
		CategoryOffice,
		CategoryAmenities,
	}
}

// Valid reports whether the category is one of the known values
func (c ItemCategory) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// StockLevel represents the health classification of an item's stock
type StockLevel string

const (
	// Stock levels
	LevelHealthy  StockLevel = "healthy"
	LevelLowStock StockLevel = "low_stock"
	LevelCritical StockLevel = "critical"
)

// StockLevel classifies the item against its minimum threshold.
// An item at exactly zero is critical; above zero but at or below the
// minimum threshold is low stock. The maximum threshold is advisory only.
func (i *InventoryItem) StockLevel() StockLevel {
	switch {
	case i.CurrentQuantity == 0:
		return LevelCritical
	case i.CurrentQuantity <= i.MinThreshold:
		return LevelLowStock
	default:
		return LevelHealthy
	}
}

// IsInCategory checks if the item belongs to a specific category
func (i *InventoryItem) IsInCategory(category ItemCategory) bool {
	return i.Category == category
}
