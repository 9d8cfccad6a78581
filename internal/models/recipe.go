package models

import "fmt"

// RecipeConnection maps a sellable item (menu dish or service) to one
// inventory item it consumes, with the quantity used per unit sold.
// A sellable may map to zero, one, or many inventory items.
type RecipeConnection struct {
	ID                  string  `gorm:"primary_key" json:"id"`
	SellableID          string  `gorm:"index" json:"sellableId"`
	InventoryItemID     string  `json:"inventoryItemId"`
	QuantityUsedPerUnit float64 `json:"quantityUsedPerUnit"`
}

// TableName sets the table name for RecipeConnection
func (RecipeConnection) TableName() string {
	return "recipe_connections"
}

// ValidateRecipeConnection validates a recipe connection
func ValidateRecipeConnection(conn *RecipeConnection) error {
	if conn.SellableID == "" {
		return fmt.Errorf("recipe connection sellable id is required")
	}
	if conn.InventoryItemID == "" {
		return fmt.Errorf("recipe connection inventory item id is required")
	}
	if conn.QuantityUsedPerUnit < 0 {
		return fmt.Errorf("recipe connection quantity used per unit must not be negative")
	}
	return nil
}
