package consumption

import (
	"context"
	"fmt"

	"hotelier/internal/models"
	"hotelier/internal/monitoring"
)

// Ledger is the slice of the stock ledger the engine depends on
type Ledger interface {
	Get(id string) (models.InventoryItem, bool)
	AdjustQuantityBatch(ctx context.Context, deltas map[string]float64) error
}

// ConnectionSource resolves the recipe connections for a sellable item
type ConnectionSource interface {
	ListConnections(ctx context.Context, sellableID string) ([]models.RecipeConnection, error)
}

// IngredientRequirement names one inventory item a recipe needs and how
// much of it a single production run consumes.
type IngredientRequirement struct {
	InventoryItemID string  `json:"inventoryItemId"`
	QuantityNeeded  float64 `json:"quantityNeeded"`
}

// IngredientAvailability reports the stock position of one ingredient
type IngredientAvailability struct {
	InventoryItemID string  `json:"inventoryItemId"`
	ItemName        string  `json:"itemName"`
	QuantityNeeded  float64 `json:"quantityNeeded"`
	CurrentStock    float64 `json:"currentStock"`
	Available       bool    `json:"available"`
}

// RecipeCheck aggregates the availability of every ingredient in a recipe
type RecipeCheck struct {
	CanMake      bool                     `json:"canMake"`
	Availability []IngredientAvailability `json:"availability"`
	MissingItems []string                 `json:"missingItems"`
}

// StockWarning flags an item that dropped to low or critical stock as a
// side effect of a sale deduction.
type StockWarning struct {
	ItemID    string            `json:"itemId"`
	ItemName  string            `json:"itemName"`
	Level     models.StockLevel `json:"level"`
	Remaining float64           `json:"remaining"`
}

// Engine maps sellable items and recipes to inventory items and deducts
// stock when sales or production runs occur.
type Engine struct {
	ledger      Ledger
	connections ConnectionSource
	monitor     *monitoring.Monitor
}

// NewEngine creates a consumption engine
func NewEngine(ledger Ledger, connections ConnectionSource, monitor *monitoring.Monitor) *Engine {
	return &Engine{
		ledger:      ledger,
		connections: connections,
		monitor:     monitor,
	}
}

// CheckRecipeIngredients reports, without writing, whether every listed
// ingredient is in stock. CanMake is true iff each ingredient's needed
// quantity is at or below current stock; MissingItems is exactly the
// set that fails the test. Unknown item ids count as missing.
func (e *Engine) CheckRecipeIngredients(ingredients []IngredientRequirement) RecipeCheck {
	check := RecipeCheck{CanMake: true}

	for _, ingredient := range ingredients {
		availability := IngredientAvailability{
			InventoryItemID: ingredient.InventoryItemID,
			ItemName:        ingredient.InventoryItemID,
			QuantityNeeded:  ingredient.QuantityNeeded,
		}

		if item, ok := e.ledger.Get(ingredient.InventoryItemID); ok {
			availability.ItemName = item.Name
			availability.CurrentStock = item.CurrentQuantity
			availability.Available = ingredient.QuantityNeeded <= item.CurrentQuantity
		}

		if !availability.Available {
			check.CanMake = false
			check.MissingItems = append(check.MissingItems, availability.ItemName)
		}
		check.Availability = append(check.Availability, availability)
	}
	return check
}

// DeductRecipeIngredients deducts stock for one or more production runs
// of a recipe. The availability check runs first; if any ingredient is
// short the call fails with InsufficientIngredientsError and performs no
// writes. The deductions themselves are applied as one transactional
// batch, so a store failure never leaves the recipe partially deducted.
func (e *Engine) DeductRecipeIngredients(ctx context.Context, ingredients []IngredientRequirement, multiplier float64) error {
	if multiplier <= 0 {
		return &models.ValidationError{Field: "multiplier", Reason: "must be greater than zero"}
	}
	if len(ingredients) == 0 {
		return nil
	}

	check := e.CheckRecipeIngredients(ingredients)
	if !check.CanMake {
		return &models.InsufficientIngredientsError{Missing: check.MissingItems}
	}

	deltas := make(map[string]float64, len(ingredients))
	for _, ingredient := range ingredients {
		deltas[ingredient.InventoryItemID] -= ingredient.QuantityNeeded * multiplier
	}

	if err := e.ledger.AdjustQuantityBatch(ctx, deltas); err != nil {
		return fmt.Errorf("recipe deduction failed: %w", err)
	}

	if e.monitor != nil {
		e.monitor.RecordMetric("last_recipe_deduction_items", len(deltas))
	}
	return nil
}

// DeductForSale resolves the recipe connections for a sellable item and
// deducts the connected inventory in one transactional batch. A sellable
// with no connections performs no stock mutation and is not an error.
// Items that ended up low or critical are returned as warnings.
func (e *Engine) DeductForSale(ctx context.Context, sellableID string, unitsSold float64) ([]StockWarning, error) {
	if sellableID == "" {
		return nil, &models.ValidationError{Field: "sellableId", Reason: "is required"}
	}
	if unitsSold <= 0 {
		return nil, &models.ValidationError{Field: "unitsSold", Reason: "must be greater than zero"}
	}

	connections, err := e.connections.ListConnections(ctx, sellableID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipe connections: %w", err)
	}
	if len(connections) == 0 {
		return nil, nil
	}

	deltas := make(map[string]float64, len(connections))
	for _, conn := range connections {
		deltas[conn.InventoryItemID] -= conn.QuantityUsedPerUnit * unitsSold
	}

	if err := e.ledger.AdjustQuantityBatch(ctx, deltas); err != nil {
		return nil, fmt.Errorf("sale deduction failed: %w", err)
	}

	var warnings []StockWarning
	for id := range deltas {
		item, ok := e.ledger.Get(id)
		if !ok {
			continue
		}
		if level := item.StockLevel(); level != models.LevelHealthy {
			warnings = append(warnings, StockWarning{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Level:     level,
				Remaining: item.CurrentQuantity,
			})
		}
	}

	if e.monitor != nil {
		e.monitor.RecordMetric("last_sale_sellable_id", sellableID)
	}
	return warnings, nil
}
