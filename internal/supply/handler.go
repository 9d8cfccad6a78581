package supply

import (
	"context"
	"fmt"
	"log"

	"hotelier/internal/models"
	"hotelier/internal/monitoring"
)

// Ledger is the slice of the stock ledger the handler depends on
type Ledger interface {
	Get(id string) (models.InventoryItem, bool)
	AdjustQuantity(ctx context.Context, id string, delta float64) (float64, error)
	ApplyRestock(ctx context.Context, id string, quantity float64, costPerUnit *float64, supplier string) (models.InventoryItem, error)
}

// Handler increases stock on delivery and decreases it when supplies
// are issued to a department.
type Handler struct {
	ledger  Ledger
	monitor *monitoring.Monitor
}

// NewHandler creates a restock/issue handler
func NewHandler(ledger Ledger, monitor *monitoring.Monitor) *Handler {
	return &Handler{ledger: ledger, monitor: monitor}
}

// Restock increments an item's quantity and stamps lastRestocked.
// costPerUnit and supplier overwrite the stored values only when
// provided; omitted fields keep their prior values.
func (h *Handler) Restock(ctx context.Context, itemID string, quantity float64, costPerUnit *float64, supplier string) (models.InventoryItem, error) {
	if itemID == "" {
		return models.InventoryItem{}, &models.ValidationError{Field: "itemId", Reason: "is required"}
	}
	if quantity < 1 {
		return models.InventoryItem{}, &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	item, err := h.ledger.ApplyRestock(ctx, itemID, quantity, costPerUnit, supplier)
	if err != nil {
		return models.InventoryItem{}, err
	}

	if h.monitor != nil {
		h.monitor.RecordRestock()
	}
	log.Printf("restocked %s: +%.2f %s (now %.2f)", item.Name, quantity, item.Unit, item.CurrentQuantity)
	return item, nil
}

// Issue decrements an item's quantity for a departmental request. The
// quantity must satisfy 1 <= quantity <= currentQuantity or the call
// fails without a write. Who issued what to whom is logged but not
// persisted; only the new quantity is durable.
func (h *Handler) Issue(ctx context.Context, itemID string, quantity float64, department, requestedBy, purpose string) (float64, error) {
	if itemID == "" {
		return 0, &models.ValidationError{Field: "itemId", Reason: "is required"}
	}
	if quantity < 1 {
		return 0, &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if department == "" {
		return 0, &models.ValidationError{Field: "department", Reason: "is required"}
	}
	if requestedBy == "" {
		return 0, &models.ValidationError{Field: "requestedBy", Reason: "is required"}
	}

	item, ok := h.ledger.Get(itemID)
	if !ok {
		return 0, &models.NotFoundError{Collection: "inventory item", ID: itemID}
	}
	if quantity > item.CurrentQuantity {
		return 0, &models.InsufficientStockError{
			ItemName:  item.Name,
			Requested: quantity,
			Available: item.CurrentQuantity,
		}
	}

	remaining, err := h.ledger.AdjustQuantity(ctx, itemID, -quantity)
	if err != nil {
		return 0, err
	}

	if h.monitor != nil {
		h.monitor.RecordIssue()
	}
	log.Printf("issued %.2f %s of %s to %s (requested by %s, purpose: %s)",
		quantity, item.Unit, item.Name, department, requestedBy, purpose)
	return remaining, nil
}

// RequestHousekeepingItems issues supplies to housekeeping and returns
// a formatted confirmation message for the requesting dashboard.
func (h *Handler) RequestHousekeepingItems(ctx context.Context, itemID string, quantity float64, roomNumber string) (string, error) {
	purpose := "general housekeeping"
	if roomNumber != "" {
		purpose = fmt.Sprintf("room %s", roomNumber)
	}

	item, ok := h.ledger.Get(itemID)
	if !ok {
		return "", &models.NotFoundError{Collection: "inventory item", ID: itemID}
	}

	remaining, err := h.Issue(ctx, itemID, quantity, "housekeeping", "housekeeping", purpose)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Issued %.0f %s of %s for %s (%.2f remaining)",
		quantity, item.Unit, item.Name, purpose, remaining), nil
}
