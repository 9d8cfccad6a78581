package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"hotelier/internal/alerts"
	"hotelier/internal/consumption"
	"hotelier/internal/models"

	"github.com/gin-gonic/gin"
)

// RestockRequest is the payload for a restock call. CostPerUnit and
// Supplier are optional; omitted fields leave the stored values alone.
type RestockRequest struct {
	Quantity    float64  `json:"quantity"`
	CostPerUnit *float64 `json:"costPerUnit,omitempty"`
	Supplier    string   `json:"supplier,omitempty"`
}

// IssueRequest is the payload for issuing supplies to a department
type IssueRequest struct {
	Quantity    float64 `json:"quantity"`
	Department  string  `json:"department"`
	RequestedBy string  `json:"requestedBy"`
	Purpose     string  `json:"purpose"`
}

// SaleDeductionRequest records a sale of a sellable item
type SaleDeductionRequest struct {
	SellableID string  `json:"sellableId"`
	UnitsSold  float64 `json:"unitsSold"`
}

// RecipeRequest carries the ingredient list for check and deduct calls
type RecipeRequest struct {
	Ingredients []consumption.IngredientRequirement `json:"ingredients"`
	Multiplier  float64                             `json:"multiplier,omitempty"`
}

// HousekeepingRequest is the payload for a housekeeping supply request
type HousekeepingRequest struct {
	ItemID     string  `json:"itemId"`
	Quantity   float64 `json:"quantity"`
	RoomNumber string  `json:"roomNumber,omitempty"`
}

// GetInventory returns the current inventory snapshot
func (s *Server) GetInventory(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.GetAll())
}

// GetLowStockAlerts returns items at or below their minimum threshold,
// optionally filtered by a comma-separated categories query parameter.
func (s *Server) GetLowStockAlerts(c *gin.Context) {
	var categories []models.ItemCategory
	if raw := c.Query("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			category := models.ItemCategory(strings.TrimSpace(part))
			if !category.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + string(category)})
				return
			}
			categories = append(categories, category)
		}
	}

	items := s.alerts.LowStockItems(categories)
	if items == nil {
		items = []models.InventoryItem{}
	}
	c.JSON(http.StatusOK, items)
}

// Restock increases an item's stock and updates its supply metadata
func (s *Server) Restock(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.supply.Restock(c.Request.Context(), c.Param("id"), req.Quantity, req.CostPerUnit, req.Supplier)
	if err != nil {
		writeError(c, err)
		return
	}

	s.alerts.CheckAndNotify(callerRole(c))
	c.JSON(http.StatusOK, item)
}

// Issue decrements an item's stock for a departmental request
func (s *Server) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	remaining, err := s.supply.Issue(c.Request.Context(), c.Param("id"), req.Quantity,
		req.Department, req.RequestedBy, req.Purpose)
	if err != nil {
		writeError(c, err)
		return
	}

	s.alerts.CheckAndNotify(callerRole(c))
	c.JSON(http.StatusOK, gin.H{"remaining": remaining})
}

// DeductForSale deducts connected inventory for a recorded sale
func (s *Server) DeductForSale(c *gin.Context) {
	var req SaleDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	warnings, err := s.consumption.DeductForSale(c.Request.Context(), req.SellableID, req.UnitsSold)
	if err != nil {
		writeError(c, err)
		return
	}

	s.alerts.CheckAndNotify(callerRole(c))
	if warnings == nil {
		warnings = []consumption.StockWarning{}
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

// CheckRecipeIngredients reports ingredient availability without writing
func (s *Server) CheckRecipeIngredients(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.consumption.CheckRecipeIngredients(req.Ingredients))
}

// DeductRecipeIngredients deducts stock for a recipe production run
func (s *Server) DeductRecipeIngredients(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	multiplier := req.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}

	if err := s.consumption.DeductRecipeIngredients(c.Request.Context(), req.Ingredients, multiplier); err != nil {
		writeError(c, err)
		return
	}

	s.alerts.CheckAndNotify(callerRole(c))
	c.JSON(http.StatusOK, gin.H{"deducted": true})
}

// RequestHousekeepingItems issues supplies to housekeeping and returns
// a confirmation message.
func (s *Server) RequestHousekeepingItems(c *gin.Context) {
	var req HousekeepingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := s.supply.RequestHousekeepingItems(c.Request.Context(), req.ItemID, req.Quantity, req.RoomNumber)
	if err != nil {
		writeError(c, err)
		return
	}

	s.alerts.CheckAndNotify(callerRole(c))
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// DismissAlert suppresses repeat notifications for one item
func (s *Server) DismissAlert(c *gin.Context) {
	s.alerts.DismissAlert(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Alert dismissed"})
}

// ClearDismissed clears the session's dismissed set
func (s *Server) ClearDismissed(c *gin.Context) {
	s.alerts.ClearAllDismissed()
	c.JSON(http.StatusOK, gin.H{"message": "Dismissed alerts cleared"})
}

// GetPreferences returns the notification preferences
func (s *Server) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, s.alerts.Preferences())
}

// SetPreferences replaces the notification preferences
func (s *Server) SetPreferences(c *gin.Context) {
	var prefs alerts.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.alerts.SetPreferences(prefs)
	c.JSON(http.StatusOK, s.alerts.Preferences())
}

// writeError maps domain errors onto HTTP statuses
func writeError(c *gin.Context, err error) {
	var (
		validation              *models.ValidationError
		notFound                *models.NotFoundError
		insufficientStock       *models.InsufficientStockError
		insufficientIngredients *models.InsufficientIngredientsError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficientStock.Error(),
			"requested": insufficientStock.Requested,
			"available": insufficientStock.Available,
		})
	case errors.As(err, &insufficientIngredients):
		c.JSON(http.StatusConflict, gin.H{
			"error":        insufficientIngredients.Error(),
			"missingItems": insufficientIngredients.Missing,
		})
	default:
		log.Printf("api: request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed, please retry"})
	}
}
