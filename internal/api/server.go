package api

import (
	"fmt"
	"net/http"
	"strings"

	"hotelier/internal/alerts"
	"hotelier/internal/consumption"
	"hotelier/internal/ledger"
	"hotelier/internal/models"
	"hotelier/internal/notify"
	"hotelier/internal/supply"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// Server exposes the stock core to dashboard callers
type Server struct {
	Router *gin.Engine

	ledger      *ledger.StockLedger
	consumption *consumption.Engine
	supply      *supply.Handler
	alerts      *alerts.Engine
	hub         *notify.Hub
	jwtSecret   []byte
}

// NewServer creates the API server and wires its routes
func NewServer(stockLedger *ledger.StockLedger, consumptionEngine *consumption.Engine, supplyHandler *supply.Handler, alertEngine *alerts.Engine, hub *notify.Hub, jwtSecret string) *Server {
	s := &Server{
		Router:      gin.Default(),
		ledger:      stockLedger,
		consumption: consumptionEngine,
		supply:      supplyHandler,
		alerts:      alertEngine,
		hub:         hub,
		jwtSecret:   []byte(jwtSecret),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hotelier stock API is running"})
	})

	if s.hub != nil {
		s.Router.GET("/ws", s.hub.HandleWebSocket)
	}

	v1 := s.Router.Group("/api/v1")
	v1.Use(s.roleMiddleware())
	{
		// Inventory reads
		v1.GET("/inventory", s.GetInventory)
		v1.GET("/inventory/alerts", s.GetLowStockAlerts)

		// Stock mutations
		v1.POST("/inventory/:id/restock", s.Restock)
		v1.POST("/inventory/:id/issue", s.Issue)
		v1.POST("/sales/deduct", s.DeductForSale)
		v1.POST("/recipes/check", s.CheckRecipeIngredients)
		v1.POST("/recipes/deduct", s.DeductRecipeIngredients)
		v1.POST("/housekeeping/requests", s.RequestHousekeepingItems)

		// Alert dismissal state
		v1.POST("/alerts/:id/dismiss", s.DismissAlert)
		v1.DELETE("/alerts/dismissed", s.ClearDismissed)
		v1.GET("/alerts/preferences", s.GetPreferences)
		v1.PUT("/alerts/preferences", s.SetPreferences)
	}
}

// roleMiddleware resolves the caller's staff role from a bearer token
// role claim. Authentication proper lives elsewhere; a missing or
// unverifiable token simply degrades the caller to the staff role.
func (s *Server) roleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.RoleStaff

		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && len(s.jwtSecret) > 0 {
			raw := strings.TrimPrefix(auth, "Bearer ")
			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return s.jwtSecret, nil
			})
			if err == nil && token.Valid {
				if claims, ok := token.Claims.(jwt.MapClaims); ok {
					if claimed, ok := claims["role"].(string); ok && models.Role(claimed).Valid() {
						role = models.Role(claimed)
					}
				}
			}
		}

		c.Set("role", role)
		c.Next()
	}
}

// callerRole returns the role resolved by roleMiddleware
func callerRole(c *gin.Context) models.Role {
	if value, ok := c.Get("role"); ok {
		if role, ok := value.(models.Role); ok {
			return role
		}
	}
	return models.RoleStaff
}
