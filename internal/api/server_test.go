package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotelier/internal/alerts"
	"hotelier/internal/consumption"
	"hotelier/internal/ledger"
	"hotelier/internal/models"
	"hotelier/internal/supply"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore backs the ledger and recipe lookups for handler tests
type memoryStore struct {
	items       map[string]models.InventoryItem
	connections map[string][]models.RecipeConnection
}

func (m *memoryStore) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *memoryStore) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, &models.NotFoundError{Collection: "inventory item", ID: id}
	}
	return &item, nil
}

func (m *memoryStore) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	m.items[item.ID] = *item
	return nil
}

func (m *memoryStore) UpdateQuantities(ctx context.Context, quantities map[string]float64) error {
	for id := range quantities {
		if _, ok := m.items[id]; !ok {
			return &models.NotFoundError{Collection: "inventory item", ID: id}
		}
	}
	for id, quantity := range quantities {
		item := m.items[id]
		item.CurrentQuantity = quantity
		m.items[id] = item
	}
	return nil
}

func (m *memoryStore) ListConnections(ctx context.Context, sellableID string) ([]models.RecipeConnection, error) {
	return m.connections[sellableID], nil
}

func newTestServer(t *testing.T) (*Server, *memoryStore) {
	t.Helper()

	store := &memoryStore{
		items: map[string]models.InventoryItem{
			"rice": {ID: "rice", Name: "Rice", Category: models.CategoryFood, CurrentQuantity: 25, MinThreshold: 5, Unit: "kg"},
			"soap": {ID: "soap", Name: "Guest soap", Category: models.CategoryAmenities, CurrentQuantity: 4, MinThreshold: 10, Unit: "pc"},
		},
		connections: map[string][]models.RecipeConnection{
			"fried-rice": {
				{ID: "c1", SellableID: "fried-rice", InventoryItemID: "rice", QuantityUsedPerUnit: 0.2},
			},
		},
	}

	stockLedger := ledger.New(store, nil, nil)
	require.NoError(t, stockLedger.Refresh(context.Background()))

	alertEngine := alerts.NewEngine(stockLedger, alerts.NoopSink{}, nil)
	consumptionEngine := consumption.NewEngine(stockLedger, store, nil)
	supplyHandler := supply.NewHandler(stockLedger, nil)

	return NewServer(stockLedger, consumptionEngine, supplyHandler, alertEngine, nil, "test-secret"), store
}

func doJSON(t *testing.T, server *Server, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	server.Router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetInventory(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/api/v1/inventory", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var items []models.InventoryItem
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestGetLowStockAlerts(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/api/v1/inventory/alerts", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var items []models.InventoryItem
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "soap", items[0].ID)
}

func TestGetLowStockAlertsCategoryFilter(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/api/v1/inventory/alerts?categories=food", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var items []models.InventoryItem
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &items))
	assert.Empty(t, items)

	recorder = doJSON(t, server, http.MethodGet, "/api/v1/inventory/alerts?categories=uniforms", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRestockEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/inventory/soap/restock", RestockRequest{Quantity: 20})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 24.0, store.items["soap"].CurrentQuantity)
	assert.NotNil(t, store.items["soap"].LastRestocked)
}

func TestRestockEndpointValidation(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/inventory/soap/restock", RestockRequest{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRestockEndpointUnknownItem(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/inventory/ghost/restock", RestockRequest{Quantity: 5})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestIssueEndpointInsufficientStock(t *testing.T) {
	server, store := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/inventory/soap/issue", IssueRequest{
		Quantity:    10,
		Department:  "housekeeping",
		RequestedBy: "maria",
	})
	require.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, 4.0, store.items["soap"].CurrentQuantity, "failed issue performs no write")
}

func TestDeductForSaleEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/sales/deduct", SaleDeductionRequest{
		SellableID: "fried-rice",
		UnitsSold:  10,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.InDelta(t, 23.0, store.items["rice"].CurrentQuantity, 1e-9)
}

func TestCheckRecipeEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/recipes/check", RecipeRequest{
		Ingredients: []consumption.IngredientRequirement{
			{InventoryItemID: "rice", QuantityNeeded: 30},
		},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var check consumption.RecipeCheck
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &check))
	assert.False(t, check.CanMake)
	assert.Equal(t, []string{"Rice"}, check.MissingItems)
}

func TestDeductRecipeEndpointConflict(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/recipes/deduct", RecipeRequest{
		Ingredients: []consumption.IngredientRequirement{
			{InventoryItemID: "rice", QuantityNeeded: 30},
		},
	})
	require.Equal(t, http.StatusConflict, recorder.Code)

	var response struct {
		MissingItems []string `json:"missingItems"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, []string{"Rice"}, response.MissingItems)
}

func TestHousekeepingRequestEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/housekeeping/requests", HousekeepingRequest{
		ItemID:     "soap",
		Quantity:   2,
		RoomNumber: "214",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Contains(t, response.Message, "room 214")
}

func TestDismissEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPost, "/api/v1/alerts/rice/dismiss", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, server, http.MethodDelete, "/api/v1/alerts/dismissed", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestPreferencesEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodPut, "/api/v1/alerts/preferences", alerts.Preferences{
		ToastEnabled: true,
		CriticalOnly: true,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, server, http.MethodGet, "/api/v1/alerts/preferences", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var prefs alerts.Preferences
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &prefs))
	assert.True(t, prefs.CriticalOnly)
	assert.False(t, prefs.SoundEnabled)
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
