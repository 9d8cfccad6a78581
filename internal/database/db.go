package database

import (
	"context"
	"time"

	"hotelier/internal/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is the persistent record store backing the stock ledger. One
// instance is constructed per session and injected into every component
// that needs durable reads or writes.
type Store struct {
	db *gorm.DB
}

// Open connects to the record store and migrates the inventory schema.
// Supported dialects are "sqlite3" and "postgres".
func Open(dialect, dsn string) (*Store, error) {
	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, &models.PersistenceError{Op: "open", Err: err}
	}

	db.AutoMigrate(
		&models.InventoryItem{},
		&models.RecipeConnection{},
	)
	if err := db.Error; err != nil {
		db.Close()
		return nil, &models.PersistenceError{Op: "migrate", Err: err}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ListItems returns every inventory item
func (s *Store) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.Find(&items).Error; err != nil {
		return nil, &models.PersistenceError{Op: "list items", Err: err}
	}
	return items, nil
}

// GetItem returns a single inventory item by id
func (s *Store) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, &models.NotFoundError{Collection: "inventory item", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get item", Err: err}
	}
	return &item, nil
}

// CreateItem inserts a new inventory item, assigning an id when absent
func (s *Store) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.UpdatedAt = time.Now()
	if err := s.db.Create(item).Error; err != nil {
		return &models.PersistenceError{Op: "create item", Err: err}
	}
	return nil
}

// SaveItem persists the full state of an existing inventory item
func (s *Store) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	if err := s.db.Save(item).Error; err != nil {
		return &models.PersistenceError{Op: "save item", Err: err}
	}
	return nil
}

// UpdateQuantities writes absolute quantities for a set of items inside
// a single transaction. Either every update commits or none does; an
// unknown id rolls the whole batch back.
func (s *Store) UpdateQuantities(ctx context.Context, quantities map[string]float64) error {
	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		return &models.PersistenceError{Op: "begin quantity update", Err: err}
	}

	now := time.Now()
	for id, quantity := range quantities {
		result := tx.Model(&models.InventoryItem{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"current_quantity": quantity,
				"updated_at":       now,
			})
		if result.Error != nil {
			tx.Rollback()
			return &models.PersistenceError{Op: "update quantity", Err: result.Error}
		}
		if result.RowsAffected == 0 {
			tx.Rollback()
			return &models.NotFoundError{Collection: "inventory item", ID: id}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return &models.PersistenceError{Op: "commit quantity update", Err: err}
	}
	return nil
}

// ListConnections returns every recipe connection for a sellable item
func (s *Store) ListConnections(ctx context.Context, sellableID string) ([]models.RecipeConnection, error) {
	var connections []models.RecipeConnection
	if err := s.db.Where("sellable_id = ?", sellableID).Find(&connections).Error; err != nil {
		return nil, &models.PersistenceError{Op: "list connections", Err: err}
	}
	return connections, nil
}

// CreateConnection inserts a new recipe connection after validation
func (s *Store) CreateConnection(ctx context.Context, conn *models.RecipeConnection) error {
	if err := models.ValidateRecipeConnection(conn); err != nil {
		return &models.ValidationError{Field: "recipe connection", Reason: err.Error()}
	}
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	if err := s.db.Create(conn).Error; err != nil {
		return &models.PersistenceError{Op: "create connection", Err: err}
	}
	return nil
}
