package ledger

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"hotelier/internal/changefeed"
	"hotelier/internal/models"
	"hotelier/internal/monitoring"
)

// Store is the slice of the record store the ledger depends on
type Store interface {
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*models.InventoryItem, error)
	SaveItem(ctx context.Context, item *models.InventoryItem) error
	UpdateQuantities(ctx context.Context, quantities map[string]float64) error
}

// StockLedger is the authoritative in-memory view of inventory items,
// synchronized from the record store. It is the single write choke
// point: every quantity mutation in the core goes through it.
type StockLedger struct {
	store   Store
	bus     changefeed.Bus
	monitor *monitoring.Monitor

	mu    sync.RWMutex
	items map[string]models.InventoryItem

	unsubscribe func()
}

// New creates a stock ledger over the given store. When a change bus is
// provided the ledger subscribes to it and re-queries only the changed
// aggregate on each event. Call Refresh before first use.
func New(store Store, bus changefeed.Bus, monitor *monitoring.Monitor) *StockLedger {
	l := &StockLedger{
		store:   store,
		bus:     bus,
		monitor: monitor,
		items:   make(map[string]models.InventoryItem),
	}
	if bus != nil {
		l.unsubscribe = bus.Subscribe(l.handleEvent)
	}
	return l
}

// Refresh replaces the full snapshot from the record store. Used at
// session start and as a recovery path; steady-state synchronization
// goes through single-aggregate refreshes driven by the change feed.
func (l *StockLedger) Refresh(ctx context.Context) error {
	items, err := l.store.ListItems(ctx)
	if err != nil {
		return err
	}

	snapshot := make(map[string]models.InventoryItem, len(items))
	for _, item := range items {
		snapshot[item.ID] = item
	}

	l.mu.Lock()
	l.items = snapshot
	l.mu.Unlock()
	return nil
}

// GetAll returns a copy of the current snapshot
func (l *StockLedger) GetAll() []models.InventoryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]models.InventoryItem, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, item)
	}
	return items
}

// Get returns a single item from the snapshot
func (l *StockLedger) Get(id string) (models.InventoryItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	item, ok := l.items[id]
	return item, ok
}

// AdjustQuantity applies currentQuantity = max(0, currentQuantity + delta),
// persists the new value, and refreshes the snapshot entry. An unknown id
// logs a warning and is a no-op; callers needing strict existence
// guarantees must check first. Returns the quantity after the write.
func (l *StockLedger) AdjustQuantity(ctx context.Context, id string, delta float64) (float64, error) {
	item, err := l.store.GetItem(ctx, id)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			log.Printf("stock ledger: ignoring adjustment for unknown item %s", id)
			return 0, nil
		}
		return 0, err
	}

	next := item.CurrentQuantity + delta
	if next < 0 {
		next = 0
	}

	if err := l.store.UpdateQuantities(ctx, map[string]float64{id: next}); err != nil {
		return 0, err
	}

	item.CurrentQuantity = next
	item.UpdatedAt = time.Now()
	l.mu.Lock()
	l.items[id] = *item
	l.mu.Unlock()

	if l.monitor != nil {
		l.monitor.RecordAdjustment(delta)
	}
	l.publish(id, changefeed.KindUpdated)
	return next, nil
}

// AdjustQuantityBatch applies a set of deltas inside a single store
// transaction. Each target quantity is clamped at zero. Any failure,
// including an unknown id, rolls the entire batch back so multi-item
// operations never commit partially.
func (l *StockLedger) AdjustQuantityBatch(ctx context.Context, deltas map[string]float64) error {
	if len(deltas) == 0 {
		return nil
	}

	targets := make(map[string]float64, len(deltas))
	updated := make(map[string]models.InventoryItem, len(deltas))
	now := time.Now()

	for id, delta := range deltas {
		item, err := l.store.GetItem(ctx, id)
		if err != nil {
			return err
		}
		next := item.CurrentQuantity + delta
		if next < 0 {
			next = 0
		}
		targets[id] = next
		item.CurrentQuantity = next
		item.UpdatedAt = now
		updated[id] = *item
	}

	if err := l.store.UpdateQuantities(ctx, targets); err != nil {
		return err
	}

	l.mu.Lock()
	for id, item := range updated {
		l.items[id] = item
	}
	l.mu.Unlock()

	for id, delta := range deltas {
		if l.monitor != nil {
			l.monitor.RecordAdjustment(delta)
		}
		l.publish(id, changefeed.KindUpdated)
	}
	return nil
}

// ApplyRestock increments an item's quantity, stamps lastRestocked, and
// overwrites cost/supplier only when provided. Unlike AdjustQuantity the
// item must exist; a missing id surfaces as NotFoundError.
func (l *StockLedger) ApplyRestock(ctx context.Context, id string, quantity float64, costPerUnit *float64, supplier string) (models.InventoryItem, error) {
	item, err := l.store.GetItem(ctx, id)
	if err != nil {
		return models.InventoryItem{}, err
	}

	now := time.Now()
	item.CurrentQuantity += quantity
	item.LastRestocked = &now
	item.UpdatedAt = now
	if costPerUnit != nil && *costPerUnit > 0 {
		item.CostPerUnit = *costPerUnit
	}
	if supplier != "" {
		item.Supplier = supplier
	}

	if err := l.store.SaveItem(ctx, item); err != nil {
		return models.InventoryItem{}, err
	}

	l.mu.Lock()
	l.items[id] = *item
	l.mu.Unlock()

	if l.monitor != nil {
		l.monitor.RecordAdjustment(quantity)
	}
	l.publish(id, changefeed.KindUpdated)
	return *item, nil
}

// Close cancels the change feed subscription
func (l *StockLedger) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

func (l *StockLedger) publish(id string, kind changefeed.EventKind) {
	if l.bus == nil {
		return
	}
	event := changefeed.Event{
		Collection: changefeed.CollectionInventory,
		ItemID:     id,
		Kind:       kind,
	}
	if err := l.bus.Publish(event); err != nil {
		log.Printf("stock ledger: failed to publish change event: %v", err)
	}
}

// handleEvent refreshes the single changed aggregate named by the event
func (l *StockLedger) handleEvent(event changefeed.Event) {
	if event.Collection != changefeed.CollectionInventory {
		return
	}

	switch event.Kind {
	case changefeed.KindDeleted:
		l.mu.Lock()
		delete(l.items, event.ItemID)
		l.mu.Unlock()
	default:
		l.refreshItem(event.ItemID)
	}
}

func (l *StockLedger) refreshItem(id string) {
	item, err := l.store.GetItem(context.Background(), id)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			l.mu.Lock()
			delete(l.items, id)
			l.mu.Unlock()
			return
		}
		log.Printf("stock ledger: failed to refresh item %s: %v", id, err)
		return
	}

	l.mu.Lock()
	l.items[id] = *item
	l.mu.Unlock()
}
