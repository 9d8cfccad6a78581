package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"hotelier/internal/changefeed"
	"hotelier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the record store with the same
// all-or-nothing batch semantics.
type fakeStore struct {
	mu         sync.Mutex
	items      map[string]models.InventoryItem
	failWrites bool
}

func newFakeStore(items ...models.InventoryItem) *fakeStore {
	store := &fakeStore{items: make(map[string]models.InventoryItem)}
	for _, item := range items {
		store.items[item.ID] = item
	}
	return store
}

func (f *fakeStore) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]models.InventoryItem, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeStore) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, &models.NotFoundError{Collection: "inventory item", ID: id}
	}
	return &item, nil
}

func (f *fakeStore) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return &models.PersistenceError{Op: "save item", Err: assert.AnError}
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeStore) UpdateQuantities(ctx context.Context, quantities map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return &models.PersistenceError{Op: "update quantity", Err: assert.AnError}
	}
	for id := range quantities {
		if _, ok := f.items[id]; !ok {
			return &models.NotFoundError{Collection: "inventory item", ID: id}
		}
	}
	for id, quantity := range quantities {
		item := f.items[id]
		item.CurrentQuantity = quantity
		item.UpdatedAt = time.Now()
		f.items[id] = item
	}
	return nil
}

func (f *fakeStore) quantity(id string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].CurrentQuantity
}

func towels(quantity float64) models.InventoryItem {
	return models.InventoryItem{
		ID:              "towels",
		Name:            "Bath towels",
		Category:        models.CategoryHousekeeping,
		CurrentQuantity: quantity,
		MinThreshold:    10,
		Unit:            "pc",
	}
}

func TestAdjustQuantity(t *testing.T) {
	store := newFakeStore(towels(20))
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	remaining, err := l.AdjustQuantity(context.Background(), "towels", -5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, remaining)
	assert.Equal(t, 15.0, store.quantity("towels"))

	item, ok := l.Get("towels")
	require.True(t, ok)
	assert.Equal(t, 15.0, item.CurrentQuantity)
}

func TestAdjustQuantityClampsAtZero(t *testing.T) {
	store := newFakeStore(towels(5))
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	remaining, err := l.AdjustQuantity(context.Background(), "towels", -8)
	require.NoError(t, err)
	assert.Equal(t, 0.0, remaining)
	assert.Equal(t, 0.0, store.quantity("towels"))
}

func TestAdjustQuantityUnknownItemIsNoOp(t *testing.T) {
	store := newFakeStore(towels(5))
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	remaining, err := l.AdjustQuantity(context.Background(), "ghost", -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, remaining)
	assert.Equal(t, 5.0, store.quantity("towels"))
}

func TestAdjustQuantityBatch(t *testing.T) {
	store := newFakeStore(
		towels(20),
		models.InventoryItem{ID: "soap", Name: "Soap bars", CurrentQuantity: 8, MinThreshold: 5},
	)
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	err := l.AdjustQuantityBatch(context.Background(), map[string]float64{
		"towels": -4,
		"soap":   -10,
	})
	require.NoError(t, err)
	assert.Equal(t, 16.0, store.quantity("towels"))
	assert.Equal(t, 0.0, store.quantity("soap"), "batch adjustments clamp at zero")
}

func TestAdjustQuantityBatchRollsBackOnUnknownItem(t *testing.T) {
	store := newFakeStore(towels(20))
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	err := l.AdjustQuantityBatch(context.Background(), map[string]float64{
		"towels": -4,
		"ghost":  -1,
	})
	require.Error(t, err)

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, 20.0, store.quantity("towels"), "no partial commit on failure")

	item, _ := l.Get("towels")
	assert.Equal(t, 20.0, item.CurrentQuantity, "snapshot untouched on failure")
}

func TestAdjustQuantityBatchRollsBackOnWriteFailure(t *testing.T) {
	store := newFakeStore(towels(20))
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	store.failWrites = true
	err := l.AdjustQuantityBatch(context.Background(), map[string]float64{"towels": -4})
	require.Error(t, err)

	var persistence *models.PersistenceError
	assert.ErrorAs(t, err, &persistence)

	item, _ := l.Get("towels")
	assert.Equal(t, 20.0, item.CurrentQuantity, "snapshot keeps last known good state")
}

func TestApplyRestock(t *testing.T) {
	item := towels(5)
	item.CostPerUnit = 2.5
	item.Supplier = "Linen Co"
	store := newFakeStore(item)
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	cost := 3.0
	restocked, err := l.ApplyRestock(context.Background(), "towels", 20, &cost, "Fresh Linen Ltd")
	require.NoError(t, err)
	assert.Equal(t, 25.0, restocked.CurrentQuantity)
	assert.Equal(t, 3.0, restocked.CostPerUnit)
	assert.Equal(t, "Fresh Linen Ltd", restocked.Supplier)
	require.NotNil(t, restocked.LastRestocked)
	assert.WithinDuration(t, time.Now(), *restocked.LastRestocked, time.Second)
}

func TestApplyRestockKeepsOmittedFields(t *testing.T) {
	item := towels(5)
	item.CostPerUnit = 2.5
	item.Supplier = "Linen Co"
	store := newFakeStore(item)
	l := New(store, nil, nil)
	require.NoError(t, l.Refresh(context.Background()))

	restocked, err := l.ApplyRestock(context.Background(), "towels", 20, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 25.0, restocked.CurrentQuantity)
	assert.Equal(t, 2.5, restocked.CostPerUnit, "omitted cost keeps prior value")
	assert.Equal(t, "Linen Co", restocked.Supplier, "omitted supplier keeps prior value")
}

func TestApplyRestockUnknownItemFails(t *testing.T) {
	store := newFakeStore()
	l := New(store, nil, nil)

	_, err := l.ApplyRestock(context.Background(), "ghost", 20, nil, "")
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestChangeFeedRefreshesSingleAggregate(t *testing.T) {
	store := newFakeStore(towels(20))
	bus := changefeed.NewLocalBus()
	defer bus.Close()

	l := New(store, bus, nil)
	defer l.Close()
	require.NoError(t, l.Refresh(context.Background()))

	// Another writer changes the store behind the ledger's back and
	// announces it on the change feed.
	store.mu.Lock()
	changed := store.items["towels"]
	changed.CurrentQuantity = 3
	store.items["towels"] = changed
	store.mu.Unlock()

	require.NoError(t, bus.Publish(changefeed.Event{
		Collection: changefeed.CollectionInventory,
		ItemID:     "towels",
		Kind:       changefeed.KindUpdated,
	}))

	assert.Eventually(t, func() bool {
		item, ok := l.Get("towels")
		return ok && item.CurrentQuantity == 3
	}, time.Second, 10*time.Millisecond)
}

func TestChangeFeedRemovesDeletedAggregate(t *testing.T) {
	store := newFakeStore(towels(20))
	bus := changefeed.NewLocalBus()
	defer bus.Close()

	l := New(store, bus, nil)
	defer l.Close()
	require.NoError(t, l.Refresh(context.Background()))

	require.NoError(t, bus.Publish(changefeed.Event{
		Collection: changefeed.CollectionInventory,
		ItemID:     "towels",
		Kind:       changefeed.KindDeleted,
	}))

	assert.Eventually(t, func() bool {
		_, ok := l.Get("towels")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
