package alerts

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"hotelier/internal/models"
	"hotelier/internal/monitoring"
)

// Ledger is the slice of the stock ledger the engine depends on
type Ledger interface {
	GetAll() []models.InventoryItem
}

// Preferences are the user-toggleable notification switches
type Preferences struct {
	SoundEnabled bool `json:"soundEnabled"`
	ToastEnabled bool `json:"toastEnabled"`
	PopupEnabled bool `json:"popupEnabled"`
	CriticalOnly bool `json:"criticalOnly"`
}

// DefaultPreferences enables every channel
func DefaultPreferences() Preferences {
	return Preferences{SoundEnabled: true, ToastEnabled: true, PopupEnabled: true}
}

// CriticalItems partitions the relevant inventory into out-of-stock and
// low-stock sets, with dismissed items excluded from both.
type CriticalItems struct {
	Critical []models.InventoryItem `json:"critical"`
	LowStock []models.InventoryItem `json:"lowStock"`
}

// Engine evaluates stock levels against thresholds, filters by caller
// role, rate-limits, and dispatches notifications to a sink.
//
// Dismissal state is session scoped and lost when the engine goes away;
// nothing downstream may assume it is durable.
type Engine struct {
	ledger  Ledger
	sink    NotificationSink
	monitor *monitoring.Monitor

	mu        sync.Mutex
	prefs     Preferences
	dismissed map[string]struct{}
	lastCheck time.Time

	now func() time.Time
}

// NewEngine creates an alert engine dispatching to the given sink
func NewEngine(ledger Ledger, sink NotificationSink, monitor *monitoring.Monitor) *Engine {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Engine{
		ledger:    ledger,
		sink:      sink,
		monitor:   monitor,
		prefs:     DefaultPreferences(),
		dismissed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// SetPreferences replaces the notification preferences
func (e *Engine) SetPreferences(prefs Preferences) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prefs = prefs
}

// Preferences returns the current notification preferences
func (e *Engine) Preferences() Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

// GetRelevantInventory returns the slice of the inventory a role may
// see: everything for canViewAll roles, the role's relevant categories
// otherwise, or nothing when no categories are configured.
func (e *Engine) GetRelevantInventory(role models.Role) []models.InventoryItem {
	perm := models.PermissionFor(role)
	items := e.ledger.GetAll()
	if perm.CanViewAll {
		return items
	}
	if len(perm.RelevantCategories) == 0 {
		return nil
	}

	relevant := make(map[models.ItemCategory]struct{}, len(perm.RelevantCategories))
	for _, category := range perm.RelevantCategories {
		relevant[category] = struct{}{}
	}

	var filtered []models.InventoryItem
	for _, item := range items {
		if _, ok := relevant[item.Category]; ok {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// GetCriticalItems partitions the role's relevant inventory into
// critical and low-stock sets, excluding dismissed items.
func (e *Engine) GetCriticalItems(role models.Role) CriticalItems {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criticalItems(role)
}

// criticalItems expects e.mu to be held
func (e *Engine) criticalItems(role models.Role) CriticalItems {
	var result CriticalItems
	for _, item := range e.GetRelevantInventory(role) {
		if _, dismissed := e.dismissed[item.ID]; dismissed {
			continue
		}
		switch item.StockLevel() {
		case models.LevelCritical:
			result.Critical = append(result.Critical, item)
		case models.LevelLowStock:
			result.LowStock = append(result.LowStock, item)
		}
	}
	return result
}

// LowStockItems returns every item at or below its minimum threshold,
// optionally restricted to a set of categories. Dismissals do not apply
// here; this is the pull-based dashboard listing, not a notification.
func (e *Engine) LowStockItems(categories []models.ItemCategory) []models.InventoryItem {
	var filter map[models.ItemCategory]struct{}
	if len(categories) > 0 {
		filter = make(map[models.ItemCategory]struct{}, len(categories))
		for _, category := range categories {
			filter[category] = struct{}{}
		}
	}

	var flagged []models.InventoryItem
	for _, item := range e.ledger.GetAll() {
		if item.StockLevel() == models.LevelHealthy {
			continue
		}
		if filter != nil {
			if _, ok := filter[item.Category]; !ok {
				continue
			}
		}
		flagged = append(flagged, item)
	}
	return flagged
}

// CheckAndNotify runs one rate-limited evaluation for a role. Calls
// arriving inside the role's notification frequency window return
// without side effects, so rapid successive ledger changes collapse
// into a single notification cycle. Returns true when a notification
// was dispatched.
func (e *Engine) CheckAndNotify(role models.Role) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	perm := models.PermissionFor(role)
	now := e.now()
	if !e.lastCheck.IsZero() && now.Sub(e.lastCheck) < perm.NotificationFrequency {
		return false
	}
	// The gate is purely time based: the timestamp advances whether or
	// not anything fires below.
	e.lastCheck = now

	items := e.criticalItems(role)
	if len(items.Critical) == 0 && len(items.LowStock) == 0 {
		return false
	}

	notification, ok := e.buildNotification(perm.Priority, items)
	if !ok {
		return false
	}
	notification.CreatedAt = now

	if err := e.sink.Notify(notification); err != nil {
		log.Printf("alert engine: failed to dispatch notification: %v", err)
		return false
	}
	if e.monitor != nil {
		e.monitor.RecordAlert(string(notification.Severity))
	}
	return true
}

// buildNotification expects e.mu to be held
func (e *Engine) buildNotification(priority models.AlertPriority, items CriticalItems) (Notification, bool) {
	var (
		severity  Severity
		title     string
		message   string
		withSound bool
	)

	switch priority {
	case models.PriorityHigh:
		if len(items.Critical) > 0 {
			severity = SeverityUrgent
			title = "Out of stock"
			message = fmt.Sprintf("%s completely out of stock", itemNames(items.Critical))
		} else {
			severity = SeverityWarning
			title = "Low stock"
			message = fmt.Sprintf("%s running low", itemNames(items.LowStock))
		}
		withSound = true
	case models.PriorityMedium:
		if len(items.Critical) > 0 {
			severity = SeverityWarning
			title = "Out of stock"
			message = fmt.Sprintf("%s out of stock", itemNames(items.Critical))
		} else {
			if e.prefs.CriticalOnly {
				return Notification{}, false
			}
			severity = SeverityInfo
			title = "Low stock"
			message = fmt.Sprintf("%s running low", itemNames(items.LowStock))
		}
	default:
		if len(items.Critical) == 0 {
			return Notification{}, false
		}
		severity = SeverityInfo
		title = "Stock notice"
		message = fmt.Sprintf("%s out of stock, please notify the storekeeper", itemNames(items.Critical))
	}

	var channels []Channel
	if withSound && e.prefs.SoundEnabled {
		channels = append(channels, ChannelSound)
	}
	if e.prefs.ToastEnabled {
		channels = append(channels, ChannelToast)
	}
	if severity == SeverityUrgent && e.prefs.PopupEnabled {
		channels = append(channels, ChannelPopup)
	}
	if len(channels) == 0 {
		return Notification{}, false
	}

	notification := Notification{
		Severity: severity,
		Title:    title,
		Message:  message,
		Channels: channels,
	}
	if e.prefs.SoundEnabled && withSound {
		notification.Tone = ToneFor(severity)
	}
	return notification, true
}

// DismissAlert suppresses repeat notifications for an item until the
// dismissal set is cleared. Not persisted across sessions.
func (e *Engine) DismissAlert(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dismissed[itemID] = struct{}{}
}

// ClearAllDismissed makes every dismissed item eligible again on the
// next evaluation.
func (e *Engine) ClearAllDismissed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dismissed = make(map[string]struct{})
}

func itemNames(items []models.InventoryItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}
