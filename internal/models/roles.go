package models

import "time"

// Role represents a staff role on the admin dashboard
type Role string

const (
	// Staff roles
	RoleAdmin        Role = "admin"
	RoleStorekeeper  Role = "storekeeper"
	RoleManager      Role = "manager"
	RoleKitchen      Role = "kitchen"
	RoleHousekeeping Role = "housekeeping"
	RoleStaff        Role = "staff"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStorekeeper, RoleManager, RoleKitchen, RoleHousekeeping, RoleStaff:
		return true
	}
	return false
}

// AlertPriority represents the urgency tier of a role's stock alerts
type AlertPriority string

const (
	// Alert priorities
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// RolePermission describes what slice of the inventory a role sees and
// how its stock alerts are prioritized and rate limited.
type RolePermission struct {
	CanViewAll            bool
	RelevantCategories    []ItemCategory
	Priority              AlertPriority
	NotificationFrequency time.Duration
}

var rolePermissions = map[Role]RolePermission{
	RoleAdmin: {
		CanViewAll:            true,
		Priority:              PriorityHigh,
		NotificationFrequency: 15 * time.Second,
	},
	RoleStorekeeper: {
		CanViewAll:            true,
		Priority:              PriorityHigh,
		NotificationFrequency: 15 * time.Second,
	},
	RoleManager: {
		CanViewAll:            true,
		Priority:              PriorityMedium,
		NotificationFrequency: 60 * time.Second,
	},
	RoleKitchen: {
		RelevantCategories:    []ItemCategory{CategoryFood, CategoryBeverages},
		Priority:              PriorityMedium,
		NotificationFrequency: 120 * time.Second,
	},
	RoleHousekeeping: {
		RelevantCategories:    []ItemCategory{CategoryHousekeeping, CategoryAmenities},
		Priority:              PriorityMedium,
		NotificationFrequency: 120 * time.Second,
	},
	RoleStaff: {
		RelevantCategories:    []ItemCategory{CategoryAmenities, CategoryOffice},
		Priority:              PriorityLow,
		NotificationFrequency: 300 * time.Second,
	},
}

// PermissionFor returns the permission record for a role. Unknown roles
// fall back to the most restricted entry.
func PermissionFor(role Role) RolePermission {
	if perm, ok := rolePermissions[role]; ok {
		return perm
	}
	return rolePermissions[RoleStaff]
}
