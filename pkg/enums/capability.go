package enums

// Capability is a single permission resolved from a role at the auth boundary.
// Core services receive a CapabilitySet and never compare role strings.
type Capability string

const (
	CapabilityManageCatalog     Capability = "manage_catalog"
	CapabilityMoveStock         Capability = "move_stock"
	CapabilityReconcileStock    Capability = "reconcile_stock"
	CapabilityVoidLedgerEntries Capability = "void_ledger_entries"
	CapabilityManageOrders      Capability = "manage_orders"
	CapabilityApproveOrders     Capability = "approve_orders"
	CapabilityManageUsers       Capability = "manage_users"
	CapabilityViewReports       Capability = "view_reports"
)

// CapabilitySet is the resolved permission set carried with an actor.
type CapabilitySet map[Capability]struct{}

// Has reports whether the capability is present.
func (s CapabilitySet) Has(capability Capability) bool {
	_, ok := s[capability]
	return ok
}

// NewCapabilitySet builds a set from the provided capabilities.
func NewCapabilitySet(capabilities ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(capabilities))
	for _, capability := range capabilities {
		set[capability] = struct{}{}
	}
	return set
}

var roleCapabilities = map[UserRole][]Capability{
	UserRoleAdmin: {
		CapabilityManageCatalog,
		CapabilityMoveStock,
		CapabilityReconcileStock,
		CapabilityVoidLedgerEntries,
		CapabilityManageOrders,
		CapabilityApproveOrders,
		CapabilityManageUsers,
		CapabilityViewReports,
	},
	UserRoleStorekeeper: {
		CapabilityManageCatalog,
		CapabilityMoveStock,
		CapabilityReconcileStock,
		CapabilityManageOrders,
		CapabilityViewReports,
	},
	UserRoleEngineer: {
		CapabilityMoveStock,
		CapabilityManageOrders,
		CapabilityViewReports,
	},
	UserRoleCrew: {
		CapabilityViewReports,
	},
}

// CapabilitiesForRole resolves the typed capability set for a role. Unknown
// roles resolve to an empty set.
func CapabilitiesForRole(role UserRole) CapabilitySet {
	return NewCapabilitySet(roleCapabilities[role]...)
}
