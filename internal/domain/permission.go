package domain

// PermissionTier constrains which operation classes an account may receive.
// It is enforced at the request layer; the ledger engine assumes the caller
// already holds the right to act.
type PermissionTier string

const (
	ViewOnly   PermissionTier = "view_only"
	FullAccess PermissionTier = "full_access"
	PostOnly   PermissionTier = "post_only"
)

func (p PermissionTier) Valid() bool {
	switch p {
	case ViewOnly, FullAccess, PostOnly:
		return true
	}
	return false
}

// Operation is the class of action a request performs against an account.
type Operation string

const (
	// OpView covers reading transactions and history.
	OpView Operation = "view"
	// OpPost covers applying new transactions.
	OpPost Operation = "post"
	// OpManage covers correcting or deleting committed transactions.
	OpManage Operation = "manage"
)

// capabilities is the single (tier, operation) -> allowed table. One lookup
// replaces per-tier permission classes.
var capabilities = map[PermissionTier]map[Operation]bool{
	ViewOnly: {
		OpView:   true,
		OpPost:   false,
		OpManage: false,
	},
	PostOnly: {
		OpView:   false,
		OpPost:   true,
		OpManage: false,
	},
	FullAccess: {
		OpView:   true,
		OpPost:   true,
		OpManage: true,
	},
}

// Allows reports whether the permission tier admits the operation class.
// Unknown tiers allow nothing.
func (p PermissionTier) Allows(op Operation) bool {
	return capabilities[p][op]
}
