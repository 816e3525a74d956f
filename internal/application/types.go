package application

import "arbor/internal/domain"

// Re-export domain types for use by adapters
type (
	Node               = domain.Node
	Property           = domain.Property
	AccessControlEntry = domain.AccessControlEntry
	Privilege          = domain.Privilege
)

const (
	PrincipalAdmin     = domain.PrincipalAdmin
	PrincipalPublic    = domain.PrincipalPublic
	PrincipalAnonymous = domain.PrincipalAnonymous
	EncryptionTag      = domain.EncryptionTag
	DefaultNodeType    = domain.DefaultNodeType
)

// Identity describes the principal driving the workspace.
type Identity struct {
	UserName      string
	UserNodeID    string
	IsAdmin       bool
	IsAnonymous   bool
	IsTestAccount bool
}

// Preferences are the user toggles that affect editing.
type Preferences struct {
	EditMode     bool
	ShowReadOnly bool
}

// CanEdit is the optimistic local edit check; the authority decides.
func (id Identity) CanEdit(prefs Preferences, node *domain.Node) bool {
	if node == nil || !prefs.EditMode {
		return false
	}
	return id.IsAdmin || id.UserName == node.EffectiveOwner()
}

// CanInsert reports whether new nodes may be added under node.
func (id Identity) CanInsert(node *domain.Node) bool {
	if id.IsAdmin {
		return true
	}
	if id.IsAnonymous || node == nil {
		return false
	}
	return node.EffectiveOwner() != domain.PrincipalAdmin
}
