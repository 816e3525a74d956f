package domain

// Privilege names a grant in an access-control entry.
type Privilege string

const (
	PrivilegeRead  Privilege = "rd"
	PrivilegeWrite Privilege = "wr"
)

// AccessControlEntry grants privileges on one node to one principal.
type AccessControlEntry struct {
	PrincipalNodeID string      `json:"principalNodeId"`
	PrincipalName   string      `json:"principalName,omitempty"`
	PublicKey       string      `json:"publicKey,omitempty"`
	Privileges      []Privilege `json:"privileges,omitempty"`
}

// IsPublic reports whether the entry shares to the public principal.
func (e AccessControlEntry) IsPublic() bool {
	return e.PrincipalName == PrincipalPublic
}

// HasPublicEntry reports whether any entry shares to the public principal.
func HasPublicEntry(entries []AccessControlEntry) bool {
	for _, e := range entries {
		if e.IsPublic() {
			return true
		}
	}
	return false
}
