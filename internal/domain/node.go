package domain

import (
	"slices"
	"strings"
)

// Principal names with special meaning to the authority.
const (
	PrincipalAdmin     = "admin"
	PrincipalPublic    = "public"
	PrincipalAnonymous = "anonymous"
)

// EncryptionTag prefixes node content that holds ciphertext.
const EncryptionTag = "<[ENC]>"

// DefaultNodeType is the type given to new nodes when none is requested.
const DefaultNodeType = "u"

// Node is a snapshot of one content node as last reported by the authority.
type Node struct {
	ID          string     `json:"id"`
	ParentID    string     `json:"parentId,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Content     string     `json:"content"`
	Properties  []Property `json:"properties,omitempty"`
	Children    []string   `json:"children,omitempty"`
	Ordinal     int        `json:"ordinal"`
	Deleted     bool       `json:"deleted,omitempty"`
	HasChildren bool       `json:"hasChildren,omitempty"`
	Public      bool       `json:"public,omitempty"`

	// CipherKey is the content key wrapped for the requesting principal,
	// present only when the authority holds a delivered key for them.
	CipherKey string `json:"cipherKey,omitempty"`
}

// EffectiveOwner returns the owner, treating an unset owner as admin.
func (n *Node) EffectiveOwner() string {
	if n.Owner == "" {
		return PrincipalAdmin
	}
	return n.Owner
}

// DisplayName is the name of the node, or its id when unnamed.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// IsEncrypted reports whether the content is marker-prefixed ciphertext.
func (n *Node) IsEncrypted() bool {
	return strings.HasPrefix(n.Content, EncryptionTag)
}

// CipherText returns the content with the encryption marker removed.
func (n *Node) CipherText() string {
	return strings.TrimPrefix(n.Content, EncryptionTag)
}

// ContentKey returns the key able to decrypt this node's content for the
// local principal. A key delivered to the requester takes precedence over
// the encryption-key property, which is wrapped to the owner.
func (n *Node) ContentKey() string {
	if n.CipherKey != "" {
		return n.CipherKey
	}
	v, _ := n.PropertyValue(PropEncryptionKey)
	return v
}

// PropertyValue looks up a property by name.
func (n *Node) PropertyValue(name string) (string, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// SetProperty sets name to value in place, appending when absent.
// An empty value removes the property.
func (n *Node) SetProperty(name, value string) {
	if value == "" {
		n.DeleteProperty(name)
		return
	}
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			n.Properties[i].Value = value
			return
		}
	}
	n.Properties = append(n.Properties, Property{Name: name, Value: value})
}

// DeleteProperty removes name if present.
func (n *Node) DeleteProperty(name string) {
	n.Properties = slices.DeleteFunc(n.Properties, func(p Property) bool {
		return p.Name == name
	})
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Properties = slices.Clone(n.Properties)
	c.Children = slices.Clone(n.Children)
	return &c
}
