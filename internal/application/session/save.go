package session

import (
	"context"
	"fmt"
	"strings"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

func initNodeEditRequest(id string) ports.InitNodeEditRequest {
	return ports.InitNodeEditRequest{NodeID: id}
}

func deletePropertyRequest(id, name string) ports.DeletePropertyRequest {
	return ports.DeletePropertyRequest{NodeID: id, PropName: name}
}

// SaveResult contains the result of a save
type SaveResult struct {
	Node    *domain.Node
	Shared  int
	Message string
}

// Reconcile builds the outgoing node from the session buffers without
// touching session state: control values are folded back into the
// property list, read-only properties are dropped for non-admins and
// generic properties take their live editor values. Content is the
// plaintext buffer; Save encrypts it when required.
func (s *Session) Reconcile() *domain.Node {
	out := s.node.Clone()
	out.CipherKey = ""

	setFlag(out, domain.PropPreformatted, s.flags.Preformatted)
	setFlag(out, domain.PropNoWrap, !s.flags.WordWrap)
	if s.node.HasChildren {
		setFlag(out, domain.PropInlineChildren, s.flags.InlineChildren)
		setChoice(out, domain.PropLayout, s.layout, domain.DefaultLayout)
	}
	setChoice(out, domain.PropPriority, s.priority, domain.DefaultPriority)
	if hasImage(s.node) {
		setChoice(out, domain.PropImageSize, s.imageSize, domain.DefaultImageSize)
	}

	if s.unreadable {
		out.Content = s.node.Content
	} else {
		out.Content = s.content
	}
	out.Name = s.name

	admin := s.ws.Identity.IsAdmin
	props := make([]domain.Property, 0, len(out.Properties))
	for _, p := range out.Properties {
		if domain.IsReadOnlyProperty(p.Name) && !admin {
			continue
		}
		if v, ok := s.editors[p.Name]; ok {
			p.Value = v
		}
		props = append(props, p)
	}
	out.Properties = props
	return out
}

func setFlag(n *domain.Node, name string, on bool) {
	if on {
		n.SetProperty(name, domain.FlagSet)
	} else {
		n.DeleteProperty(name)
	}
}

func setChoice(n *domain.Node, name, value, def string) {
	if value == def {
		value = ""
	}
	n.SetProperty(name, value)
}

func hasImage(n *domain.Node) bool {
	mime, _ := n.PropertyValue(domain.PropMimeType)
	return strings.HasPrefix(mime, "image/")
}

// Save sends the reconciled node, distributes the content key of an
// encrypted node and asks for a view refresh on it. A failed save leaves
// the session editing. A key distribution failure is reported after the
// session closed, since the save itself went through.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	if err := s.transition(Saving); err != nil {
		return nil, err
	}

	out := s.Reconcile()
	if s.node.IsEncrypted() && !s.unreadable {
		key := s.node.ContentKey()
		if key == "" || s.ws.Encryptor == nil {
			s.state = Editing
			return nil, fmt.Errorf("node %s is encrypted but no content key is available", s.node.ID)
		}
		cipherText, err := s.ws.Encryptor.EncryptWithCipherKey(key, s.content)
		if err != nil {
			s.state = Editing
			return nil, fmt.Errorf("failed to encrypt content: %w", err)
		}
		out.Content = domain.EncryptionTag + cipherText
	}

	res, err := s.ws.Authority.SaveNode(ctx, ports.SaveNodeRequest{Node: out})
	if err != nil {
		s.state = Editing
		return nil, fmt.Errorf("failed to save node %s: %w", out.ID, err)
	}
	if err := application.CheckSuccess("saveNode", res.ResponseBase); err != nil {
		s.state = Editing
		return nil, err
	}

	saved := out
	if res.Node != nil {
		saved = res.Node
	}
	if s.ws.Cache.Has(saved.ID) {
		s.ws.Cache.Put(saved.Clone())
	}

	var distErr error
	if s.keys != nil {
		dist := out.Clone()
		dist.CipherKey = s.node.CipherKey
		distErr = s.keys.Distribute(ctx, dist, res.AclEntries)
	}
	if err := s.transition(Closed); err != nil {
		return nil, err
	}

	result := &SaveResult{
		Node:    saved,
		Shared:  len(res.AclEntries),
		Message: fmt.Sprintf("Saved %s", saved.DisplayName()),
	}
	refreshErr := s.ws.Refresh(ctx, saved.ID)
	if distErr != nil {
		return result, distErr
	}
	if refreshErr != nil {
		return result, fmt.Errorf("node saved but the view could not be refreshed: %w", refreshErr)
	}
	return result, nil
}

// ChangeType sets the node type on the authority and, once accepted,
// updates the type of the node under edit. The session stays open.
func (s *Session) ChangeType(ctx context.Context, typeName string) error {
	if err := s.transition(ChangingType); err != nil {
		return err
	}
	defer func() { s.state = Editing }()

	if err := application.ValidateRequired("typeName", typeName); err != nil {
		return err
	}
	res, err := s.ws.Authority.SetNodeType(ctx, ports.SetNodeTypeRequest{NodeID: s.node.ID, Type: typeName})
	if err != nil {
		return fmt.Errorf("failed to set type of %s: %w", s.node.ID, err)
	}
	if err := application.CheckSuccess("setNodeType", res.ResponseBase); err != nil {
		return err
	}

	s.node.Type = typeName
	if cached, ok := s.ws.Cache.Get(s.node.ID); ok {
		cached.Type = typeName
	}
	return nil
}

// SetEncryption turns content encryption on or off for the next save.
// Encrypting a publicly shared node is refused without contacting the
// authority.
func (s *Session) SetEncryption(encrypt bool) error {
	if err := s.transition(TogglingEncryption); err != nil {
		return err
	}
	defer func() { s.state = Editing }()

	if encrypt == s.node.IsEncrypted() {
		return nil
	}

	if encrypt {
		if s.node.Public {
			return &application.UserInputError{
				Reason:  application.ErrEncryptedPublic,
				Message: "Cannot encrypt a node that is shared to public. Remove public share first.",
			}
		}
		if s.ws.Encryptor == nil {
			return fmt.Errorf("no encryption capability configured")
		}
		pkg, err := s.ws.Encryptor.EncryptSharable(s.content)
		if err != nil {
			return fmt.Errorf("failed to encrypt content: %w", err)
		}
		s.node.Content = domain.EncryptionTag + pkg.CipherText
		s.node.SetProperty(domain.PropEncryptionKey, pkg.CipherKey)
		s.node.CipherKey = ""
		return nil
	}

	if s.unreadable {
		return &application.UserInputError{
			Reason:  application.ErrInvalidOperation,
			Message: "This node's content cannot be decrypted, so encryption cannot be removed.",
		}
	}
	s.node.Content = s.content
	s.node.DeleteProperty(domain.PropEncryptionKey)
	s.node.CipherKey = ""
	return nil
}
