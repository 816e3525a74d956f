// Package session implements the modal edit session bound to one node.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"arbor/internal/application"
	"arbor/internal/domain"
)

// EncryptedPlaceholder is shown in place of content that cannot be
// decrypted locally.
const EncryptedPlaceholder = "[encrypted]"

// KeyDistributor delivers the content key of a saved encrypted node.
type KeyDistributor interface {
	Distribute(ctx context.Context, node *domain.Node, entries []domain.AccessControlEntry) error
}

// InsertContext records how the node under edit was created: under a
// parent, or inline next to a sibling at an ordinal offset.
type InsertContext struct {
	ParentID      string
	Sibling       *domain.Node
	OrdinalOffset int
	CreateAtTop   bool
}

// Inline reports whether the node was inserted next to a sibling.
func (ic *InsertContext) Inline() bool {
	return ic != nil && ic.Sibling != nil
}

// Flags are the checkbox controls of the session.
type Flags struct {
	Preformatted   bool
	WordWrap       bool
	InlineChildren bool
}

// Session is the edit state of one node. Only one session is open at a
// time (see Controller).
type Session struct {
	ws     *application.Workspace
	keys   KeyDistributor
	logger *slog.Logger

	state  State
	node   *domain.Node
	insert *InsertContext

	fields  []Field
	editors map[string]string
	marked  map[string]bool

	name       string
	content    string
	unreadable bool
	flags      Flags
	layout     string
	priority   string
	imageSize  string
}

func newSession(ws *application.Workspace, keys KeyDistributor) *Session {
	return &Session{
		ws:      ws,
		keys:    keys,
		logger:  ws.Logger,
		editors: make(map[string]string),
		marked:  make(map[string]bool),
	}
}

func (s *Session) nodeID() string {
	if s.node == nil {
		return ""
	}
	return s.node.ID
}

// open loads nodeID for editing. The local edit check can refuse early;
// only the authority can allow.
func (s *Session) open(ctx context.Context, nodeID string, insert *InsertContext) error {
	if err := s.transition(Loading); err != nil {
		return err
	}
	if cached, ok := s.ws.Cache.Get(nodeID); ok && !s.ws.CanEdit(cached) {
		s.state = Closed
		return &application.AuthorizationError{Op: "edit", Message: "You cannot edit nodes that you don't own."}
	}

	res, err := s.ws.Authority.InitNodeEdit(ctx, initNodeEditRequest(nodeID))
	if err != nil {
		s.state = Closed
		return fmt.Errorf("failed to load node %s for edit: %w", nodeID, err)
	}
	if err := application.CheckSuccess("initNodeEdit", res.ResponseBase); err != nil {
		s.state = Closed
		return err
	}
	if res.NodeInfo == nil {
		s.state = Closed
		return &application.ServerRejection{Op: "initNodeEdit", Message: "no node returned"}
	}
	if !s.ws.CanEdit(res.NodeInfo) {
		s.state = Closed
		return &application.AuthorizationError{Op: "edit", Message: "You cannot edit nodes that you don't own."}
	}

	s.insert = insert
	s.load(res.NodeInfo)
	return s.transition(Editing)
}

func (s *Session) load(node *domain.Node) {
	s.node = node.Clone()
	s.name = node.Name
	s.content = node.Content
	s.unreadable = false

	if node.IsEncrypted() {
		s.content = EncryptedPlaceholder
		s.unreadable = true
		if key := node.ContentKey(); key != "" && s.ws.Encryptor != nil {
			plain, err := s.ws.Encryptor.DecryptWithCipherKey(key, node.CipherText())
			if err != nil {
				s.logger.Warn("cannot decrypt node content", "node", node.ID, "error", err)
			} else {
				s.content = plain
				s.unreadable = false
			}
		}
	}

	_, pre := node.PropertyValue(domain.PropPreformatted)
	_, nowrap := node.PropertyValue(domain.PropNoWrap)
	_, inline := node.PropertyValue(domain.PropInlineChildren)
	s.flags = Flags{Preformatted: pre, WordWrap: !nowrap, InlineChildren: inline}
	s.layout = valueOr(node, domain.PropLayout, domain.DefaultLayout)
	s.priority = valueOr(node, domain.PropPriority, domain.DefaultPriority)
	s.imageSize = valueOr(node, domain.PropImageSize, domain.DefaultImageSize)

	s.fields = classify(node.Properties, s.ws.Identity.IsAdmin, s.ws.Prefs.ShowReadOnly)
	clear(s.editors)
	clear(s.marked)
	for _, f := range s.fields {
		if g, ok := f.(Generic); ok && g.Editable() {
			s.editors[g.Name] = g.Value
		}
	}
}

func valueOr(node *domain.Node, name, def string) string {
	if v, ok := node.PropertyValue(name); ok && v != "" {
		return v
	}
	return def
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Node returns a copy of the node under edit.
func (s *Session) Node() *domain.Node { return s.node.Clone() }

// Insert returns how the node was created, or nil for plain edits.
func (s *Session) Insert() *InsertContext { return s.insert }

// Name returns the name buffer.
func (s *Session) Name() string { return s.name }

// Content returns the content buffer.
func (s *Session) Content() string { return s.content }

// Unreadable reports whether the content could not be decrypted.
func (s *Session) Unreadable() bool { return s.unreadable }

// Flags returns the checkbox controls.
func (s *Session) Flags() Flags { return s.flags }

// Layout returns the selected child layout.
func (s *Session) Layout() string { return s.layout }

// Priority returns the selected priority.
func (s *Session) Priority() string { return s.priority }

// ImageSize returns the selected image size.
func (s *Session) ImageSize() string { return s.imageSize }

// Encrypted reports whether the node will be saved encrypted.
func (s *Session) Encrypted() bool { return s.node != nil && s.node.IsEncrypted() }

// Fields returns every classified property in node order.
func (s *Session) Fields() []Field { return slices.Clone(s.fields) }

// GenericFields returns the generic properties shown to the user, with
// their live editor values.
func (s *Session) GenericFields() []Generic {
	var out []Generic
	for _, f := range s.fields {
		g, ok := f.(Generic)
		if !ok || !g.Visible {
			continue
		}
		if v, ok := s.editors[g.Name]; ok {
			g.Value = v
		}
		out = append(out, g)
	}
	return out
}

func (s *Session) editable() error {
	if s.state == Closed {
		return application.ErrSessionClosed
	}
	if s.state != Editing {
		return &application.TransitionError{From: s.state.String(), To: Editing.String()}
	}
	return nil
}

// SetName replaces the name buffer.
func (s *Session) SetName(name string) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.name = name
	return nil
}

// SetContent replaces the content buffer.
func (s *Session) SetContent(content string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.unreadable {
		return &application.UserInputError{Reason: application.ErrInvalidOperation, Message: "This node's content cannot be decrypted, so it cannot be edited."}
	}
	s.content = content
	return nil
}

// InsertTime appends a timestamp to the content buffer.
func (s *Session) InsertTime(now time.Time) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.unreadable {
		return &application.UserInputError{Reason: application.ErrInvalidOperation, Message: "This node's content cannot be decrypted, so it cannot be edited."}
	}
	s.content += "[" + now.Format("2006/01/02 15:04:05") + "]"
	return nil
}

// SetFlags replaces the checkbox controls.
func (s *Session) SetFlags(flags Flags) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.flags = flags
	return nil
}

// SetLayout selects the child layout.
func (s *Session) SetLayout(layout string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if err := application.ValidateOneOf("layout", layout, domain.Layouts...); err != nil {
		return err
	}
	s.layout = layout
	return nil
}

// SetPriority selects a priority from 0 (none) to 5.
func (s *Session) SetPriority(priority string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if err := application.ValidateOneOf("priority", priority, "0", "1", "2", "3", "4", "5"); err != nil {
		return err
	}
	s.priority = priority
	return nil
}

// SetImageSize selects the display size of an attached image.
func (s *Session) SetImageSize(size string) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.imageSize = size
	return nil
}

// SetProperty sets the live editor value of a generic property.
func (s *Session) SetProperty(name, value string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if _, ok := s.editors[name]; !ok {
		return &application.ValidationError{Field: "propertyName", Message: fmt.Sprintf("%s is not an editable property", name)}
	}
	s.editors[name] = value
	return nil
}

// AddProperty adds a new generic property to the node under edit.
func (s *Session) AddProperty(name, value string) error {
	if err := s.editable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := application.ValidateRequired("propertyName", name); err != nil {
		return err
	}
	if domain.ControlFor(name) != domain.ControlNone || domain.IsReadOnlyProperty(name) {
		return &application.ValidationError{Field: "propertyName", Message: fmt.Sprintf("%s is reserved", name)}
	}
	if _, ok := s.node.PropertyValue(name); ok {
		return &application.ValidationError{Field: "propertyName", Message: fmt.Sprintf("%s already exists", name)}
	}

	s.node.Properties = append(s.node.Properties, domain.Property{Name: name, Value: value})
	s.fields = append(s.fields, Generic{Name: name, Value: value, Visible: true})
	s.editors[name] = value
	return nil
}

// MarkForDeletion checks or unchecks a generic property for deletion.
func (s *Session) MarkForDeletion(name string, checked bool) error {
	if err := s.editable(); err != nil {
		return err
	}
	if _, ok := s.editors[name]; !ok {
		return &application.ValidationError{Field: "propertyName", Message: fmt.Sprintf("%s is not a deletable property", name)}
	}
	if checked {
		s.marked[name] = true
	} else {
		delete(s.marked, name)
	}
	return nil
}

// CanDeleteProperties reports whether the delete action is enabled.
func (s *Session) CanDeleteProperties() bool {
	return s.state == Editing && len(s.marked) > 0
}

// DeleteMarkedProperties issues one delete request per checked property,
// removing each locally only after its own request succeeded.
func (s *Session) DeleteMarkedProperties(ctx context.Context) error {
	if err := s.editable(); err != nil {
		return err
	}
	if len(s.marked) == 0 {
		return &application.UserInputError{Reason: application.ErrNoSelection, Message: "No properties are checked for deletion."}
	}

	var errs []error
	for _, f := range s.Fields() {
		name := f.PropertyName()
		if !s.marked[name] {
			continue
		}
		res, err := s.ws.Authority.DeleteProperty(ctx, deletePropertyRequest(s.node.ID, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete property %s: %w", name, err))
			continue
		}
		if err := application.CheckSuccess("deleteProperty", res.ResponseBase); err != nil {
			errs = append(errs, err)
			continue
		}
		s.removeProperty(name)
	}
	return errors.Join(errs...)
}

func (s *Session) removeProperty(name string) {
	s.node.DeleteProperty(name)
	s.fields = slices.DeleteFunc(s.fields, func(f Field) bool { return f.PropertyName() == name })
	delete(s.editors, name)
	delete(s.marked, name)
}

// Cancel closes the session without contacting the authority.
func (s *Session) Cancel() error {
	if err := s.transition(Cancelling); err != nil {
		return err
	}
	return s.transition(Closed)
}
