package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

// Well-known node ids.
const (
	RootNodeID  = "root"
	TrashNodeID = ports.TrashNodeID
	NotesNodeID = ports.NotesNodeID
	HomeNodeID  = ports.HomeNodeID
)

// Node types with server-side meaning.
const (
	TypeRepository = "repository"
	TypeAccount    = "account"
	TypeNotes      = "notes"
	TypeBook       = "book"
)

// Service implements ports.Authority over a Store. The requesting principal
// is read from the context (see WithUser).
type Service struct {
	store    Store
	booksDir string
	logger   *slog.Logger
	newID    func() string
}

var _ ports.Authority = (*Service)(nil)

// NewService creates a service backed by store
func NewService(store Store) *Service {
	return &Service{
		store:  store,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
}

// WithLogger sets the logger
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// WithBooksDir sets the directory InsertBook reads from
func (s *Service) WithBooksDir(dir string) *Service {
	s.booksDir = dir
	return s
}

// rejection aborts a store update and becomes a non-success response.
type rejection struct {
	base ports.ResponseBase
}

func (r *rejection) Error() string { return r.base.Message }

func reject(format string, args ...any) error {
	return &rejection{base: ports.ResponseBase{Message: fmt.Sprintf(format, args...)}}
}

func deny(format string, args ...any) error {
	return &rejection{base: ports.ResponseBase{
		Message:       fmt.Sprintf(format, args...),
		ExceptionType: ports.ExceptionAuth,
	}}
}

// run executes fn in one store update on behalf of the context's principal.
func (s *Service) run(ctx context.Context, op string, fn func(st Store, who *Principal) error) (ports.ResponseBase, error) {
	err := s.store.Update(ctx, func(st Store) error {
		who, err := s.requester(ctx, st)
		if err != nil {
			return err
		}
		return fn(st, who)
	})

	var rej *rejection
	switch {
	case errors.As(err, &rej):
		s.logger.Debug("request rejected", "op", op, "user", UserFrom(ctx), "reason", rej.base.Message)
		return rej.base, nil
	case err != nil:
		return ports.ResponseBase{}, fmt.Errorf("failed to %s: %w", op, err)
	}
	return ports.ResponseBase{Success: true}, nil
}

func (s *Service) requester(ctx context.Context, st Store) (*Principal, error) {
	name := UserFrom(ctx)
	if name == "" || name == domain.PrincipalAnonymous {
		return &Principal{Name: domain.PrincipalAnonymous}, nil
	}
	p, err := st.Principal(ctx, name)
	if errors.Is(err, ErrPrincipalNotFound) {
		return nil, deny("unknown user %s", name)
	}
	return p, err
}

func isAnonymous(p *Principal) bool {
	return p.ID == ""
}

func canWrite(who *Principal, n *domain.Node) bool {
	return who.Admin || (!isAnonymous(who) && n.EffectiveOwner() == who.Name)
}

func canInsert(who *Principal, parent *domain.Node) bool {
	if who.Admin {
		return true
	}
	if isAnonymous(who) {
		return false
	}
	return parent.EffectiveOwner() == who.Name
}

func canRead(ctx context.Context, st Store, who *Principal, n *domain.Node) (bool, error) {
	if canWrite(who, n) {
		return true, nil
	}
	grants, err := st.Grants(ctx, n.ID)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.PrincipalID == domain.PrincipalPublic || (!isAnonymous(who) && g.PrincipalID == who.ID) {
			return true, nil
		}
	}
	return false, nil
}

// isProtected reports whether n is the repository root or an account home.
func isProtected(n *domain.Node) bool {
	return n.ID == RootNodeID || n.Type == TypeAccount
}

// mustNode loads id, turning a missing node into a rejection.
func mustNode(ctx context.Context, st Store, id string) (*domain.Node, error) {
	n, err := st.Node(ctx, id)
	if errors.Is(err, ErrNodeNotFound) {
		return nil, reject("node not found: %s", id)
	}
	return n, err
}

// decorate fills the requester-specific fields of a node snapshot.
func decorate(ctx context.Context, st Store, who *Principal, n *domain.Node) error {
	grants, err := st.Grants(ctx, n.ID)
	if err != nil {
		return err
	}
	n.Public = slices.ContainsFunc(grants, func(g Grant) bool { return g.PrincipalID == domain.PrincipalPublic })

	children, err := st.Children(ctx, n.ID)
	if err != nil {
		return err
	}
	n.HasChildren = len(children) > 0
	n.Children = n.Children[:0]
	for _, c := range children {
		n.Children = append(n.Children, c.ID)
	}

	if !isAnonymous(who) {
		key, err := st.CipherKey(ctx, n.ID, who.ID)
		if err != nil {
			return err
		}
		n.CipherKey = key
	}
	return nil
}

// renumber writes ordinals 0..k-1 in slice order under parentID.
func renumber(ctx context.Context, st Store, parentID string, siblings []*domain.Node) error {
	for i, n := range siblings {
		n.ParentID = parentID
		n.Ordinal = i
		if err := st.PutNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) newNode(owner *Principal, name, typeName string) *domain.Node {
	if typeName == "" {
		typeName = domain.DefaultNodeType
	}
	return &domain.Node{
		ID:    s.newID(),
		Owner: owner.Name,
		Type:  typeName,
		Name:  name,
	}
}

func (s *Service) RenderNode(ctx context.Context, req ports.RenderNodeRequest) (*ports.RenderNodeResponse, error) {
	res := &ports.RenderNodeResponse{}
	base, err := s.run(ctx, "render node", func(st Store, who *Principal) error {
		id := req.NodeID
		if id == HomeNodeID {
			id = RootNodeID
			if who.HomeNodeID != "" {
				id = who.HomeNodeID
			}
		}
		node, err := mustNode(ctx, st, id)
		if err != nil {
			return err
		}
		ok, err := canRead(ctx, st, who, node)
		if err != nil {
			return err
		}
		if !ok {
			return deny("not authorized to read %s", node.ID)
		}
		if err := decorate(ctx, st, who, node); err != nil {
			return err
		}

		children, err := st.Children(ctx, node.ID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if ok, err := canRead(ctx, st, who, c); err != nil {
				return err
			} else if !ok {
				continue
			}
			if err := decorate(ctx, st, who, c); err != nil {
				return err
			}
			res.Children = append(res.Children, c)
		}
		res.Node = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	if !base.Success {
		res.Node, res.Children = nil, nil
	}
	return res, nil
}

func (s *Service) InsertNode(ctx context.Context, req ports.InsertNodeRequest) (*ports.InsertNodeResponse, error) {
	res := &ports.InsertNodeResponse{}
	base, err := s.run(ctx, "insert node", func(st Store, who *Principal) error {
		parent, err := mustNode(ctx, st, req.ParentID)
		if err != nil {
			return err
		}
		if !canInsert(who, parent) {
			return deny("not authorized to insert under %s", parent.ID)
		}
		siblings, err := st.Children(ctx, parent.ID)
		if err != nil {
			return err
		}

		pos := min(max(req.TargetOrdinal, 0), len(siblings))
		node := s.newNode(who, req.NewNodeName, req.TypeName)
		siblings = slices.Insert(siblings, pos, node)
		if err := renumber(ctx, st, parent.ID, siblings); err != nil {
			return err
		}
		res.NewNode = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}

func (s *Service) CreateSubNode(ctx context.Context, req ports.CreateSubNodeRequest) (*ports.CreateSubNodeResponse, error) {
	res := &ports.CreateSubNodeResponse{}
	base, err := s.run(ctx, "create node", func(st Store, who *Principal) error {
		var parent *domain.Node
		var err error
		if req.NodeID == NotesNodeID {
			parent, err = s.notesNode(ctx, st, who)
		} else {
			parent, err = mustNode(ctx, st, req.NodeID)
		}
		if err != nil {
			return err
		}
		if !canInsert(who, parent) {
			return deny("not authorized to insert under %s", parent.ID)
		}
		siblings, err := st.Children(ctx, parent.ID)
		if err != nil {
			return err
		}

		node := s.newNode(who, req.NewNodeName, req.TypeName)
		node.Content = req.Content
		if req.CreateAtTop {
			siblings = slices.Insert(siblings, 0, node)
		} else {
			siblings = append(siblings, node)
		}
		if err := renumber(ctx, st, parent.ID, siblings); err != nil {
			return err
		}
		res.NewNode = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}

// notesNode finds or creates the requester's notes node under their home.
func (s *Service) notesNode(ctx context.Context, st Store, who *Principal) (*domain.Node, error) {
	if isAnonymous(who) || who.HomeNodeID == "" {
		return nil, deny("no account home for notes")
	}
	children, err := st.Children(ctx, who.HomeNodeID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Type == TypeNotes && !c.Deleted {
			return c, nil
		}
	}
	notes := s.newNode(who, "Notes", TypeNotes)
	if err := renumber(ctx, st, who.HomeNodeID, append(children, notes)); err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *Service) DeleteNodes(ctx context.Context, req ports.DeleteNodesRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "delete nodes", func(st Store, who *Principal) error {
		hard := req.HardDelete
		var targets []*domain.Node
		for _, id := range req.NodeIDs {
			if id == TrashNodeID {
				trash, err := st.DeletedNodes(ctx, who.Name)
				if err != nil {
					return err
				}
				targets = append(targets, trash...)
				hard = true
				continue
			}
			n, err := mustNode(ctx, st, id)
			if err != nil {
				return err
			}
			targets = append(targets, n)
		}

		for _, n := range targets {
			if isProtected(n) {
				return reject("cannot delete account root node %s", n.ID)
			}
			if !canWrite(who, n) {
				return deny("not authorized to delete %s", n.ID)
			}
		}

		parents := make(map[string]bool)
		for _, n := range targets {
			if !hard && !n.Deleted {
				n.Deleted = true
				if err := st.PutNode(ctx, n); err != nil {
					return err
				}
				continue
			}
			if err := deleteSubtree(ctx, st, n.ID); err != nil {
				return err
			}
			parents[n.ParentID] = true
		}

		for parentID := range parents {
			siblings, err := st.Children(ctx, parentID)
			if err != nil {
				return err
			}
			if err := renumber(ctx, st, parentID, siblings); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func deleteSubtree(ctx context.Context, st Store, id string) error {
	children, err := st.Children(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := deleteSubtree(ctx, st, c.ID); err != nil {
			return err
		}
	}
	return st.DeleteNode(ctx, id)
}

func (s *Service) MoveNodes(ctx context.Context, req ports.MoveNodesRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "move nodes", func(st Store, who *Principal) error {
		target, err := mustNode(ctx, st, req.TargetNodeID)
		if err != nil {
			return err
		}

		var parentID string
		switch req.Location {
		case ports.LocationInside:
			parentID = target.ID
		case ports.LocationInline, ports.LocationInlineAbove:
			if target.ParentID == "" {
				return reject("cannot place nodes beside the repository root")
			}
			parentID = target.ParentID
		default:
			return reject("unknown move location %q", req.Location)
		}
		parent, err := mustNode(ctx, st, parentID)
		if err != nil {
			return err
		}
		if !canInsert(who, parent) {
			return deny("not authorized to move nodes under %s", parent.ID)
		}

		moving := make(map[string]bool, len(req.NodeIDs))
		var moved []*domain.Node
		for _, id := range req.NodeIDs {
			n, err := mustNode(ctx, st, id)
			if err != nil {
				return err
			}
			if isProtected(n) {
				return reject("cannot move account root node %s", n.ID)
			}
			if !canWrite(who, n) {
				return deny("not authorized to move %s", n.ID)
			}
			moving[n.ID] = true
			moved = append(moved, n)
		}

		// The new parent must not sit inside a moved subtree.
		for cur := parent; ; {
			if moving[cur.ID] {
				return reject("cannot move a node into itself")
			}
			if cur.ParentID == "" {
				break
			}
			if cur, err = mustNode(ctx, st, cur.ParentID); err != nil {
				return err
			}
		}

		stay := func(n *domain.Node) bool { return moving[n.ID] }
		for _, n := range moved {
			if n.ParentID == parentID {
				continue
			}
			old, err := st.Children(ctx, n.ParentID)
			if err != nil {
				return err
			}
			if err := renumber(ctx, st, n.ParentID, slices.DeleteFunc(old, stay)); err != nil {
				return err
			}
		}

		siblings, err := st.Children(ctx, parentID)
		if err != nil {
			return err
		}
		siblings = slices.DeleteFunc(siblings, stay)
		pos := len(siblings)
		if req.Location != ports.LocationInside {
			idx := slices.IndexFunc(siblings, func(n *domain.Node) bool { return n.ID == target.ID })
			if idx < 0 {
				return reject("cannot place nodes beside a node that is being moved")
			}
			pos = idx
			if req.Location == ports.LocationInline {
				pos = idx + 1
			}
		}
		siblings = slices.Insert(siblings, pos, moved...)
		return renumber(ctx, st, parentID, siblings)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) SetNodePosition(ctx context.Context, req ports.SetNodePositionRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "set node position", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("not authorized to move %s", node.ID)
		}
		siblings, err := st.Children(ctx, node.ParentID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(siblings, func(n *domain.Node) bool { return n.ID == node.ID })
		if idx < 0 {
			return reject("node %s not found among its siblings", node.ID)
		}

		switch req.TargetName {
		case ports.PositionUp:
			if idx > 0 {
				siblings[idx-1], siblings[idx] = siblings[idx], siblings[idx-1]
			}
		case ports.PositionDown:
			if idx < len(siblings)-1 {
				siblings[idx+1], siblings[idx] = siblings[idx], siblings[idx+1]
			}
		case ports.PositionTop:
			n := siblings[idx]
			siblings = slices.Insert(slices.Delete(siblings, idx, idx+1), 0, n)
		case ports.PositionBottom:
			n := siblings[idx]
			siblings = append(slices.Delete(siblings, idx, idx+1), n)
		default:
			return reject("unknown position %q", req.TargetName)
		}
		return renumber(ctx, st, node.ParentID, siblings)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) SelectAllNodes(ctx context.Context, req ports.SelectAllNodesRequest) (*ports.SelectAllNodesResponse, error) {
	res := &ports.SelectAllNodesResponse{}
	base, err := s.run(ctx, "select all nodes", func(st Store, who *Principal) error {
		parent, err := mustNode(ctx, st, req.ParentNodeID)
		if err != nil {
			return err
		}
		if ok, err := canRead(ctx, st, who, parent); err != nil {
			return err
		} else if !ok {
			return deny("not authorized to read %s", parent.ID)
		}
		children, err := st.Children(ctx, parent.ID)
		if err != nil {
			return err
		}
		for _, c := range children {
			res.NodeIDs = append(res.NodeIDs, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}
