package authority

import (
	"context"
	"slices"
	"strings"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

// DefaultSplitDelimiter separates the parts of a node being split.
const DefaultSplitDelimiter = "\n\n\n"

func (s *Service) InitNodeEdit(ctx context.Context, req ports.InitNodeEditRequest) (*ports.InitNodeEditResponse, error) {
	res := &ports.InitNodeEditResponse{}
	base, err := s.run(ctx, "init node edit", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("You cannot edit nodes that you don't own.")
		}
		if err := decorate(ctx, st, who, node); err != nil {
			return err
		}
		res.NodeInfo = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	if !base.Success {
		res.NodeInfo = nil
	}
	return res, nil
}

func (s *Service) SaveNode(ctx context.Context, req ports.SaveNodeRequest) (*ports.SaveNodeResponse, error) {
	res := &ports.SaveNodeResponse{}
	base, err := s.run(ctx, "save node", func(st Store, who *Principal) error {
		if req.Node == nil {
			return reject("no node to save")
		}
		node, err := mustNode(ctx, st, req.Node.ID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("You cannot edit nodes that you don't own.")
		}
		grants, err := st.Grants(ctx, node.ID)
		if err != nil {
			return err
		}
		public := slices.ContainsFunc(grants, func(g Grant) bool { return g.PrincipalID == domain.PrincipalPublic })
		if public && strings.HasPrefix(req.Node.Content, domain.EncryptionTag) {
			return reject("Cannot encrypt a node that is shared to public. Remove public share first.")
		}

		node.Name = req.Node.Name
		node.Content = req.Node.Content
		node.Properties = mergeProperties(who, node.Properties, req.Node.Properties)
		if err := st.PutNode(ctx, node); err != nil {
			return err
		}

		if node.IsEncrypted() {
			entries, err := s.shareEntries(ctx, st, node, grants)
			if err != nil {
				return err
			}
			res.AclEntries = entries
		}
		if err := decorate(ctx, st, who, node); err != nil {
			return err
		}
		res.Node = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}

// mergeProperties takes the client's list, except that read-only
// properties stay under server control for non-admins.
func mergeProperties(who *Principal, stored, incoming []domain.Property) []domain.Property {
	if who.Admin {
		return slices.Clone(incoming)
	}
	out := make([]domain.Property, 0, len(incoming))
	for _, p := range stored {
		if domain.IsReadOnlyProperty(p.Name) {
			out = append(out, p)
		}
	}
	for _, p := range incoming {
		if !domain.IsReadOnlyProperty(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// shareEntries lists the principals that must receive the content key of
// an encrypted node: every grantee except the owner and the public.
func (s *Service) shareEntries(ctx context.Context, st Store, node *domain.Node, grants []Grant) ([]domain.AccessControlEntry, error) {
	var out []domain.AccessControlEntry
	for _, g := range grants {
		if g.PrincipalID == domain.PrincipalPublic {
			continue
		}
		p, err := st.PrincipalByID(ctx, g.PrincipalID)
		if err != nil {
			return nil, err
		}
		if p.Name == node.EffectiveOwner() {
			continue
		}
		out = append(out, domain.AccessControlEntry{
			PrincipalNodeID: p.ID,
			PrincipalName:   p.Name,
			PublicKey:       p.PublicKey,
			Privileges:      slices.Clone(g.Privileges),
		})
	}
	return out, nil
}

func (s *Service) SetNodeType(ctx context.Context, req ports.SetNodeTypeRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "set node type", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("You cannot edit nodes that you don't own.")
		}
		if strings.TrimSpace(req.Type) == "" {
			return reject("type is required")
		}
		node.Type = req.Type
		return st.PutNode(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) DeleteProperty(ctx context.Context, req ports.DeletePropertyRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "delete property", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("You cannot edit nodes that you don't own.")
		}
		if domain.IsReadOnlyProperty(req.PropName) && !who.Admin {
			return reject("property %s is read-only", req.PropName)
		}
		node.DeleteProperty(req.PropName)
		return st.PutNode(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) SplitNode(ctx context.Context, req ports.SplitNodeRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "split node", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("You cannot edit nodes that you don't own.")
		}
		if node.IsEncrypted() {
			return reject("cannot split an encrypted node")
		}

		delim := req.Delimiter
		if delim == "" {
			delim = DefaultSplitDelimiter
		}
		var parts []string
		for _, part := range strings.Split(node.Content, delim) {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) < 2 {
			return nil
		}

		node.Content = parts[0]
		if err := st.PutNode(ctx, node); err != nil {
			return err
		}
		fresh := make([]*domain.Node, 0, len(parts)-1)
		for _, part := range parts[1:] {
			n := s.newNode(who, "", node.Type)
			n.Content = part
			fresh = append(fresh, n)
		}

		switch req.SplitType {
		case ports.SplitChildren:
			children, err := st.Children(ctx, node.ID)
			if err != nil {
				return err
			}
			return renumber(ctx, st, node.ID, append(fresh, children...))
		case ports.SplitInline, "":
			siblings, err := st.Children(ctx, node.ParentID)
			if err != nil {
				return err
			}
			idx := slices.IndexFunc(siblings, func(n *domain.Node) bool { return n.ID == node.ID })
			siblings = slices.Insert(siblings, idx+1, fresh...)
			return renumber(ctx, st, node.ParentID, siblings)
		default:
			return reject("unknown split type %q", req.SplitType)
		}
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}
