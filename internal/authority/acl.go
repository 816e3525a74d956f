package authority

import (
	"context"
	"errors"
	"slices"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

func (s *Service) GetNodePrivileges(ctx context.Context, req ports.GetNodePrivilegesRequest) (*ports.GetNodePrivilegesResponse, error) {
	res := &ports.GetNodePrivilegesResponse{}
	base, err := s.run(ctx, "get node privileges", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("not authorized to view sharing of %s", node.ID)
		}
		if req.IncludeACL {
			grants, err := st.Grants(ctx, node.ID)
			if err != nil {
				return err
			}
			for _, g := range grants {
				entry := domain.AccessControlEntry{
					PrincipalNodeID: g.PrincipalID,
					Privileges:      slices.Clone(g.Privileges),
				}
				p, err := st.PrincipalByID(ctx, g.PrincipalID)
				switch {
				case err == nil:
					entry.PrincipalName = p.Name
					entry.PublicKey = p.PublicKey
				case !errors.Is(err, ErrPrincipalNotFound):
					return err
				}
				res.AclEntries = append(res.AclEntries, entry)
			}
		}
		if req.IncludeOwners {
			res.Owners = []string{node.EffectiveOwner()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}

func (s *Service) AddPrivilege(ctx context.Context, req ports.AddPrivilegeRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "add privilege", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("not authorized to share %s", node.ID)
		}
		grantee, err := st.Principal(ctx, req.Principal)
		if errors.Is(err, ErrPrincipalNotFound) {
			return reject("unknown principal %s", req.Principal)
		}
		if err != nil {
			return err
		}
		if grantee.Name == domain.PrincipalPublic && node.IsEncrypted() {
			return reject("This node is encrypted, and therefore cannot be made public.")
		}

		privs := slices.Clone(req.Privileges)
		if len(privs) == 0 {
			privs = []domain.Privilege{domain.PrivilegeRead}
		}
		grants, err := st.Grants(ctx, node.ID)
		if err != nil {
			return err
		}
		for _, g := range grants {
			if g.PrincipalID == grantee.ID {
				for _, p := range g.Privileges {
					if !slices.Contains(privs, p) {
						privs = append(privs, p)
					}
				}
			}
		}
		return st.PutGrant(ctx, node.ID, Grant{PrincipalID: grantee.ID, Privileges: privs})
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) RemovePrivilege(ctx context.Context, req ports.RemovePrivilegeRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "remove privilege", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("not authorized to share %s", node.ID)
		}
		grants, err := st.Grants(ctx, node.ID)
		if err != nil {
			return err
		}
		for _, g := range grants {
			if g.PrincipalID != req.PrincipalNodeID {
				continue
			}
			g.Privileges = slices.DeleteFunc(g.Privileges, func(p domain.Privilege) bool {
				return req.Privilege == "" || p == req.Privilege
			})
			if len(g.Privileges) == 0 {
				return st.DeleteGrant(ctx, node.ID, g.PrincipalID)
			}
			return st.PutGrant(ctx, node.ID, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}

func (s *Service) SetCipherKey(ctx context.Context, req ports.SetCipherKeyRequest) (*ports.Ack, error) {
	base, err := s.run(ctx, "set cipher key", func(st Store, who *Principal) error {
		node, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canWrite(who, node) {
			return deny("not authorized to share keys of %s", node.ID)
		}
		if _, err := st.PrincipalByID(ctx, req.PrincipalNodeID); errors.Is(err, ErrPrincipalNotFound) {
			return reject("unknown principal %s", req.PrincipalNodeID)
		} else if err != nil {
			return err
		}
		if req.CipherKey == "" {
			return reject("cipher key is required")
		}
		return st.PutCipherKey(ctx, node.ID, req.PrincipalNodeID, req.CipherKey)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Ack{ResponseBase: base}, nil
}
