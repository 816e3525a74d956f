package authority

import (
	"context"
	"errors"

	"arbor/internal/domain"
)

// Bootstrap creates the repository root, the admin account and the public
// principal when they do not exist yet.
func (s *Service) Bootstrap(ctx context.Context, adminName string) error {
	return s.store.Update(ctx, func(st Store) error {
		if _, err := st.Node(ctx, RootNodeID); errors.Is(err, ErrNodeNotFound) {
			root := &domain.Node{ID: RootNodeID, Owner: adminName, Type: TypeRepository, Name: "root"}
			if err := st.PutNode(ctx, root); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := st.Principal(ctx, domain.PrincipalPublic); errors.Is(err, ErrPrincipalNotFound) {
			if err := st.PutPrincipal(ctx, &Principal{ID: domain.PrincipalPublic, Name: domain.PrincipalPublic}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := st.Principal(ctx, adminName); errors.Is(err, ErrPrincipalNotFound) {
			admin := &Principal{ID: s.newID(), Name: adminName, Admin: true, HomeNodeID: RootNodeID}
			return st.PutPrincipal(ctx, admin)
		} else if err != nil {
			return err
		}
		return nil
	})
}

// AccountOptions tune a newly registered account.
type AccountOptions struct {
	PublicKey string
	Admin     bool
	Test      bool
}

// EnsureUser registers name with a home node under the root, or updates
// the public key of an existing account.
func (s *Service) EnsureUser(ctx context.Context, name string, opts AccountOptions) (*Principal, error) {
	var out *Principal
	err := s.store.Update(ctx, func(st Store) error {
		p, err := st.Principal(ctx, name)
		if err == nil {
			if opts.PublicKey != "" && opts.PublicKey != p.PublicKey {
				p.PublicKey = opts.PublicKey
				if err := st.PutPrincipal(ctx, p); err != nil {
					return err
				}
			}
			out = p
			return nil
		}
		if !errors.Is(err, ErrPrincipalNotFound) {
			return err
		}

		siblings, err := st.Children(ctx, RootNodeID)
		if err != nil {
			return err
		}
		home := &domain.Node{ID: s.newID(), Owner: name, Type: TypeAccount, Name: name}
		if err := renumber(ctx, st, RootNodeID, append(siblings, home)); err != nil {
			return err
		}
		out = &Principal{
			ID:         s.newID(),
			Name:       name,
			PublicKey:  opts.PublicKey,
			HomeNodeID: home.ID,
			Admin:      opts.Admin,
			Test:       opts.Test,
		}
		return st.PutPrincipal(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account ready", "user", name, "home", out.HomeNodeID)
	return out, nil
}
