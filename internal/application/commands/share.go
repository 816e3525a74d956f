package commands

import (
	"context"
	"fmt"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// PrivilegesResult lists who can access a node
type PrivilegesResult struct {
	NodeID  string
	Entries []domain.AccessControlEntry
	Owners  []string
	Public  bool
}

// ShareCommand manages the access control list of a node
type ShareCommand struct {
	ws     *application.Workspace
	NodeID string
}

// NewShareCommand creates a new ShareCommand. An empty nodeID means the
// highlighted node.
func NewShareCommand(ws *application.Workspace, nodeID string) *ShareCommand {
	return &ShareCommand{ws: ws, NodeID: nodeID}
}

func (c *ShareCommand) node() (*domain.Node, error) {
	n, ok := c.ws.Resolve(c.NodeID)
	if ok {
		return n, nil
	}
	if c.NodeID != "" {
		return nil, &application.UnresolvableReferenceError{NodeID: c.NodeID, Op: "share"}
	}
	return nil, &application.UserInputError{Reason: application.ErrNoHighlight, Message: "No node is selected."}
}

// Privileges loads the node's access control entries and owners.
func (c *ShareCommand) Privileges(ctx context.Context) (*PrivilegesResult, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	res, err := c.ws.Authority.GetNodePrivileges(ctx, ports.GetNodePrivilegesRequest{
		NodeID:        node.ID,
		IncludeACL:    true,
		IncludeOwners: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get privileges of %s: %w", node.ID, err)
	}
	if err := application.CheckSuccess("getNodePrivileges", res.ResponseBase); err != nil {
		return nil, err
	}
	return &PrivilegesResult{
		NodeID:  node.ID,
		Entries: res.AclEntries,
		Owners:  res.Owners,
		Public:  domain.HasPublicEntry(res.AclEntries),
	}, nil
}

// ShareToPublic grants read access to everyone. Encrypted nodes cannot be
// made public; that is refused without contacting the authority.
func (c *ShareCommand) ShareToPublic(ctx context.Context) (*PrivilegesResult, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	if node.IsEncrypted() {
		return nil, &application.UserInputError{
			Reason:  application.ErrEncryptedPublic,
			Message: "This node is encrypted, and therefore cannot be made public.",
		}
	}
	return c.add(ctx, node, domain.PrincipalPublic)
}

// ShareWithUser grants read access to the named user.
func (c *ShareCommand) ShareWithUser(ctx context.Context, userName string) (*PrivilegesResult, error) {
	if err := application.ValidateRequired("userName", userName); err != nil {
		return nil, err
	}
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	return c.add(ctx, node, userName)
}

func (c *ShareCommand) add(ctx context.Context, node *domain.Node, principal string) (*PrivilegesResult, error) {
	res, err := c.ws.Authority.AddPrivilege(ctx, ports.AddPrivilegeRequest{
		NodeID:     node.ID,
		Principal:  principal,
		Privileges: []domain.Privilege{domain.PrivilegeRead},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to share %s with %s: %w", node.ID, principal, err)
	}
	if err := application.CheckSuccess("addPrivilege", res.ResponseBase); err != nil {
		return nil, err
	}
	if principal == domain.PrincipalPublic {
		node.Public = true
	}
	c.ws.Logger.Info("node shared", "node", node.ID, "principal", principal)
	return c.Privileges(ctx)
}

// Unshare removes one privilege of a principal.
func (c *ShareCommand) Unshare(ctx context.Context, principalNodeID string, privilege domain.Privilege) (*PrivilegesResult, error) {
	if err := application.ValidateRequired("principalID", principalNodeID); err != nil {
		return nil, err
	}
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	res, err := c.ws.Authority.RemovePrivilege(ctx, ports.RemovePrivilegeRequest{
		NodeID:          node.ID,
		PrincipalNodeID: principalNodeID,
		Privilege:       privilege,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove privilege on %s: %w", node.ID, err)
	}
	if err := application.CheckSuccess("removePrivilege", res.ResponseBase); err != nil {
		return nil, err
	}
	if principalNodeID == domain.PrincipalPublic {
		node.Public = false
	}
	return c.Privileges(ctx)
}
