package authority

import (
	"context"

	"arbor/internal/ports"
)

// As returns an in-process ports.Authority that issues every request as
// user.
func (s *Service) As(user string) ports.Authority {
	return &userClient{svc: s, user: user}
}

type userClient struct {
	svc  *Service
	user string
}

func (c *userClient) ctx(ctx context.Context) context.Context {
	return WithUser(ctx, c.user)
}

func (c *userClient) RenderNode(ctx context.Context, req ports.RenderNodeRequest) (*ports.RenderNodeResponse, error) {
	return c.svc.RenderNode(c.ctx(ctx), req)
}

func (c *userClient) InsertNode(ctx context.Context, req ports.InsertNodeRequest) (*ports.InsertNodeResponse, error) {
	return c.svc.InsertNode(c.ctx(ctx), req)
}

func (c *userClient) CreateSubNode(ctx context.Context, req ports.CreateSubNodeRequest) (*ports.CreateSubNodeResponse, error) {
	return c.svc.CreateSubNode(c.ctx(ctx), req)
}

func (c *userClient) DeleteNodes(ctx context.Context, req ports.DeleteNodesRequest) (*ports.Ack, error) {
	return c.svc.DeleteNodes(c.ctx(ctx), req)
}

func (c *userClient) MoveNodes(ctx context.Context, req ports.MoveNodesRequest) (*ports.Ack, error) {
	return c.svc.MoveNodes(c.ctx(ctx), req)
}

func (c *userClient) SetNodePosition(ctx context.Context, req ports.SetNodePositionRequest) (*ports.Ack, error) {
	return c.svc.SetNodePosition(c.ctx(ctx), req)
}

func (c *userClient) SplitNode(ctx context.Context, req ports.SplitNodeRequest) (*ports.Ack, error) {
	return c.svc.SplitNode(c.ctx(ctx), req)
}

func (c *userClient) SelectAllNodes(ctx context.Context, req ports.SelectAllNodesRequest) (*ports.SelectAllNodesResponse, error) {
	return c.svc.SelectAllNodes(c.ctx(ctx), req)
}

func (c *userClient) InsertBook(ctx context.Context, req ports.InsertBookRequest) (*ports.InsertBookResponse, error) {
	return c.svc.InsertBook(c.ctx(ctx), req)
}

func (c *userClient) InitNodeEdit(ctx context.Context, req ports.InitNodeEditRequest) (*ports.InitNodeEditResponse, error) {
	return c.svc.InitNodeEdit(c.ctx(ctx), req)
}

func (c *userClient) SaveNode(ctx context.Context, req ports.SaveNodeRequest) (*ports.SaveNodeResponse, error) {
	return c.svc.SaveNode(c.ctx(ctx), req)
}

func (c *userClient) SetNodeType(ctx context.Context, req ports.SetNodeTypeRequest) (*ports.Ack, error) {
	return c.svc.SetNodeType(c.ctx(ctx), req)
}

func (c *userClient) DeleteProperty(ctx context.Context, req ports.DeletePropertyRequest) (*ports.Ack, error) {
	return c.svc.DeleteProperty(c.ctx(ctx), req)
}

func (c *userClient) GetNodePrivileges(ctx context.Context, req ports.GetNodePrivilegesRequest) (*ports.GetNodePrivilegesResponse, error) {
	return c.svc.GetNodePrivileges(c.ctx(ctx), req)
}

func (c *userClient) AddPrivilege(ctx context.Context, req ports.AddPrivilegeRequest) (*ports.Ack, error) {
	return c.svc.AddPrivilege(c.ctx(ctx), req)
}

func (c *userClient) RemovePrivilege(ctx context.Context, req ports.RemovePrivilegeRequest) (*ports.Ack, error) {
	return c.svc.RemovePrivilege(c.ctx(ctx), req)
}

func (c *userClient) SetCipherKey(ctx context.Context, req ports.SetCipherKeyRequest) (*ports.Ack, error) {
	return c.svc.SetCipherKey(c.ctx(ctx), req)
}
