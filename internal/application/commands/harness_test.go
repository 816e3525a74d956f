package commands

import (
	"context"
	"slices"
	"strings"
	"testing"

	"arbor/internal/application"
	"arbor/internal/application/session"
	"arbor/internal/authority"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// recorder wraps the reference authority and records the mutating calls
// commands make.
type recorder struct {
	ports.Authority
	calls   []string
	inserts []ports.InsertNodeRequest
	creates []ports.CreateSubNodeRequest
}

func (r *recorder) called(op string) bool {
	return slices.Contains(r.calls, op)
}

func (r *recorder) InsertNode(ctx context.Context, req ports.InsertNodeRequest) (*ports.InsertNodeResponse, error) {
	r.calls = append(r.calls, "insertNode")
	r.inserts = append(r.inserts, req)
	return r.Authority.InsertNode(ctx, req)
}

func (r *recorder) CreateSubNode(ctx context.Context, req ports.CreateSubNodeRequest) (*ports.CreateSubNodeResponse, error) {
	r.calls = append(r.calls, "createSubNode")
	r.creates = append(r.creates, req)
	return r.Authority.CreateSubNode(ctx, req)
}

func (r *recorder) DeleteNodes(ctx context.Context, req ports.DeleteNodesRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "deleteNodes")
	return r.Authority.DeleteNodes(ctx, req)
}

func (r *recorder) MoveNodes(ctx context.Context, req ports.MoveNodesRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "moveNodes")
	return r.Authority.MoveNodes(ctx, req)
}

func (r *recorder) SetNodePosition(ctx context.Context, req ports.SetNodePositionRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "setNodePosition")
	return r.Authority.SetNodePosition(ctx, req)
}

func (r *recorder) AddPrivilege(ctx context.Context, req ports.AddPrivilegeRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "addPrivilege")
	return r.Authority.AddPrivilege(ctx, req)
}

func (r *recorder) SplitNode(ctx context.Context, req ports.SplitNodeRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "splitNode")
	return r.Authority.SplitNode(ctx, req)
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	svc      *authority.Service
	rec      *recorder
	ws       *application.Workspace
	sessions *session.Controller
	home     string
}

// newHarness logs in as ann with edit mode on and the view on her home
// node holding the named children.
func newHarness(t *testing.T, children ...string) *harness {
	t.Helper()
	ctx := context.Background()
	svc := authority.NewService(authority.NewMemoryStore())
	if err := svc.Bootstrap(ctx, "admin"); err != nil {
		t.Fatal(err)
	}
	ann, err := svc.EnsureUser(ctx, "ann", authority.AccountOptions{PublicKey: "pk-ann"})
	if err != nil {
		t.Fatal(err)
	}

	api := svc.As("ann")
	for _, name := range children {
		res, err := api.CreateSubNode(ctx, ports.CreateSubNodeRequest{NodeID: ann.HomeNodeID, NewNodeName: name})
		if err != nil || !res.Success {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	rec := &recorder{Authority: api}
	ws, err := application.NewWorkspace(application.Config{
		Authority:   rec,
		Identity:    application.Identity{UserName: "ann", UserNodeID: ann.ID},
		Preferences: application.Preferences{EditMode: true},
		HomeNodeID:  ann.HomeNodeID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Refresh(ctx, ""); err != nil {
		t.Fatal(err)
	}
	return &harness{
		t:        t,
		ctx:      ctx,
		svc:      svc,
		rec:      rec,
		ws:       ws,
		sessions: session.NewController(ws, nil),
		home:     ann.HomeNodeID,
	}
}

// id returns the id of the displayed child with the given name.
func (h *harness) id(name string) string {
	h.t.Helper()
	for _, c := range h.ws.View.Children() {
		if c.Name == name {
			return c.ID
		}
	}
	h.t.Fatalf("no child named %s", name)
	return ""
}

// render fetches a node and its children from the authority.
func (h *harness) render(id string) (*domain.Node, []*domain.Node) {
	h.t.Helper()
	res, err := h.svc.As("ann").RenderNode(h.ctx, ports.RenderNodeRequest{NodeID: id})
	if err != nil || !res.Success {
		h.t.Fatalf("render %s: %v", id, err)
	}
	if err := domain.CheckOrdinals(res.Children); err != nil {
		h.t.Errorf("ordinals under %s: %v", id, err)
	}
	return res.Node, res.Children
}

func names(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
		if out[i] == "" {
			out[i] = "?"
		}
	}
	return out
}

// contains checks if s contains substr
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
