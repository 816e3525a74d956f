package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"arbor/internal/application"
	"arbor/internal/authority"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// recorder wraps the reference authority, counting calls and optionally
// failing saves.
type recorder struct {
	ports.Authority
	calls   []string
	saveErr error
	saved   []*domain.Node
}

func (r *recorder) InitNodeEdit(ctx context.Context, req ports.InitNodeEditRequest) (*ports.InitNodeEditResponse, error) {
	r.calls = append(r.calls, "initNodeEdit")
	return r.Authority.InitNodeEdit(ctx, req)
}

func (r *recorder) SaveNode(ctx context.Context, req ports.SaveNodeRequest) (*ports.SaveNodeResponse, error) {
	r.calls = append(r.calls, "saveNode")
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.saved = append(r.saved, req.Node.Clone())
	return r.Authority.SaveNode(ctx, req)
}

func (r *recorder) SetNodeType(ctx context.Context, req ports.SetNodeTypeRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "setNodeType")
	return r.Authority.SetNodeType(ctx, req)
}

func (r *recorder) AddPrivilege(ctx context.Context, req ports.AddPrivilegeRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "addPrivilege")
	return r.Authority.AddPrivilege(ctx, req)
}

func (r *recorder) DeleteProperty(ctx context.Context, req ports.DeletePropertyRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, "deleteProperty")
	return r.Authority.DeleteProperty(ctx, req)
}

// fakeEncryptor marks ciphertext as ct(...) so tests can read it.
type fakeEncryptor struct{}

func (fakeEncryptor) EncryptSharable(plaintext string) (*ports.SymKeyPackage, error) {
	return &ports.SymKeyPackage{CipherText: "ct(" + plaintext + ")", CipherKey: "content-key"}, nil
}

func (fakeEncryptor) EncryptWithCipherKey(key, plaintext string) (string, error) {
	if key == "" {
		return "", errors.New("no key")
	}
	return "ct(" + plaintext + ")", nil
}

func (fakeEncryptor) DecryptWithCipherKey(key, cipherText string) (string, error) {
	if key != "content-key" {
		return "", errors.New("wrong key")
	}
	return strings.TrimSuffix(strings.TrimPrefix(cipherText, "ct("), ")"), nil
}

func (fakeEncryptor) WrapForPrincipal(cipherKey, publicKey string) (string, error) {
	return cipherKey + "@" + publicKey, nil
}

func (fakeEncryptor) PublicKey() string { return "pk-ann" }

// keyRecorder is a KeyDistributor that records what it was asked to do.
type keyRecorder struct {
	nodes   []*domain.Node
	entries [][]domain.AccessControlEntry
	err     error
}

func (k *keyRecorder) Distribute(_ context.Context, node *domain.Node, entries []domain.AccessControlEntry) error {
	k.nodes = append(k.nodes, node)
	k.entries = append(k.entries, entries)
	return k.err
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *authority.Service
	store *authority.MemoryStore
	rec   *recorder
	keys  *keyRecorder
	ws    *application.Workspace
	ctl   *Controller
	home  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := authority.NewMemoryStore()
	svc := authority.NewService(store)
	if err := svc.Bootstrap(ctx, "admin"); err != nil {
		t.Fatal(err)
	}
	ann, err := svc.EnsureUser(ctx, "ann", authority.AccountOptions{PublicKey: "pk-ann"})
	if err != nil {
		t.Fatal(err)
	}

	rec := &recorder{Authority: svc.As("ann")}
	ws, err := application.NewWorkspace(application.Config{
		Authority:   rec,
		Encryptor:   fakeEncryptor{},
		Identity:    application.Identity{UserName: "ann", UserNodeID: ann.ID},
		Preferences: application.Preferences{EditMode: true},
		HomeNodeID:  ann.HomeNodeID,
	})
	if err != nil {
		t.Fatal(err)
	}
	keys := &keyRecorder{}
	return &harness{
		t:     t,
		ctx:   ctx,
		svc:   svc,
		store: store,
		rec:   rec,
		keys:  keys,
		ws:    ws,
		ctl:   NewController(ws, keys),
		home:  ann.HomeNodeID,
	}
}

// addNode creates a child of ann's home, stores it with the given
// properties and content, and refreshes the view.
func (h *harness) addNode(name, content string, props ...domain.Property) *domain.Node {
	h.t.Helper()
	res, err := h.svc.As("ann").CreateSubNode(h.ctx, ports.CreateSubNodeRequest{NodeID: h.home, NewNodeName: name})
	if err != nil || !res.Success {
		h.t.Fatalf("create %s: %v", name, err)
	}
	n, err := h.store.Node(h.ctx, res.NewNode.ID)
	if err != nil {
		h.t.Fatal(err)
	}
	n.Content = content
	n.Properties = props
	if err := h.store.PutNode(h.ctx, n); err != nil {
		h.t.Fatal(err)
	}
	if err := h.ws.Refresh(h.ctx, ""); err != nil {
		h.t.Fatal(err)
	}
	return n
}

func (h *harness) stored(id string) *domain.Node {
	h.t.Helper()
	n, err := h.store.Node(h.ctx, id)
	if err != nil {
		h.t.Fatal(err)
	}
	return n
}

func (h *harness) open(id string) *Session {
	h.t.Helper()
	s, err := h.ctl.OpenForEdit(h.ctx, id)
	if err != nil {
		h.t.Fatalf("open %s: %v", id, err)
	}
	return s
}

func (h *harness) count(op string) int {
	n := 0
	for _, c := range h.rec.calls {
		if c == op {
			n++
		}
	}
	return n
}

func authorityOptions(publicKey string) authority.AccountOptions {
	return authority.AccountOptions{PublicKey: publicKey}
}
