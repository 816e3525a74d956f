package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arbor/internal/application"
	"arbor/internal/authority"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// keyRecorder records SetCipherKey calls and fails them for chosen
// principals.
type keyRecorder struct {
	ports.Authority
	calls  []string
	failed map[string]bool
}

func (r *keyRecorder) SetCipherKey(ctx context.Context, req ports.SetCipherKeyRequest) (*ports.Ack, error) {
	r.calls = append(r.calls, req.PrincipalNodeID)
	if r.failed[req.PrincipalNodeID] {
		return nil, fmt.Errorf("connection reset")
	}
	return r.Authority.SetCipherKey(ctx, req)
}

type fakeEncryptor struct{}

func (fakeEncryptor) EncryptSharable(plaintext string) (*ports.SymKeyPackage, error) {
	return &ports.SymKeyPackage{CipherText: "enc:" + plaintext, CipherKey: "key"}, nil
}
func (fakeEncryptor) EncryptWithCipherKey(key, plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}
func (fakeEncryptor) DecryptWithCipherKey(key, cipherText string) (string, error) {
	return cipherText[len("enc:"):], nil
}
func (fakeEncryptor) WrapForPrincipal(cipherKey, publicKey string) (string, error) {
	return cipherKey + "@" + publicKey, nil
}
func (fakeEncryptor) PublicKey() string { return "pk-ann" }

type memQueue struct {
	mu      sync.Mutex
	entries []ports.PendingKey
}

func (q *memQueue) Enqueue(_ context.Context, entries []ports.PendingKey) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		q.removeLocked(e.NodeID, e.PrincipalNodeID)
		q.entries = append(q.entries, e)
	}
	return nil
}

func (q *memQueue) Pending(context.Context) ([]ports.PendingKey, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ports.PendingKey(nil), q.entries...), nil
}

func (q *memQueue) Remove(_ context.Context, nodeID, principalID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(nodeID, principalID)
	return nil
}

func (q *memQueue) removeLocked(nodeID, principalID string) {
	out := q.entries[:0]
	for _, e := range q.entries {
		if e.NodeID != nodeID || e.PrincipalNodeID != principalID {
			out = append(out, e)
		}
	}
	q.entries = out
}

func (q *memQueue) Close() error { return nil }

type fixture struct {
	store      *authority.MemoryStore
	rec        *keyRecorder
	queue      *memQueue
	dist       *Distributor
	node       *domain.Node
	entries    []domain.AccessControlEntry
	principals map[string]string
}

func newFixture(t *testing.T) *fixture {
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

	f := &fixture{store: store, queue: &memQueue{}, principals: map[string]string{}}
	for _, name := range []string{"p1", "p2", "p3"} {
		p, err := svc.EnsureUser(ctx, name, authority.AccountOptions{PublicKey: "pk-" + name})
		if err != nil {
			t.Fatal(err)
		}
		f.principals[name] = p.ID
		f.entries = append(f.entries, domain.AccessControlEntry{
			PrincipalNodeID: p.ID,
			PrincipalName:   name,
			PublicKey:       p.PublicKey,
		})
	}

	api := svc.As("ann")
	res, err := api.CreateSubNode(ctx, ports.CreateSubNodeRequest{NodeID: ann.HomeNodeID, NewNodeName: "secret"})
	if err != nil || !res.Success {
		t.Fatalf("create: %v", err)
	}
	f.node = res.NewNode.Clone()
	f.node.Content = domain.EncryptionTag + "enc:hello"
	f.node.CipherKey = "key"

	f.rec = &keyRecorder{Authority: api, failed: map[string]bool{}}
	f.dist = NewDistributor(f.rec, fakeEncryptor{}, f.queue)
	return f
}

func (f *fixture) storedKey(t *testing.T, principal string) string {
	t.Helper()
	key, err := f.store.CipherKey(context.Background(), f.node.ID, f.principals[principal])
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestDistribute_AllDelivered(t *testing.T) {
	f := newFixture(t)

	if err := f.dist.Distribute(context.Background(), f.node, f.entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{"p1", "p2", "p3"} {
		if got, want := f.storedKey(t, p), "key@pk-"+p; got != want {
			t.Errorf("expected key %q for %s, got %q", want, p, got)
		}
	}
	if len(f.queue.entries) != 0 {
		t.Errorf("expected empty queue, got %d entries", len(f.queue.entries))
	}
}

func TestDistribute_StopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.rec.failed[f.principals["p2"]] = true

	err := f.dist.Distribute(context.Background(), f.node, f.entries)

	var partial *application.PartialDistributionError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialDistributionError, got %v", err)
	}
	if !errors.Is(err, application.ErrPartialDelivery) {
		t.Error("expected error to match ErrPartialDelivery")
	}
	if partial.Failed != f.principals["p2"] {
		t.Errorf("expected failed principal p2, got %s", partial.Failed)
	}
	if diff := cmp.Diff([]string{f.principals["p1"]}, partial.Delivered); diff != "" {
		t.Errorf("delivered mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{f.principals["p2"], f.principals["p3"]}, partial.Pending); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	// p3 is never attempted once p2 failed.
	if diff := cmp.Diff([]string{f.principals["p1"], f.principals["p2"]}, f.rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if got := f.storedKey(t, "p1"); got != "key@pk-p1" {
		t.Errorf("expected p1 to keep its key, got %q", got)
	}
	if got := f.storedKey(t, "p3"); got != "" {
		t.Errorf("expected no key for p3, got %q", got)
	}

	if len(f.queue.entries) != 2 {
		t.Fatalf("expected 2 queued entries, got %d", len(f.queue.entries))
	}
	for i, e := range f.queue.entries {
		if e.CipherKey != "key" || e.NodeID != f.node.ID || e.Seq != i {
			t.Errorf("unexpected queued entry %+v", e)
		}
	}
}

func TestDistribute_MissingPublicKeyFails(t *testing.T) {
	f := newFixture(t)
	f.entries[0].PublicKey = ""

	err := f.dist.Distribute(context.Background(), f.node, f.entries)
	var partial *application.PartialDistributionError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialDistributionError, got %v", err)
	}
	if len(partial.Delivered) != 0 {
		t.Errorf("expected nothing delivered, got %v", partial.Delivered)
	}
	if len(f.rec.calls) != 0 {
		t.Errorf("expected no remote call, got %v", f.rec.calls)
	}
}

func TestDistribute_NoOp(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		node    *domain.Node
		entries []domain.AccessControlEntry
	}{
		{name: "nil node", node: nil, entries: f.entries},
		{name: "plaintext node", node: &domain.Node{ID: f.node.ID, Content: "hello"}, entries: f.entries},
		{name: "no entries", node: f.node, entries: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.dist.Distribute(context.Background(), tt.node, tt.entries); err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		})
	}
	if len(f.rec.calls) != 0 {
		t.Errorf("expected no remote calls, got %v", f.rec.calls)
	}
}

func TestRetryPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rec.failed[f.principals["p2"]] = true
	_ = f.dist.Distribute(ctx, f.node, f.entries)

	// Still failing: the node stops at p2, p3 is left untouched.
	f.rec.calls = nil
	report, err := f.dist.RetryPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Delivered != 0 || report.Remaining != 2 {
		t.Errorf("expected 0 delivered and 2 remaining, got %+v", report)
	}
	if diff := cmp.Diff([]string{f.principals["p2"]}, f.rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	delete(f.rec.failed, f.principals["p2"])
	report, err = f.dist.RetryPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Delivered != 2 || report.Remaining != 0 {
		t.Errorf("expected 2 delivered and 0 remaining, got %+v", report)
	}
	if len(f.queue.entries) != 0 {
		t.Errorf("expected queue drained, got %d", len(f.queue.entries))
	}
	for _, p := range []string{"p2", "p3"} {
		if got := f.storedKey(t, p); got != "key@pk-"+p {
			t.Errorf("expected %s to have its key, got %q", p, got)
		}
	}
}

func TestRetryPending_NoQueue(t *testing.T) {
	d := NewDistributor(nil, fakeEncryptor{}, nil)
	report, err := d.RetryPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Delivered != 0 || report.Remaining != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}
