package authority

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

func newTestService(t *testing.T) (*Service, *Principal) {
	t.Helper()
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	if err := svc.Bootstrap(ctx, "admin"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	ann, err := svc.EnsureUser(ctx, "ann", AccountOptions{PublicKey: "pk-ann"})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return svc, ann
}

func addChildren(t *testing.T, api ports.Authority, parentID string, names ...string) []string {
	t.Helper()
	var ids []string
	for _, name := range names {
		res, err := api.CreateSubNode(context.Background(), ports.CreateSubNodeRequest{NodeID: parentID, NewNodeName: name})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if !res.Success {
			t.Fatalf("create %s rejected: %s", name, res.Message)
		}
		ids = append(ids, res.NewNode.ID)
	}
	return ids
}

// childNames renders parentID and returns child names after checking
// that ordinals are dense.
func childNames(t *testing.T, api ports.Authority, parentID string) []string {
	t.Helper()
	res, err := api.RenderNode(context.Background(), ports.RenderNodeRequest{NodeID: parentID})
	if err != nil || !res.Success {
		t.Fatalf("render %s: %v %s", parentID, err, res.Message)
	}
	if err := domain.CheckOrdinals(res.Children); err != nil {
		t.Errorf("ordinals not dense: %v", err)
	}
	names := make([]string, len(res.Children))
	for i, c := range res.Children {
		names[i] = c.Name
	}
	return names
}

func TestService_InsertNodeClampsAndShifts(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	addChildren(t, api, ann.HomeNodeID, "A", "B")

	tests := []struct {
		name    string
		ordinal int
		want    []string
	}{
		{name: "middle", ordinal: 1, want: []string{"A", "X", "B"}},
		{name: "negative clamps to top", ordinal: -4, want: []string{"Y", "A", "X", "B"}},
		{name: "past end appends", ordinal: 99, want: []string{"Y", "A", "X", "B", "Z"}},
	}

	newNames := map[string]string{"middle": "X", "negative clamps to top": "Y", "past end appends": "Z"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := api.InsertNode(ctx, ports.InsertNodeRequest{
				ParentID:      ann.HomeNodeID,
				TargetOrdinal: tt.ordinal,
				NewNodeName:   newNames[tt.name],
			})
			if err != nil || !res.Success {
				t.Fatalf("insert: %v %s", err, res.Message)
			}
			if res.NewNode.Type != domain.DefaultNodeType {
				t.Errorf("expected default type, got %s", res.NewNode.Type)
			}
			if diff := cmp.Diff(tt.want, childNames(t, api, ann.HomeNodeID)); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_SetNodePositionKeepsOrdinalsDense(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "A", "B", "C", "D")

	steps := []struct {
		id   string
		dir  string
		want []string
	}{
		{ids[0], ports.PositionDown, []string{"B", "A", "C", "D"}},
		{ids[3], ports.PositionTop, []string{"D", "B", "A", "C"}},
		{ids[3], ports.PositionUp, []string{"D", "B", "A", "C"}},
		{ids[1], ports.PositionBottom, []string{"D", "A", "C", "B"}},
		{ids[2], ports.PositionUp, []string{"D", "C", "A", "B"}},
	}

	for _, step := range steps {
		res, err := api.SetNodePosition(ctx, ports.SetNodePositionRequest{NodeID: step.id, TargetName: step.dir})
		if err != nil || !res.Success {
			t.Fatalf("set position %s: %v %s", step.dir, err, res.Message)
		}
		if diff := cmp.Diff(step.want, childNames(t, api, ann.HomeNodeID)); diff != "" {
			t.Errorf("after %s (-want +got):\n%s", step.dir, diff)
		}
	}
}

func TestService_MoveNodes(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "A", "B", "C", "Z")
	a, b, c, z := ids[0], ids[1], ids[2], ids[3]

	res, err := api.MoveNodes(ctx, ports.MoveNodesRequest{TargetNodeID: z, NodeIDs: []string{a, c}, Location: ports.LocationInside})
	if err != nil || !res.Success {
		t.Fatalf("move inside: %v %s", err, res.Message)
	}
	if diff := cmp.Diff([]string{"B", "Z"}, childNames(t, api, ann.HomeNodeID)); diff != "" {
		t.Errorf("old parent (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "C"}, childNames(t, api, z)); diff != "" {
		t.Errorf("new parent (-want +got):\n%s", diff)
	}

	res, err = api.MoveNodes(ctx, ports.MoveNodesRequest{TargetNodeID: c, NodeIDs: []string{b}, Location: ports.LocationInlineAbove})
	if err != nil || !res.Success {
		t.Fatalf("move inline-above: %v %s", err, res.Message)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, childNames(t, api, z)); diff != "" {
		t.Errorf("inline-above (-want +got):\n%s", diff)
	}

	res, err = api.MoveNodes(ctx, ports.MoveNodesRequest{TargetNodeID: a, NodeIDs: []string{z}, Location: ports.LocationInline})
	if err != nil {
		t.Fatalf("move into own subtree: %v", err)
	}
	if res.Success {
		t.Error("expected moving a node under its own child to be rejected")
	}
}

func TestService_MoveInsideAppends(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "A", "B", "Z")
	z := ids[2]
	addChildren(t, api, z, "X", "Y")

	res, err := api.MoveNodes(ctx, ports.MoveNodesRequest{TargetNodeID: z, NodeIDs: []string{ids[1], ids[0]}, Location: ports.LocationInside})
	if err != nil || !res.Success {
		t.Fatalf("move inside: %v %s", err, res.Message)
	}
	if diff := cmp.Diff([]string{"X", "Y", "B", "A"}, childNames(t, api, z)); diff != "" {
		t.Errorf("new parent (-want +got):\n%s", diff)
	}
}

func TestService_DeleteNodes(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "A", "B", "C")

	res, err := api.DeleteNodes(ctx, ports.DeleteNodesRequest{NodeIDs: []string{ids[1]}})
	if err != nil || !res.Success {
		t.Fatalf("soft delete: %v %s", err, res.Message)
	}
	n, _ := svc.store.Node(ctx, ids[1])
	if n == nil || !n.Deleted {
		t.Fatal("expected soft delete to keep the node flagged deleted")
	}

	res, err = api.DeleteNodes(ctx, ports.DeleteNodesRequest{NodeIDs: []string{TrashNodeID}})
	if err != nil || !res.Success {
		t.Fatalf("empty trash: %v %s", err, res.Message)
	}
	if diff := cmp.Diff([]string{"A", "C"}, childNames(t, api, ann.HomeNodeID)); diff != "" {
		t.Errorf("after empty trash (-want +got):\n%s", diff)
	}

	res, err = api.DeleteNodes(ctx, ports.DeleteNodesRequest{NodeIDs: []string{ids[0], ann.HomeNodeID}, HardDelete: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("expected deleting the account home to be rejected")
	}
	if diff := cmp.Diff([]string{"A", "C"}, childNames(t, api, ann.HomeNodeID)); diff != "" {
		t.Errorf("rejected delete changed the tree (-want +got):\n%s", diff)
	}
}

func TestService_EditAuthorization(t *testing.T) {
	svc, ann := newTestService(t)
	ctx := context.Background()
	if _, err := svc.EnsureUser(ctx, "bob", AccountOptions{}); err != nil {
		t.Fatal(err)
	}
	id := addChildren(t, svc.As("ann"), ann.HomeNodeID, "A")[0]

	res, err := svc.As("bob").InitNodeEdit(ctx, ports.InitNodeEditRequest{NodeID: id})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.ExceptionType != ports.ExceptionAuth {
		t.Errorf("expected auth rejection, got %+v", res.ResponseBase)
	}

	save, err := svc.As("bob").SaveNode(ctx, ports.SaveNodeRequest{Node: &domain.Node{ID: id, Content: "hijack"}})
	if err != nil {
		t.Fatal(err)
	}
	if save.Success || save.ExceptionType != ports.ExceptionAuth {
		t.Errorf("expected auth rejection, got %+v", save.ResponseBase)
	}
}

func TestService_EncryptionAndPublicAreExclusive(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "shared", "secret")

	if res, _ := api.AddPrivilege(ctx, ports.AddPrivilegeRequest{NodeID: ids[0], Principal: domain.PrincipalPublic}); !res.Success {
		t.Fatalf("share to public: %s", res.Message)
	}
	save, err := api.SaveNode(ctx, ports.SaveNodeRequest{Node: &domain.Node{ID: ids[0], Content: domain.EncryptionTag + "xyz"}})
	if err != nil {
		t.Fatal(err)
	}
	if save.Success {
		t.Error("expected encrypting a public node to be rejected")
	}

	save, err = api.SaveNode(ctx, ports.SaveNodeRequest{Node: &domain.Node{ID: ids[1], Content: domain.EncryptionTag + "xyz"}})
	if err != nil || !save.Success {
		t.Fatalf("encrypt: %v %s", err, save.Message)
	}
	res, err := api.AddPrivilege(ctx, ports.AddPrivilegeRequest{NodeID: ids[1], Principal: domain.PrincipalPublic})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("expected sharing an encrypted node to public to be rejected")
	}
}

func TestService_SaveReturnsShareEntriesAndKeys(t *testing.T) {
	svc, ann := newTestService(t)
	ctx := context.Background()
	bob, err := svc.EnsureUser(ctx, "bob", AccountOptions{PublicKey: "pk-bob"})
	if err != nil {
		t.Fatal(err)
	}
	api := svc.As("ann")
	id := addChildren(t, api, ann.HomeNodeID, "secret")[0]
	if res, _ := api.AddPrivilege(ctx, ports.AddPrivilegeRequest{NodeID: id, Principal: "bob"}); !res.Success {
		t.Fatalf("share: %s", res.Message)
	}

	save, err := api.SaveNode(ctx, ports.SaveNodeRequest{Node: &domain.Node{ID: id, Content: domain.EncryptionTag + "c"}})
	if err != nil || !save.Success {
		t.Fatalf("save: %v %s", err, save.Message)
	}
	want := []domain.AccessControlEntry{{
		PrincipalNodeID: bob.ID,
		PrincipalName:   "bob",
		PublicKey:       "pk-bob",
		Privileges:      []domain.Privilege{domain.PrivilegeRead},
	}}
	if diff := cmp.Diff(want, save.AclEntries); diff != "" {
		t.Errorf("acl entries (-want +got):\n%s", diff)
	}

	if res, _ := api.SetCipherKey(ctx, ports.SetCipherKeyRequest{NodeID: id, PrincipalNodeID: bob.ID, CipherKey: "wrapped"}); !res.Success {
		t.Fatalf("set cipher key: %s", res.Message)
	}
	render, err := svc.As("bob").RenderNode(ctx, ports.RenderNodeRequest{NodeID: id})
	if err != nil || !render.Success {
		t.Fatalf("render as bob: %v %s", err, render.Message)
	}
	if render.Node.CipherKey != "wrapped" {
		t.Errorf("expected delivered key, got %q", render.Node.CipherKey)
	}
}

func TestService_SplitNode(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()
	ids := addChildren(t, api, ann.HomeNodeID, "A", "B")

	save, err := api.SaveNode(ctx, ports.SaveNodeRequest{Node: &domain.Node{ID: ids[0], Name: "A", Content: "one\n\n\ntwo\n\n\nthree"}})
	if err != nil || !save.Success {
		t.Fatalf("save: %v %s", err, save.Message)
	}
	res, err := api.SplitNode(ctx, ports.SplitNodeRequest{NodeID: ids[0], SplitType: ports.SplitInline})
	if err != nil || !res.Success {
		t.Fatalf("split: %v %s", err, res.Message)
	}

	render, _ := api.RenderNode(ctx, ports.RenderNodeRequest{NodeID: ann.HomeNodeID})
	var contents []string
	for _, c := range render.Children {
		contents = append(contents, c.Content)
	}
	if diff := cmp.Diff([]string{"one", "two", "three", ""}, contents); diff != "" {
		t.Errorf("contents (-want +got):\n%s", diff)
	}
	if err := domain.CheckOrdinals(render.Children); err != nil {
		t.Error(err)
	}
}

func TestService_NotesNode(t *testing.T) {
	svc, ann := newTestService(t)
	api := svc.As("ann")
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		res, err := api.CreateSubNode(ctx, ports.CreateSubNodeRequest{NodeID: NotesNodeID, CreateAtTop: true, Content: text})
		if err != nil || !res.Success {
			t.Fatalf("create note: %v %s", err, res.Message)
		}
	}

	home, _ := api.RenderNode(ctx, ports.RenderNodeRequest{NodeID: ann.HomeNodeID})
	if len(home.Children) != 1 || home.Children[0].Type != TypeNotes {
		t.Fatalf("expected a single notes node under home, got %+v", home.Children)
	}
	notes, _ := api.RenderNode(ctx, ports.RenderNodeRequest{NodeID: home.Children[0].ID})
	if len(notes.Children) != 2 || notes.Children[0].Content != "second" {
		t.Errorf("expected newest note first, got %+v", notes.Children)
	}
}

func TestService_RenderHomeAlias(t *testing.T) {
	svc, ann := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		user string
		want string
	}{
		{"ann", ann.HomeNodeID},
		{"", RootNodeID},
	}
	for _, tt := range tests {
		t.Run("user="+tt.user, func(t *testing.T) {
			res, err := svc.As(tt.user).RenderNode(ctx, ports.RenderNodeRequest{NodeID: HomeNodeID})
			if err != nil || !res.Success {
				t.Fatalf("render home: %v %s", err, res.Message)
			}
			if res.Node.ID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, res.Node.ID)
			}
		})
	}
}

func TestService_InsertBook(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("Title page\n")
	for _, ch := range []string{"I", "II", "III", "IV", "V"} {
		b.WriteString("CHAPTER " + ch + "\n\nText of chapter " + ch + ".\n")
	}
	if err := os.WriteFile(filepath.Join(dir, "War and Peace.txt"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, ann := newTestService(t)
	svc.WithBooksDir(dir)
	api := svc.As("ann")
	ctx := context.Background()

	res, err := api.InsertBook(ctx, ports.InsertBookRequest{NodeID: ann.HomeNodeID, BookName: "War and Peace", Truncated: true})
	if err != nil || !res.Success {
		t.Fatalf("insert book: %v %s", err, res.Message)
	}
	got := childNames(t, api, res.NewNode.ID)
	if diff := cmp.Diff([]string{"CHAPTER I", "CHAPTER II", "CHAPTER III"}, got); diff != "" {
		t.Errorf("chapters (-want +got):\n%s", diff)
	}

	missing, err := api.InsertBook(ctx, ports.InsertBookRequest{NodeID: ann.HomeNodeID, BookName: "../etc/passwd"})
	if err != nil {
		t.Fatal(err)
	}
	if missing.Success {
		t.Error("expected unknown book to be rejected")
	}
}
