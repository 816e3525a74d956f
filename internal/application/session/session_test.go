package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"arbor/internal/application"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Closed, Loading, true},
		{Closed, Editing, false},
		{Loading, Editing, true},
		{Editing, Saving, true},
		{Editing, Cancelling, true},
		{Editing, ChangingType, true},
		{Editing, TogglingEncryption, true},
		{Editing, Closed, false},
		{Saving, Closed, true},
		{Saving, Editing, true},
		{Cancelling, Editing, false},
		{ChangingType, Editing, true},
		{ChangingType, Closed, false},
		{TogglingEncryption, Editing, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSession_LoadClassifiesProperties(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "hello",
		domain.Property{Name: domain.PropLayout, Value: "c2"},
		domain.Property{Name: domain.PropPriority, Value: "3"},
		domain.Property{Name: domain.PropMimeType, Value: "image/png"},
		domain.Property{Name: "color", Value: "red"},
		domain.Property{Name: domain.PropNoWrap, Value: domain.FlagSet},
	)

	s := h.open(n.ID)

	if s.State() != Editing {
		t.Fatalf("expected editing, got %s", s.State())
	}
	if s.Content() != "hello" || s.Name() != "A" {
		t.Errorf("unexpected buffers name=%q content=%q", s.Name(), s.Content())
	}
	if s.Layout() != "c2" || s.Priority() != "3" || s.ImageSize() != domain.DefaultImageSize {
		t.Errorf("unexpected controls layout=%q priority=%q size=%q", s.Layout(), s.Priority(), s.ImageSize())
	}
	if want := (Flags{WordWrap: false}); s.Flags() != want {
		t.Errorf("expected flags %+v, got %+v", want, s.Flags())
	}

	want := []Generic{{Name: "color", Value: "red", Visible: true}}
	if diff := cmp.Diff(want, s.GenericFields()); diff != "" {
		t.Errorf("generic fields mismatch (-want +got):\n%s", diff)
	}

	var controls []domain.Control
	for _, f := range s.Fields() {
		if c, ok := f.(ControlBound); ok {
			controls = append(controls, c.Control)
		}
	}
	if diff := cmp.Diff([]domain.Control{domain.ControlLayout, domain.ControlPriority, domain.ControlNoWrap}, controls); diff != "" {
		t.Errorf("control bound mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ShowReadOnly(t *testing.T) {
	h := newHarness(t)
	h.ws.Prefs.ShowReadOnly = true
	n := h.addNode("A", "", domain.Property{Name: domain.PropMimeType, Value: "text/plain"})

	s := h.open(n.ID)
	want := []Generic{{Name: domain.PropMimeType, Value: "text/plain", ReadOnly: true, Visible: true}}
	if diff := cmp.Diff(want, s.GenericFields()); diff != "" {
		t.Errorf("generic fields mismatch (-want +got):\n%s", diff)
	}
	if err := s.SetProperty(domain.PropMimeType, "x"); err == nil {
		t.Error("expected read-only property to reject edits")
	}
}

func TestSession_ReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "hello",
		domain.Property{Name: "color", Value: "red"},
		domain.Property{Name: domain.PropPriority, Value: "2"},
		domain.Property{Name: domain.PropPreformatted, Value: domain.FlagSet},
	)
	s := h.open(n.ID)

	first, second := s.Reconcile(), s.Reconcile()
	if diff := cmp.Diff(first.Properties, second.Properties); diff != "" {
		t.Errorf("reconcile not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reconcile not idempotent (-first +second):\n%s", diff)
	}
	if s.State() != Editing {
		t.Errorf("expected reconcile to leave state alone, got %s", s.State())
	}
}

func TestSession_ReconcileHarvestsControls(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "body",
		domain.Property{Name: domain.PropLayout, Value: "c3"},
		domain.Property{Name: domain.PropMimeType, Value: "image/png"},
		domain.Property{Name: "color", Value: "red"},
	)
	// Give A a child so the layout control applies.
	if _, err := h.svc.As("ann").CreateSubNode(h.ctx, ports.CreateSubNodeRequest{NodeID: n.ID}); err != nil {
		t.Fatal(err)
	}
	h.ws.Refresh(h.ctx, "")

	s := h.open(n.ID)
	if err := s.SetFlags(Flags{Preformatted: true, WordWrap: false, InlineChildren: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLayout(domain.DefaultLayout); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPriority("4"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetImageSize("200"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProperty("color", "blue"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetName(""); err != nil {
		t.Fatal(err)
	}

	out := s.Reconcile()
	want := []domain.Property{
		{Name: "color", Value: "blue"},
		{Name: domain.PropPreformatted, Value: domain.FlagSet},
		{Name: domain.PropNoWrap, Value: domain.FlagSet},
		{Name: domain.PropInlineChildren, Value: domain.FlagSet},
		{Name: domain.PropPriority, Value: "4"},
		{Name: domain.PropImageSize, Value: "200"},
	}
	if diff := cmp.Diff(want, out.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	if out.Name != "" || out.Content != "body" {
		t.Errorf("unexpected name=%q content=%q", out.Name, out.Content)
	}
}

func TestSession_SaveClosesAndRefreshes(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "old")
	s := h.open(n.ID)

	s.SetName("renamed")
	s.SetContent("new")
	result, err := s.Save(h.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.State() != Closed || h.ctl.Active() != nil {
		t.Errorf("expected session closed, got %s", s.State())
	}
	if result.Message != "Saved renamed" {
		t.Errorf("unexpected message %q", result.Message)
	}
	stored := h.stored(n.ID)
	if stored.Name != "renamed" || stored.Content != "new" {
		t.Errorf("unexpected stored node %+v", stored)
	}
	if got := h.ws.View.Highlighted(); got == nil || got.ID != n.ID {
		t.Errorf("expected saved node highlighted, got %v", got)
	}
	if len(h.keys.nodes) != 1 || len(h.keys.entries[0]) != 0 {
		t.Errorf("expected one distribution call with no entries, got %d", len(h.keys.nodes))
	}

	if err := s.SetName("again"); !errors.Is(err, application.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.Save(h.ctx); !errors.Is(err, application.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_SaveFailureKeepsEditing(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "old")
	s := h.open(n.ID)
	h.rec.saveErr = errors.New("connection refused")

	s.SetContent("new")
	if _, err := s.Save(h.ctx); err == nil {
		t.Fatal("expected save error")
	}
	if s.State() != Editing {
		t.Errorf("expected editing after failed save, got %s", s.State())
	}
	if s.Content() != "new" {
		t.Errorf("expected buffer kept, got %q", s.Content())
	}
	if len(h.keys.nodes) != 0 {
		t.Error("expected no key distribution after a failed save")
	}
	if h.stored(n.ID).Content != "old" {
		t.Error("expected stored content unchanged")
	}

	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Closed {
		t.Errorf("expected closed after cancel, got %s", s.State())
	}
}

func TestSession_EncryptPublicNodeRejectedLocally(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "hello")
	if res, err := h.svc.As("ann").AddPrivilege(h.ctx, ports.AddPrivilegeRequest{NodeID: n.ID, Principal: domain.PrincipalPublic}); err != nil || !res.Success {
		t.Fatalf("share: %v", err)
	}
	s := h.open(n.ID)
	before := len(h.rec.calls)

	err := s.SetEncryption(true)
	if !errors.Is(err, application.ErrEncryptedPublic) {
		t.Fatalf("expected ErrEncryptedPublic, got %v", err)
	}
	if len(h.rec.calls) != before {
		t.Errorf("expected no remote call, got %v", h.rec.calls[before:])
	}
	if s.Encrypted() || s.State() != Editing {
		t.Errorf("expected plaintext editing session, encrypted=%v state=%s", s.Encrypted(), s.State())
	}
}

func TestSession_EncryptedSaveDistributesKeys(t *testing.T) {
	h := newHarness(t)
	bob, err := h.svc.EnsureUser(h.ctx, "bob", authorityOptions("pk-bob"))
	if err != nil {
		t.Fatal(err)
	}
	n := h.addNode("A", "secret")
	if res, err := h.svc.As("ann").AddPrivilege(h.ctx, ports.AddPrivilegeRequest{NodeID: n.ID, Principal: "bob"}); err != nil || !res.Success {
		t.Fatalf("share: %v", err)
	}

	s := h.open(n.ID)
	if err := s.SetEncryption(true); err != nil {
		t.Fatal(err)
	}
	if !s.Encrypted() {
		t.Fatal("expected session to be encrypted")
	}
	s.SetContent("secret v2")
	result, err := s.Save(h.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := h.stored(n.ID)
	if stored.Content != domain.EncryptionTag+"ct(secret v2)" {
		t.Errorf("expected ciphertext stored, got %q", stored.Content)
	}
	if key, _ := stored.PropertyValue(domain.PropEncryptionKey); key != "content-key" {
		t.Errorf("expected content key property, got %q", key)
	}
	for _, sent := range h.rec.saved {
		if sent.Content == "secret v2" {
			t.Error("plaintext was sent for an encrypted node")
		}
	}

	if result.Shared != 1 || len(h.keys.entries) != 1 {
		t.Fatalf("expected one share entry, got %d", result.Shared)
	}
	if got := h.keys.entries[0][0]; got.PrincipalNodeID != bob.ID || got.PublicKey != "pk-bob" {
		t.Errorf("unexpected entry %+v", got)
	}
	if h.keys.nodes[0].ContentKey() != "content-key" {
		t.Errorf("expected distribution to carry the content key, got %q", h.keys.nodes[0].ContentKey())
	}
}

func TestSession_PartialDistributionIsDistinct(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "secret")
	h.keys.err = &application.PartialDistributionError{NodeID: n.ID, Failed: "p2", Pending: []string{"p2", "p3"}, Err: errors.New("down")}

	s := h.open(n.ID)
	s.SetEncryption(true)
	result, err := s.Save(h.ctx)

	if !errors.Is(err, application.ErrPartialDelivery) {
		t.Fatalf("expected ErrPartialDelivery, got %v", err)
	}
	if result == nil || result.Node == nil {
		t.Fatal("expected a save result alongside the distribution error")
	}
	if s.State() != Closed {
		t.Errorf("expected session closed after a saved node, got %s", s.State())
	}
	if !h.stored(n.ID).IsEncrypted() {
		t.Error("expected node saved encrypted")
	}
}

func TestSession_DecryptOnLoad(t *testing.T) {
	h := newHarness(t)
	readable := h.addNode("A", domain.EncryptionTag+"ct(hidden)",
		domain.Property{Name: domain.PropEncryptionKey, Value: "content-key"})
	sealed := h.addNode("B", domain.EncryptionTag+"ct(other)",
		domain.Property{Name: domain.PropEncryptionKey, Value: "someone-elses-key"})

	s := h.open(readable.ID)
	if s.Content() != "hidden" || s.Unreadable() {
		t.Errorf("expected decrypted content, got %q", s.Content())
	}
	s.Cancel()

	s = h.open(sealed.ID)
	if s.Content() != EncryptedPlaceholder || !s.Unreadable() {
		t.Errorf("expected placeholder, got %q", s.Content())
	}
	if err := s.SetContent("x"); !application.IsUserInput(err) {
		t.Errorf("expected unreadable content to be read-only, got %v", err)
	}
	if err := s.SetEncryption(false); !application.IsUserInput(err) {
		t.Errorf("expected decryption refused without key, got %v", err)
	}
	s.SetName("renamed")
	if _, err := s.Save(h.ctx); err != nil {
		t.Fatal(err)
	}
	if got := h.stored(sealed.ID).Content; got != domain.EncryptionTag+"ct(other)" {
		t.Errorf("expected ciphertext preserved, got %q", got)
	}
}

func TestSession_DisableEncryption(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", domain.EncryptionTag+"ct(hidden)",
		domain.Property{Name: domain.PropEncryptionKey, Value: "content-key"})

	s := h.open(n.ID)
	if err := s.SetEncryption(false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(h.ctx); err != nil {
		t.Fatal(err)
	}
	stored := h.stored(n.ID)
	if stored.Content != "hidden" {
		t.Errorf("expected plaintext stored, got %q", stored.Content)
	}
	if _, ok := stored.PropertyValue(domain.PropEncryptionKey); ok {
		t.Error("expected content key property removed")
	}
}

func TestSession_ChangeType(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "hello")
	s := h.open(n.ID)

	if err := s.ChangeType(h.ctx, "md"); err != nil {
		t.Fatal(err)
	}
	if s.State() != Editing {
		t.Errorf("expected editing after type change, got %s", s.State())
	}
	if s.Node().Type != "md" || h.stored(n.ID).Type != "md" {
		t.Errorf("expected type md, got session=%q stored=%q", s.Node().Type, h.stored(n.ID).Type)
	}
	if s.Content() != "hello" {
		t.Errorf("expected buffer untouched, got %q", s.Content())
	}
	if err := s.ChangeType(h.ctx, ""); err == nil {
		t.Error("expected empty type to be rejected")
	}
}

func TestSession_DeleteMarkedProperties(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "",
		domain.Property{Name: "color", Value: "red"},
		domain.Property{Name: "size", Value: "xl"},
	)
	s := h.open(n.ID)

	if s.CanDeleteProperties() {
		t.Error("expected delete disabled with nothing checked")
	}
	if err := s.DeleteMarkedProperties(h.ctx); !application.IsUserInput(err) {
		t.Errorf("expected user input error, got %v", err)
	}
	s.MarkForDeletion("color", true)
	s.MarkForDeletion("size", true)
	s.MarkForDeletion("size", false)
	if !s.CanDeleteProperties() {
		t.Fatal("expected delete enabled")
	}

	if err := s.DeleteMarkedProperties(h.ctx); err != nil {
		t.Fatal(err)
	}
	if h.count("deleteProperty") != 1 {
		t.Errorf("expected one delete request, got %d", h.count("deleteProperty"))
	}
	want := []Generic{{Name: "size", Value: "xl", Visible: true}}
	if diff := cmp.Diff(want, s.GenericFields()); diff != "" {
		t.Errorf("generic fields mismatch (-want +got):\n%s", diff)
	}
	if _, ok := h.stored(n.ID).PropertyValue("color"); ok {
		t.Error("expected color removed on the authority")
	}
}

func TestSession_AddPropertyAndInsertTime(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", "log")
	s := h.open(n.ID)

	if err := s.AddProperty("mood", "calm"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProperty(domain.PropLayout, "c2"); err == nil {
		t.Error("expected reserved name to be rejected")
	}
	if err := s.AddProperty("mood", "again"); err == nil {
		t.Error("expected duplicate name to be rejected")
	}
	if err := s.InsertTime(time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if s.Content() != "log[2024/03/09 14:05:06]" {
		t.Errorf("unexpected content %q", s.Content())
	}

	if _, err := s.Save(h.ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := h.stored(n.ID).PropertyValue("mood"); v != "calm" {
		t.Errorf("expected mood stored, got %q", v)
	}
}

func TestController_OpenRules(t *testing.T) {
	h := newHarness(t)
	a := h.addNode("A", "")
	b := h.addNode("B", "")

	h.open(a.ID)
	if _, err := h.ctl.OpenForEdit(h.ctx, b.ID); !errors.Is(err, application.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	h.ctl.Active().Cancel()

	// The local check refuses before asking the authority.
	h.ws.ToggleEditMode()
	before := h.count("initNodeEdit")
	_, err := h.ctl.OpenForEdit(h.ctx, b.ID)
	var authErr *application.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if h.count("initNodeEdit") != before {
		t.Error("expected no load request when edit mode is off")
	}
	h.ws.ToggleEditMode()

	// Only the authority can allow: a node owned by someone else is denied.
	bob, err := h.svc.EnsureUser(h.ctx, "bob", authorityOptions("pk-bob"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.ctl.OpenForEdit(h.ctx, bob.HomeNodeID)
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if h.ctl.Active() != nil {
		t.Error("expected no active session after a refused open")
	}
}

func TestSession_DeliveredKeyDecrypts(t *testing.T) {
	h := newHarness(t)
	n := h.addNode("A", domain.EncryptionTag+"ct(secret)", domain.Property{Name: domain.PropEncryptionKey, Value: "wrapped-for-owner"})
	if err := h.store.PutCipherKey(h.ctx, n.ID, h.ws.Identity.UserNodeID, "content-key"); err != nil {
		t.Fatal(err)
	}

	s := h.open(n.ID)
	if s.Content() != "secret" {
		t.Fatalf("expected decrypted content, got %q", s.Content())
	}
	s.SetContent("secret v2")
	if _, err := s.Save(h.ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.stored(n.ID).Content; got != domain.EncryptionTag+"ct(secret v2)" {
		t.Errorf("expected re-encrypted content, got %q", got)
	}
}

func TestSession_EncryptIgnoresStaleDeliveredKey(t *testing.T) {
	h := newHarness(t)
	bob, err := h.svc.EnsureUser(h.ctx, "bob", authorityOptions("pk-bob"))
	if err != nil {
		t.Fatal(err)
	}
	n := h.addNode("A", "plain")
	if res, err := h.svc.As("ann").AddPrivilege(h.ctx, ports.AddPrivilegeRequest{NodeID: n.ID, Principal: "bob"}); err != nil || !res.Success {
		t.Fatalf("share: %v", err)
	}
	if err := h.store.PutCipherKey(h.ctx, n.ID, h.ws.Identity.UserNodeID, "stale"); err != nil {
		t.Fatal(err)
	}

	s := h.open(n.ID)
	if err := s.SetEncryption(true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(h.ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.keys.nodes) != 1 || h.keys.entries[0][0].PrincipalNodeID != bob.ID {
		t.Fatalf("expected one distribution to bob, got %d", len(h.keys.nodes))
	}
	if got := h.keys.nodes[0].ContentKey(); got != "content-key" {
		t.Errorf("expected the fresh content key, got %q", got)
	}
}
