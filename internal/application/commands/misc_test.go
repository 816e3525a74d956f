package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arbor/internal/application"
	"arbor/internal/authority"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

type stubClipboard struct {
	text string
	err  error
}

func (s stubClipboard) ReadText() (string, error) { return s.text, s.err }

func TestSplitCommand(t *testing.T) {
	h := newHarness(t, "A")

	if _, err := NewSplitCommand(h.ws, ports.SplitInline, "").Execute(h.ctx); !errors.Is(err, application.ErrNoHighlight) {
		t.Fatalf("expected ErrNoHighlight, got %v", err)
	}
	if _, err := NewSplitCommand(h.ws, "diagonal", "").Execute(h.ctx); err == nil {
		t.Fatal("expected invalid split type error")
	}
	if h.rec.called("splitNode") {
		t.Fatal("expected no split request")
	}

	s, err := h.sessions.OpenForEdit(h.ctx, h.id("A"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetContent("one\n\n\ntwo\n\n\nthree"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(h.ctx); err != nil {
		t.Fatal(err)
	}

	h.ws.View.Highlight(h.id("A"))
	if _, err := NewSplitCommand(h.ws, ports.SplitInline, "").Execute(h.ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var contents []string
	for _, c := range h.ws.View.Children() {
		contents = append(contents, c.Content)
	}
	if diff := cmp.Diff([]string{"one", "two", "three"}, contents); diff != "" {
		t.Errorf("contents mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectAllCommand(t *testing.T) {
	h := newHarness(t, "A", "B", "C")

	result, err := NewSelectAllCommand(h.ws).Execute(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Selected != 3 || result.Skipped != 0 {
		t.Errorf("expected 3 selected, got %+v", result)
	}
	want := []string{h.id("A"), h.id("B"), h.id("C")}
	if diff := cmp.Diff(want, h.ws.Selection.IDs()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveClipboardCommand(t *testing.T) {
	h := newHarness(t, "A")

	_, err := NewSaveClipboardCommand(h.ws, stubClipboard{text: "  \n "}).Execute(h.ctx)
	if !application.IsUserInput(err) || !contains(err.Error(), "clipboard is empty") {
		t.Fatalf("expected empty clipboard warning, got %v", err)
	}
	if h.rec.called("createSubNode") {
		t.Fatal("expected no request for an empty clipboard")
	}

	result, err := NewSaveClipboardCommand(h.ws, stubClipboard{text: "  remember this \n"}).Execute(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	req := h.rec.creates[0]
	if req.NodeID != ports.NotesNodeID || !req.CreateAtTop || req.Content != "remember this" {
		t.Errorf("unexpected request %+v", req)
	}

	notes, _ := h.render(result.Node.ParentID)
	if notes.Type != authority.TypeNotes || notes.ParentID != h.home {
		t.Errorf("expected notes node under home, got %+v", notes)
	}
}

func TestShareCommand_PublicAndEncryptionExclusive(t *testing.T) {
	h := newHarness(t, "A")
	a, _ := h.ws.Cache.Get(h.id("A"))

	a.Content = domain.EncryptionTag + "secret"
	_, err := NewShareCommand(h.ws, a.ID).ShareToPublic(h.ctx)
	if !errors.Is(err, application.ErrEncryptedPublic) {
		t.Fatalf("expected ErrEncryptedPublic, got %v", err)
	}
	if h.rec.called("addPrivilege") {
		t.Fatal("expected no privilege request for an encrypted node")
	}

	a.Content = "plain"
	result, err := NewShareCommand(h.ws, a.ID).ShareToPublic(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Public || !a.Public {
		t.Errorf("expected node shared to public, got %+v", result)
	}

	result, err = NewShareCommand(h.ws, a.ID).Unshare(h.ctx, domain.PrincipalPublic, domain.PrivilegeRead)
	if err != nil {
		t.Fatal(err)
	}
	if result.Public || a.Public {
		t.Errorf("expected public share removed, got %+v", result)
	}
}

func TestShareCommand_WithUser(t *testing.T) {
	h := newHarness(t, "A")
	if _, err := h.svc.EnsureUser(h.ctx, "bob", authority.AccountOptions{PublicKey: "pk-bob"}); err != nil {
		t.Fatal(err)
	}

	result, err := NewShareCommand(h.ws, h.id("A")).ShareWithUser(h.ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 || result.Entries[0].PrincipalName != "bob" {
		t.Errorf("expected one entry for bob, got %+v", result.Entries)
	}
	if _, err := NewShareCommand(h.ws, h.id("A")).ShareWithUser(h.ctx, ""); err == nil {
		t.Error("expected user name to be required")
	}
}

func TestInsertBookCommand(t *testing.T) {
	dir := t.TempDir()
	book := "CHAPTER 1\none\nCHAPTER 2\ntwo\nCHAPTER 3\nthree\nCHAPTER 4\nfour\n"
	if err := os.WriteFile(filepath.Join(dir, "Sample.txt"), []byte(book), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, "A")
	h.svc.WithBooksDir(dir)
	h.ws.Identity.IsTestAccount = true

	if _, err := NewInsertBookCommand(h.ws, "Sample").Execute(h.ctx); !errors.Is(err, application.ErrNoHighlight) {
		t.Fatalf("expected ErrNoHighlight, got %v", err)
	}

	h.ws.View.Highlight(h.id("A"))
	result, err := NewInsertBookCommand(h.ws, "Sample").Execute(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, chapters := h.render(result.Node.ID)
	if len(chapters) != authority.TruncatedChapters {
		t.Errorf("expected %d chapters for a test account, got %d", authority.TruncatedChapters, len(chapters))
	}
}
