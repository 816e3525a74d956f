package commands

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arbor/internal/application"
	"arbor/internal/application/session"
)

func TestInsertNodeCommand_SetsTargetOrdinal(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		want   []string
	}{
		{name: "above", offset: 0, want: []string{"A", "?", "B", "C"}},
		{name: "below", offset: 1, want: []string{"A", "B", "?", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "A", "B", "C")
			b, _ := h.ws.Cache.Get(h.id("B"))
			h.ws.View.Highlight(b.ID)

			result, err := NewInsertNodeCommand(h.ws, h.sessions, "", "", tt.offset).Execute(h.ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(h.rec.inserts) != 1 || len(h.rec.creates) != 0 {
				t.Fatalf("expected one insert request, got inserts=%d creates=%d", len(h.rec.inserts), len(h.rec.creates))
			}
			req := h.rec.inserts[0]
			if req.TargetOrdinal != b.Ordinal+tt.offset {
				t.Errorf("expected target ordinal %d, got %d", b.Ordinal+tt.offset, req.TargetOrdinal)
			}
			if req.ParentID != h.home {
				t.Errorf("expected parent %s, got %s", h.home, req.ParentID)
			}
			if req.TypeName != "u" {
				t.Errorf("expected default type u, got %q", req.TypeName)
			}

			if diff := cmp.Diff(tt.want, names(h.ws.View.Children())); diff != "" {
				t.Errorf("cached children mismatch (-want +got):\n%s", diff)
			}
			if got := h.ws.View.Highlighted(); got == nil || got.ID != result.Node.ID {
				t.Errorf("expected new node highlighted, got %v", got)
			}
			if result.Session == nil || result.Session.State() != session.Editing {
				t.Fatal("expected an open edit session")
			}
			if ic := result.Session.Insert(); !ic.Inline() || ic.Sibling.ID != b.ID || ic.OrdinalOffset != tt.offset {
				t.Errorf("unexpected insert context %+v", ic)
			}
			_, children := h.render(h.home)
			if diff := cmp.Diff(tt.want, names(children)); diff != "" {
				t.Errorf("stored children mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsertNodeCommand_NeedsTarget(t *testing.T) {
	h := newHarness(t, "A")

	_, err := NewInsertNodeCommand(h.ws, h.sessions, "", "", 0).Execute(h.ctx)
	if !errors.Is(err, application.ErrNoHighlight) {
		t.Fatalf("expected ErrNoHighlight, got %v", err)
	}
	if _, err := NewInsertNodeCommand(h.ws, h.sessions, h.id("A"), "", -1).Execute(h.ctx); err == nil {
		t.Error("expected negative offset to be rejected")
	}
	if len(h.rec.calls) != 0 {
		t.Errorf("expected no remote calls, got %v", h.rec.calls)
	}
}

func TestInsertNodeCommand_SessionAlreadyOpen(t *testing.T) {
	h := newHarness(t, "A", "B")
	if _, err := h.sessions.OpenForEdit(h.ctx, h.id("A")); err != nil {
		t.Fatal(err)
	}

	_, err := NewInsertNodeCommand(h.ws, h.sessions, h.id("B"), "", 1).Execute(h.ctx)
	if !errors.Is(err, application.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if h.rec.called("insertNode") {
		t.Error("expected no insert request while a session is open")
	}
}

func TestCreateSubNodeCommand_NeverSetsOrdinal(t *testing.T) {
	tests := []struct {
		name string
		top  bool
		want []string
	}{
		{name: "append", top: false, want: []string{"A", "B", "?"}},
		{name: "top", top: true, want: []string{"?", "A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "A", "B")

			result, err := NewCreateSubNodeCommand(h.ws, h.sessions, "", "", tt.top).Execute(h.ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(h.rec.inserts) != 0 || len(h.rec.creates) != 1 {
				t.Fatalf("expected one create request, got inserts=%d creates=%d", len(h.rec.inserts), len(h.rec.creates))
			}
			req := h.rec.creates[0]
			if req.NodeID != h.home || req.CreateAtTop != tt.top {
				t.Errorf("unexpected request %+v", req)
			}
			if diff := cmp.Diff(tt.want, names(h.ws.View.Children())); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
			if ic := result.Session.Insert(); ic.Inline() || ic.ParentID != h.home || ic.CreateAtTop != tt.top {
				t.Errorf("unexpected insert context %+v", ic)
			}
		})
	}
}

func TestCreateSubNodeCommand_UnderHighlighted(t *testing.T) {
	h := newHarness(t, "A", "B")
	a := h.id("A")
	h.ws.View.Highlight(a)

	result, err := NewCreateSubNodeCommand(h.ws, h.sessions, "", "", false).Execute(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Node.ParentID != a {
		t.Errorf("expected new node under A, got parent %s", result.Node.ParentID)
	}
	if parent, _ := h.ws.Cache.Get(a); !parent.HasChildren {
		t.Error("expected A to be marked as having children")
	}
	if diff := cmp.Diff([]string{"A", "B"}, names(h.ws.View.Children())); diff != "" {
		t.Errorf("view children mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewCreateSubNodeCommand(h.ws, h.sessions, "missing", "", false).Execute(h.ctx); !errors.Is(err, application.ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}
}

func TestOpenEditCommand(t *testing.T) {
	h := newHarness(t, "A")

	if _, err := NewOpenEditCommand(h.ws, h.sessions, "missing").Execute(h.ctx); !errors.Is(err, application.ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}
	if _, err := NewOpenEditCommand(h.ws, h.sessions, "").Execute(h.ctx); !errors.Is(err, application.ErrNoHighlight) {
		t.Errorf("expected ErrNoHighlight, got %v", err)
	}

	s, err := NewOpenEditCommand(h.ws, h.sessions, h.id("A")).Execute(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "A" || s.Insert() != nil {
		t.Errorf("unexpected session name=%q insert=%v", s.Name(), s.Insert())
	}
}
