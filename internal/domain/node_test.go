package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNode_SetProperty(t *testing.T) {
	n := &Node{ID: "n1", Properties: []Property{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}}

	n.SetProperty("a", "x")
	n.SetProperty("c", "3")
	n.SetProperty("b", "")

	want := []Property{{Name: "a", Value: "x"}, {Name: "c", Value: "3"}}
	if diff := cmp.Diff(want, n.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestNode_ContentKey(t *testing.T) {
	t.Run("delivered key wins", func(t *testing.T) {
		n := &Node{CipherKey: "delivered"}
		n.SetProperty(PropEncryptionKey, "owner")
		if got := n.ContentKey(); got != "delivered" {
			t.Errorf("expected delivered, got %s", got)
		}
	})

	t.Run("falls back to owner key", func(t *testing.T) {
		n := &Node{}
		n.SetProperty(PropEncryptionKey, "owner")
		if got := n.ContentKey(); got != "owner" {
			t.Errorf("expected owner, got %s", got)
		}
	})

	t.Run("no key", func(t *testing.T) {
		if got := (&Node{}).ContentKey(); got != "" {
			t.Errorf("expected empty key, got %s", got)
		}
	})
}

func TestNode_EffectiveOwner(t *testing.T) {
	if got := (&Node{}).EffectiveOwner(); got != PrincipalAdmin {
		t.Errorf("expected admin for unset owner, got %s", got)
	}
	if got := (&Node{Owner: "bob"}).EffectiveOwner(); got != "bob" {
		t.Errorf("expected bob, got %s", got)
	}
}

func TestNode_Clone(t *testing.T) {
	orig := &Node{ID: "n1", Properties: []Property{{Name: "a", Value: "1"}}, Children: []string{"c1"}}
	c := orig.Clone()
	c.Properties[0].Value = "changed"
	c.Children[0] = "changed"

	if orig.Properties[0].Value != "1" || orig.Children[0] != "c1" {
		t.Error("clone shares backing arrays with the original")
	}
}

func TestNode_IsEncrypted(t *testing.T) {
	n := &Node{Content: EncryptionTag + "abc"}
	if !n.IsEncrypted() {
		t.Error("expected encrypted")
	}
	if n.CipherText() != "abc" {
		t.Errorf("expected cipher text abc, got %s", n.CipherText())
	}
	if (&Node{Content: "plain"}).IsEncrypted() {
		t.Error("expected plaintext")
	}
}

func TestControlFor(t *testing.T) {
	tests := []struct {
		name string
		want Control
	}{
		{PropLayout, ControlLayout},
		{PropPriority, ControlPriority},
		{PropImageSize, ControlImageSize},
		{PropInlineChildren, ControlInlineChildren},
		{PropPreformatted, ControlPreformatted},
		{PropNoWrap, ControlNoWrap},
		{PropEncryptionKey, ControlEncryptionKey},
		{"color", ControlNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ControlFor(tt.name)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if tt.want != ControlNone && got.PropertyName() != tt.name {
				t.Errorf("expected property name %s, got %s", tt.name, got.PropertyName())
			}
		})
	}
}
