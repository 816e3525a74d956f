package session

import "arbor/internal/domain"

// Field is one property of the node under edit, classified once at load
// as either ControlBound or Generic.
type Field interface {
	PropertyName() string
	isField()
}

// ControlBound is a reserved property driven by a dedicated control. It is
// never listed among the generic properties.
type ControlBound struct {
	Control domain.Control
	Value   string
}

func (f ControlBound) PropertyName() string { return f.Control.PropertyName() }
func (ControlBound) isField() {}

// Generic is a property edited as free text.
type Generic struct {
	Name     string
	Value    string
	ReadOnly bool
	Visible  bool
}

func (f Generic) PropertyName() string { return f.Name }
func (Generic) isField() {}

// Editable reports whether the property gets a live editor.
func (f Generic) Editable() bool { return !f.ReadOnly }

// classify partitions properties for the given viewer.
func classify(props []domain.Property, admin, showReadOnly bool) []Field {
	fields := make([]Field, 0, len(props))
	for _, p := range props {
		if c := domain.ControlFor(p.Name); c != domain.ControlNone {
			fields = append(fields, ControlBound{Control: c, Value: p.Value})
			continue
		}
		ro := domain.IsReadOnlyProperty(p.Name)
		fields = append(fields, Generic{
			Name:     p.Name,
			Value:    p.Value,
			ReadOnly: ro && !admin,
			Visible:  !ro || admin || showReadOnly,
		})
	}
	return fields
}
