package domain

// Property is a named value attached to a node. Names are unique per node.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Reserved property names bound to dedicated controls.
const (
	PropLayout         = "layout"
	PropPriority       = "priority"
	PropImageSize      = "sn:imgSize"
	PropInlineChildren = "inlineChildren"
	PropPreformatted   = "pre"
	PropNoWrap         = "nowrap"
	PropEncryptionKey  = "sn:encKey"
)

// Read-only properties are maintained by the authority.
const (
	PropMimeType    = "sn:mime"
	PropFileName    = "sn:fileName"
	PropFileSize    = "sn:size"
	PropBinaryData  = "sn:bin"
	PropCreatedTime = "sn:created"
)

// Flag values stored for checkbox-style controls.
const FlagSet = "1"

// Control identifies the dedicated editor control a property is bound to.
type Control int

const (
	ControlNone Control = iota
	ControlLayout
	ControlPriority
	ControlImageSize
	ControlInlineChildren
	ControlPreformatted
	ControlNoWrap
	ControlEncryptionKey
)

var controlByName = map[string]Control{
	PropLayout:         ControlLayout,
	PropPriority:       ControlPriority,
	PropImageSize:      ControlImageSize,
	PropInlineChildren: ControlInlineChildren,
	PropPreformatted:   ControlPreformatted,
	PropNoWrap:         ControlNoWrap,
	PropEncryptionKey:  ControlEncryptionKey,
}

var readOnlyNames = map[string]bool{
	PropMimeType:    true,
	PropFileName:    true,
	PropFileSize:    true,
	PropBinaryData:  true,
	PropCreatedTime: true,
}

// ControlFor returns the control bound to a property name, or ControlNone.
func ControlFor(name string) Control {
	return controlByName[name]
}

// PropertyName returns the reserved name stored for c.
func (c Control) PropertyName() string {
	for name, ctl := range controlByName {
		if ctl == c {
			return name
		}
	}
	return ""
}

func (c Control) String() string {
	switch c {
	case ControlLayout:
		return "layout"
	case ControlPriority:
		return "priority"
	case ControlImageSize:
		return "image-size"
	case ControlInlineChildren:
		return "inline-children"
	case ControlPreformatted:
		return "preformatted"
	case ControlNoWrap:
		return "word-wrap"
	case ControlEncryptionKey:
		return "encryption-key"
	default:
		return "none"
	}
}

// IsReadOnlyProperty reports whether name is maintained by the authority.
func IsReadOnlyProperty(name string) bool {
	return readOnlyNames[name]
}

// Layout choices for child rendering.
var Layouts = []string{"v", "c2", "c3", "c4"}

// Defaults for the select-style controls. A default value is never stored.
const (
	DefaultLayout    = "v"
	DefaultPriority  = "0"
	DefaultImageSize = "0"
)
