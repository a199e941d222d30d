package vdom

import "fmt"

// PatchOp identifies a DOM mutation.
type PatchOp uint8

const (
	PatchSetText    PatchOp = iota + 1 // replace text content
	PatchSetAttr                       // set or update an attribute
	PatchRemoveAttr                    // remove an attribute
	PatchInsert                        // insert a rendered node
	PatchRemove                        // remove a node
	PatchMove                          // move a node within its parent
	PatchReplace                       // replace a node wholesale
)

// String returns the wire name of the op, used in JSON frames and logs.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "set-text"
	case PatchSetAttr:
		return "set-attr"
	case PatchRemoveAttr:
		return "remove-attr"
	case PatchInsert:
		return "insert"
	case PatchRemove:
		return "remove"
	case PatchMove:
		return "move"
	case PatchReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so patches serialise with
// readable op names.
func (op PatchOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, decoding the wire
// names produced by MarshalText.
func (op *PatchOp) UnmarshalText(text []byte) error {
	switch string(text) {
	case "set-text":
		*op = PatchSetText
	case "set-attr":
		*op = PatchSetAttr
	case "remove-attr":
		*op = PatchRemoveAttr
	case "insert":
		*op = PatchInsert
	case "remove":
		*op = PatchRemove
	case "move":
		*op = PatchMove
	case "replace":
		*op = PatchReplace
	default:
		return fmt.Errorf("vdom: unknown patch op %q", text)
	}
	return nil
}

// Patch is one DOM mutation, targeted by ref. Inserted and replacing nodes
// travel as pre-rendered HTML so the client needs no template knowledge.
type Patch struct {
	Op     PatchOp `json:"op"`
	Ref    string  `json:"ref,omitempty"`    // target node
	Parent string  `json:"parent,omitempty"` // parent ref for insert/move
	Name   string  `json:"name,omitempty"`   // attribute name
	Value  string  `json:"value,omitempty"`  // text or attribute value
	HTML   string  `json:"html,omitempty"`   // rendered node for insert/replace
	Index  int     `json:"index,omitempty"`  // position for insert/move
}
