package crdt

import (
	json "github.com/goccy/go-json"
)

// OpType is the tag discriminating the closed set of operations a
// Document can dispatch or apply, per the wire format in spec.md §6.
type OpType string

const (
	OpCreateObject    OpType = "CreateObject"
	OpCreateMap       OpType = "CreateMap"
	OpCreateList      OpType = "CreateList"
	OpCreateRegister  OpType = "CreateRegister"
	OpUpdateObject    OpType = "UpdateObject"
	OpDeleteObjectKey OpType = "DeleteObjectKey"
	OpDeleteCrdt      OpType = "DeleteCrdt"
	OpSetParentKey    OpType = "SetParentKey"
)

// Op is the tagged-union wire representation of a single mutation.
// Not every field is meaningful for every Type; see the table in
// spec.md §6. Fields are pointers where the spec marks them optional
// so that "absent" and "zero value" stay distinguishable across the
// JSON boundary (a CreateObject with no parent is the document root).
type Op struct {
	Type      OpType         `json:"type"`
	ID        string         `json:"id"`
	ParentID  *string        `json:"parentId,omitempty"`
	ParentKey *string        `json:"parentKey,omitempty"`
	Key       string         `json:"key,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Scalar    any            `json:"scalar,omitempty"`
	OpID      *string        `json:"opId,omitempty"`
}

// Clone returns a deep-enough copy of op safe to hold across batch
// boundaries without aliasing the caller's Data map.
func (op Op) Clone() Op {
	out := op
	if op.Data != nil {
		out.Data = make(map[string]any, len(op.Data))
		for k, v := range op.Data {
			out.Data[k] = v
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

// MarshalOps encodes a forward or reverse op list for transport.
func MarshalOps(ops []Op) ([]byte, error) {
	return json.Marshal(ops)
}

// UnmarshalOps decodes an op list received from a peer.
func UnmarshalOps(data []byte) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// NodeType tags the four node variants in a serialized node record
// (spec.md §6 "Serialized node record").
type NodeType string

const (
	NodeObject   NodeType = "Object"
	NodeMap      NodeType = "Map"
	NodeList     NodeType = "List"
	NodeRegister NodeType = "Register"
)

// SerializedNode is the flat (id, record) shape Document.Load consumes
// and Document.Serialize produces.
type SerializedNode struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	ParentID  *string        `json:"parentId,omitempty"`
	ParentKey *string        `json:"parentKey,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Scalar    any            `json:"scalar,omitempty"`
}

// MarshalSerializedNodes encodes a flat node list, e.g. for storage or
// for seeding a fresh Document via Load.
func MarshalSerializedNodes(nodes []SerializedNode) ([]byte, error) {
	return json.Marshal(nodes)
}

// UnmarshalSerializedNodes decodes a flat node list previously produced
// by MarshalSerializedNodes.
func UnmarshalSerializedNodes(data []byte) ([]SerializedNode, error) {
	var nodes []SerializedNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}
