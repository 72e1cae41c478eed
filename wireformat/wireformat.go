// Package wireformat defines the JSON wire format used to carry Component
// Model values and structured errors across the host/guest instance
// boundary. These types must remain stable and backward compatible as they
// define the ABI contract between the loader's synthesized shims and the
// plugins they call.
package wireformat

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the shape of a Val. Component Model primitives pass
// through directly; aggregates (list, record, tuple, variant, option,
// result) are opaque trees the core never interprets beyond walking them
// for resource handles.
type Kind string

const (
	KindBool    Kind = "bool"
	KindS8      Kind = "s8"
	KindU8      Kind = "u8"
	KindS16     Kind = "s16"
	KindU16     Kind = "u16"
	KindS32     Kind = "s32"
	KindU32     Kind = "u32"
	KindS64     Kind = "s64"
	KindU64     Kind = "u64"
	KindF32     Kind = "f32"
	KindF64     Kind = "f64"
	KindChar    Kind = "char"
	KindString  Kind = "string"
	KindList    Kind = "list"
	KindRecord  Kind = "record"
	KindTuple   Kind = "tuple"
	KindVariant Kind = "variant"
	KindOption  Kind = "option"
	KindResult  Kind = "result"
	KindOwn     Kind = "own"    // owned resource handle
	KindBorrow  Kind = "borrow" // borrowed resource handle
)

// Val is the wire representation of a single Component Model value. Only
// the fields relevant to Kind are populated; the rest are left at their
// zero value and omitted from JSON.
type Val struct {
	Kind Kind `json:"kind"`

	BoolVal   bool    `json:"bool_val,omitempty"`
	IntVal    int64   `json:"int_val,omitempty"`
	UintVal   uint64  `json:"uint_val,omitempty"`
	FloatVal  float64 `json:"float_val,omitempty"`
	StringVal string  `json:"string_val,omitempty"`

	List    []Val          `json:"list,omitempty"`
	Fields  map[string]Val `json:"fields,omitempty"`
	Tuple   []Val          `json:"tuple,omitempty"`
	Variant *VariantVal    `json:"variant,omitempty"`
	Option  *Val           `json:"option,omitempty"` // nil means none
	OK      *Val           `json:"ok,omitempty"`
	Err     *Val           `json:"err,omitempty"`

	// Handle carries a resource handle id for KindOwn/KindBorrow. It is
	// rewritten by resource translation when the Val crosses a store
	// boundary: the source handle is resolved to a rep, and a new handle
	// for that rep is minted in the target store's table.
	Handle uint32 `json:"handle,omitempty"`
	// ResourceName names the resource type the handle belongs to; resource
	// translation copies it onto the re-issued handle without validating it.
	ResourceName string `json:"resource_name,omitempty"`
}

// VariantVal is the payload of a KindVariant value: a case name plus an
// optional associated value.
type VariantVal struct {
	Case    string `json:"case"`
	Payload *Val   `json:"payload,omitempty"`
}

func Bool(v bool) Val      { return Val{Kind: KindBool, BoolVal: v} }
func U32(v uint32) Val     { return Val{Kind: KindU32, UintVal: uint64(v)} }
func U64(v uint64) Val     { return Val{Kind: KindU64, UintVal: v} }
func S32(v int32) Val      { return Val{Kind: KindS32, IntVal: int64(v)} }
func S64(v int64) Val      { return Val{Kind: KindS64, IntVal: v} }
func F64(v float64) Val    { return Val{Kind: KindF64, FloatVal: v} }
func String(v string) Val  { return Val{Kind: KindString, StringVal: v} }

func List(items ...Val) Val  { return Val{Kind: KindList, List: items} }
func Tuple(items ...Val) Val { return Val{Kind: KindTuple, Tuple: items} }
func Record(fields map[string]Val) Val {
	return Val{Kind: KindRecord, Fields: fields}
}

// Own constructs a resource value representing transferred ownership.
func Own(resourceName string, handle uint32) Val {
	return Val{Kind: KindOwn, ResourceName: resourceName, Handle: handle}
}

// Borrow constructs a resource value representing a borrowed reference.
func Borrow(resourceName string, handle uint32) Val {
	return Val{Kind: KindBorrow, ResourceName: resourceName, Handle: handle}
}

// IsResource reports whether v carries a resource handle (own or borrow).
func (v Val) IsResource() bool {
	return v.Kind == KindOwn || v.Kind == KindBorrow
}

// Walk invokes visit on v and every nested Val beneath it (list elements,
// record fields, tuple items, variant payload, option payload, and the
// result ok/err arms), depth first. The Val visit returns replaces that
// node; resource translation uses this to rewrite handles as a result
// tree crosses a store boundary.
func Walk(v Val, visit func(Val) Val) Val {
	v = visit(v)
	switch v.Kind {
	case KindList:
		out := make([]Val, len(v.List))
		for i, item := range v.List {
			out[i] = Walk(item, visit)
		}
		v.List = out
	case KindRecord:
		out := make(map[string]Val, len(v.Fields))
		for name, item := range v.Fields {
			out[name] = Walk(item, visit)
		}
		v.Fields = out
	case KindTuple:
		out := make([]Val, len(v.Tuple))
		for i, item := range v.Tuple {
			out[i] = Walk(item, visit)
		}
		v.Tuple = out
	case KindVariant:
		if v.Variant != nil && v.Variant.Payload != nil {
			payload := Walk(*v.Variant.Payload, visit)
			v.Variant = &VariantVal{Case: v.Variant.Case, Payload: &payload}
		}
	case KindOption:
		if v.Option != nil {
			opt := Walk(*v.Option, visit)
			v.Option = &opt
		}
	case KindResult:
		if v.OK != nil {
			ok := Walk(*v.OK, visit)
			v.OK = &ok
		}
		if v.Err != nil {
			e := Walk(*v.Err, visit)
			v.Err = &e
		}
	}
	return v
}

// Encode marshals a Val tree for transport across the ptr+len boundary.
func Encode(v Val) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals bytes read from guest memory back into a Val tree.
func Decode(data []byte) (Val, error) {
	var v Val
	if err := json.Unmarshal(data, &v); err != nil {
		return Val{}, fmt.Errorf("wireformat: decode val: %w", err)
	}
	return v, nil
}

// ErrorDetail is the structured error describing why one target's call
// failed below the envelope level, including an engine call error or a
// missing export, both reported with Type "trap".
// Type is one of "trap", "unsupported_type", "resource",
// "socket_unsatisfied", "internal".
type ErrorDetail struct {
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
}

// Error implements the error interface for ErrorDetail.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}
