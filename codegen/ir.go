// Package codegen parses a constrained subset of Rust-like struct
// definitions into an intermediate representation and emits JSON Schema
// (Draft-07) and C headers from it (spec.md §4.I). It is orthogonal to
// the runtime: a plugin's binary-transport messages may be hand-written
// instead of generated.
package codegen

// TypeKind enumerates the closed set of field types this module
// understands. Structs only: no enums, generics, lifetimes, tuple
// structs, or maps.
type TypeKind int

const (
	KindBool TypeKind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindString
	KindSequence // Vec<T>
	KindOptional // Option<T>
	KindCustom   // reference to another MessageType by name
)

// Type is a field's type: a TypeKind plus, for Sequence/Optional, the
// element type, or for Custom, the referenced type name.
type Type struct {
	Kind TypeKind
	Elem *Type  // set when Kind is KindSequence or KindOptional
	Name string // set when Kind is KindCustom
}

// Field is one struct field.
type Field struct {
	Name     string
	Type     Type
	Docs     string
	Optional bool // true when Type.Kind == KindOptional, surfaced for convenience
	Rename   string
}

// WireName returns Rename if set, otherwise Name — the name this field
// carries on the wire.
func (f Field) WireName() string {
	if f.Rename != "" {
		return f.Rename
	}
	return f.Name
}

// MessageType is one parsed `struct` definition.
type MessageType struct {
	Name   string
	Docs   string
	Fields []Field
}

// IR is the full parse result: every message type in a source file, in
// declaration order (emitters rely on this order being stable).
type IR struct {
	Messages []MessageType
}

// ByName looks up a message type by name, used to resolve KindCustom
// references during emission.
func (ir *IR) ByName(name string) (MessageType, bool) {
	for _, m := range ir.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return MessageType{}, false
}
