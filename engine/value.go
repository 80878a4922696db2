package engine

import "strconv"

// ValueKind tags the active member of Value.
type ValueKind uint8

const (
	ValueNumber ValueKind = iota
	ValueBlockKind
	ValueSliceKind
	ValueBuilderKind
)

// Value is the VM operand stack's element type: a 64-bit number, an opaque
// Block, a read cursor over a Block, or an in-progress Builder.
type Value struct {
	kind    ValueKind
	number  uint64
	block   Block
	slice   Slice
	builder *Builder
}

// NewNumberValue wraps a uint64 operand.
func NewNumberValue(n uint64) Value {
	return Value{kind: ValueNumber, number: n}
}

// NewBlockValue wraps a Block operand.
func NewBlockValue(b Block) Value {
	return Value{kind: ValueBlockKind, block: b}
}

// NewSliceValue wraps a Slice operand.
func NewSliceValue(s Slice) Value {
	return Value{kind: ValueSliceKind, slice: s}
}

// NewBuilderValue wraps a Builder operand.
func NewBuilderValue(b *Builder) Value {
	return Value{kind: ValueBuilderKind, builder: b}
}

// Kind reports which member is active.
func (v Value) Kind() ValueKind {
	return v.kind
}

// Number returns the wrapped number and whether v is a number.
func (v Value) Number() (uint64, bool) {
	if v.kind != ValueNumber {
		return 0, false
	}
	return v.number, true
}

// Block returns the wrapped Block and whether v is a Block.
func (v Value) Block() (Block, bool) {
	if v.kind != ValueBlockKind {
		return Block{}, false
	}
	return v.block, true
}

// String renders v for debug logging, matching the shape of the other wire
// types' diagnostic output.
func (v Value) String() string {
	switch v.kind {
	case ValueNumber:
		return strconv.FormatUint(v.number, 10)
	case ValueBlockKind:
		return "[" + v.block.String() + "]"
	case ValueSliceKind:
		return "SLICE"
	case ValueBuilderKind:
		return "BUILDER"
	default:
		return "?"
	}
}

// GetAsBlock renders a Value as a tagged Block: a one-byte kind tag followed
// by the kind-specific payload. Only Number and Block carry a payload;
// Slice and Builder serialize to their bare tag, matching how the VM treats
// them as ephemeral, non-persisted operands.
func (v Value) GetAsBlock() Block {
	b := NewBuilder()
	switch v.kind {
	case ValueNumber:
		b.WriteU8(0)
		b.WriteU64(v.number)
	case ValueBlockKind:
		b.WriteU8(1)
		b.WriteBlockWithLen(v.block)
	case ValueSliceKind:
		b.WriteU8(2)
	case ValueBuilderKind:
		b.WriteU8(3)
	}
	return b.Build()
}
