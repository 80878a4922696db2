package engine

import "encoding/binary"

// Builder accumulates bytes written in forward order. It is the write side
// of the wire codec: every composite value (Message, Program, Init,
// TransactionPart...) is assembled into a Block via a Builder.
type Builder struct {
	bytes []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WriteU64 appends v as 8 big-endian bytes.
func (b *Builder) WriteU64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.bytes = append(b.bytes, buf[:]...)
}

// WriteU8 appends v as a single byte.
func (b *Builder) WriteU8(v uint8) {
	b.bytes = append(b.bytes, v)
}

// WriteBlock appends blk's raw bytes with no length prefix.
func (b *Builder) WriteBlock(blk Block) {
	b.bytes = append(b.bytes, blk.Unpack()...)
}

// WriteBlockWithLen appends blk's length as a u64 followed by its raw
// bytes. This is the framing used for every variable-length field on the
// wire.
func (b *Builder) WriteBlockWithLen(blk Block) {
	b.WriteU64(uint64(blk.Len()))
	b.WriteBlock(blk)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.bytes)
}

// Build finalizes the Builder into a Block.
func (b *Builder) Build() Block {
	return NewBlock(b.bytes)
}
