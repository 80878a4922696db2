package engine

import "encoding/binary"

// Slice is a forward-only cursor over a Block. Reads are bounds-checked: a
// short read leaves the cursor untouched and reports failure rather than
// partially consuming input.
type Slice struct {
	code    []byte
	pointer int
}

// NewSlice wraps blk in a Slice positioned at offset zero.
func NewSlice(blk Block) Slice {
	return Slice{code: blk.Unpack()}
}

// get returns the next length bytes and advances the cursor, or reports
// false without advancing if fewer than length bytes remain.
func (s *Slice) get(length int) ([]byte, bool) {
	if length < 0 || s.pointer+length > len(s.code) {
		return nil, false
	}
	out := s.code[s.pointer : s.pointer+length]
	s.pointer += length
	return out, true
}

// ReadU64 reads 8 big-endian bytes.
func (s *Slice) ReadU64() (uint64, bool) {
	b, ok := s.get(8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// ReadU8 reads a single byte.
func (s *Slice) ReadU8() (uint8, bool) {
	b, ok := s.get(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// ReadBlock reads the next length raw bytes as a Block.
func (s *Slice) ReadBlock(length int) (Block, bool) {
	b, ok := s.get(length)
	if !ok {
		return Block{}, false
	}
	return NewBlock(b), true
}

// ReadBlockWithLen reads a u64 length prefix followed by that many raw
// bytes. If the length prefix itself is short, or the payload is short,
// the cursor is left at its pre-call position (since get() on failure
// never advances).
func (s *Slice) ReadBlockWithLen() (Block, bool) {
	save := s.pointer
	length, ok := s.ReadU64()
	if !ok {
		return Block{}, false
	}
	blk, ok := s.ReadBlock(int(length))
	if !ok {
		s.pointer = save
		return Block{}, false
	}
	return blk, true
}

// Len returns the number of unread bytes remaining.
func (s *Slice) Len() int {
	return len(s.code) - s.pointer
}
