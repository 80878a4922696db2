package engine

// ValueStack is the VM's operand stack. Every access is phrased as an
// offset from the top: offset 0 is the top of the stack, offset 1 the
// element below it, and so on. All operations are bounds-checked and
// silently no-op on an out-of-range offset or count, matching the VM's
// never-trapping error policy.
type ValueStack struct {
	data []Value
}

// Push appends v to the top of the stack.
func (s *ValueStack) Push(v Value) {
	s.data = append(s.data, v)
}

// Pop removes and returns the top element, or reports false on an empty
// stack.
func (s *ValueStack) Pop() (Value, bool) {
	if len(s.data) == 0 {
		return Value{}, false
	}
	top := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return top, true
}

// index converts a from-top offset into a slice index, or -1 if out of
// range.
func (s *ValueStack) index(offset int) int {
	if offset < 0 || offset >= len(s.data) {
		return -1
	}
	return len(s.data) - 1 - offset
}

// Get returns the value at offset from the top without removing it.
func (s *ValueStack) Get(offset int) (Value, bool) {
	i := s.index(offset)
	if i < 0 {
		return Value{}, false
	}
	return s.data[i], true
}

// at returns a pointer to the element at offset from the top, for in-place
// mutation of Slice/Builder operands, or nil if out of range.
func (s *ValueStack) at(offset int) *Value {
	i := s.index(offset)
	if i < 0 {
		return nil
	}
	return &s.data[i]
}

// Drop removes the top length elements. It is a no-op unless length is no
// greater than the current stack height.
func (s *ValueStack) Drop(length int) {
	if length < 0 || length > len(s.data) {
		return
	}
	s.data = s.data[:len(s.data)-length]
}

// Change swaps the elements at offsets first and second from the top. It is
// a no-op unless both offsets are in range.
func (s *ValueStack) Change(first, second int) {
	i, j := s.index(first), s.index(second)
	if i < 0 || j < 0 {
		return
	}
	s.data[i], s.data[j] = s.data[j], s.data[i]
}

// Pair returns (second-from-top, top) without removing either, or reports
// false unless both are present.
func (s *ValueStack) Pair() (Value, Value, bool) {
	second, ok1 := s.Get(1)
	top, ok2 := s.Get(0)
	if !ok1 || !ok2 {
		return Value{}, Value{}, false
	}
	return second, top, true
}

// PopPair pops the top two elements and returns them in insertion order
// (first pushed, second pushed), or reports false unless both are present.
func (s *ValueStack) PopPair() (Value, Value, bool) {
	second, ok1 := s.Pop()
	first, ok2 := s.Pop()
	if !ok1 || !ok2 {
		return Value{}, Value{}, false
	}
	return first, second, true
}

// GetNumber returns the number at offset from the top, if present and a
// Number.
func (s *ValueStack) GetNumber(offset int) (uint64, bool) {
	v, ok := s.Get(offset)
	if !ok {
		return 0, false
	}
	return v.Number()
}

// GetBlock returns the Block at offset from the top, if present and a
// Block.
func (s *ValueStack) GetBlock(offset int) (Block, bool) {
	v, ok := s.Get(offset)
	if !ok {
		return Block{}, false
	}
	return v.Block()
}

// GetMutSlice returns a pointer to the Slice at offset from the top, for
// in-place reads that advance its cursor, if present and a Slice.
func (s *ValueStack) GetMutSlice(offset int) (*Slice, bool) {
	v := s.at(offset)
	if v == nil || v.kind != ValueSliceKind {
		return nil, false
	}
	return &v.slice, true
}

// GetMutBuilder returns the Builder at offset from the top, if present and
// a Builder.
func (s *ValueStack) GetMutBuilder(offset int) (*Builder, bool) {
	v := s.at(offset)
	if v == nil || v.kind != ValueBuilderKind {
		return nil, false
	}
	return v.builder, true
}

// SetNumber overwrites the value at offset from the top with a new number,
// if present and currently a Number. Used by INC.
func (s *ValueStack) SetNumber(offset int, n uint64) bool {
	v := s.at(offset)
	if v == nil || v.kind != ValueNumber {
		return false
	}
	v.number = n
	return true
}

// Values returns a snapshot copy of the stack, bottom to top.
func (s *ValueStack) Values() []Value {
	out := make([]Value, len(s.data))
	copy(out, s.data)
	return out
}

// Len reports the current stack height.
func (s *ValueStack) Len() int {
	return len(s.data)
}

// callStack is the VM's return-address stack, used by CALL/RET.
type callStack struct {
	data []int
}

func (c *callStack) push(pc int) {
	c.data = append(c.data, pc)
}

func (c *callStack) pop() (int, bool) {
	if len(c.data) == 0 {
		return 0, false
	}
	top := c.data[len(c.data)-1]
	c.data = c.data[:len(c.data)-1]
	return top, true
}
