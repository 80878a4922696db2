package engine

// Program is a parsed contract image: a header of up to three optional
// entrypoint offsets (keyed by MessageType) followed by raw executable
// code.
type Program struct {
	code     []byte
	internal *uint64
	external *uint64
	view     *uint64
}

// Code returns the program's executable byte stream, starting at offset
// zero — entrypoint offsets are indices into this stream.
func (p Program) Code() []byte {
	return p.code
}

// Entrypoint returns the code offset for kind, if the program declares one.
func (p Program) Entrypoint(kind MessageType) (uint64, bool) {
	var ptr *uint64
	switch kind {
	case MessageInternal:
		ptr = p.internal
	case MessageExternal:
		ptr = p.external
	case MessageView:
		ptr = p.view
	}
	if ptr == nil {
		return 0, false
	}
	return *ptr, true
}

// programReader parses a Program header from raw bytes: three
// presence-flag (one byte) + offset (u64) pairs, in internal, external,
// view order, followed by the remaining bytes as code.
type programReader struct {
	offset int
	bytes  []byte
}

func newProgramReader(bytes []byte) *programReader {
	return &programReader{bytes: bytes}
}

func (r *programReader) readU8() (uint8, bool) {
	if r.offset >= len(r.bytes) {
		return 0, false
	}
	v := r.bytes[r.offset]
	r.offset++
	return v, true
}

func (r *programReader) readU64() (uint64, bool) {
	if r.offset+8 > len(r.bytes) {
		return 0, false
	}
	var v uint64
	for _, b := range r.bytes[r.offset : r.offset+8] {
		v = v<<8 | uint64(b)
	}
	r.offset += 8
	return v, true
}

func (r *programReader) readEntrypoint() (*uint64, bool) {
	flag, ok := r.readU8()
	if !ok {
		return nil, false
	}
	if flag != 1 {
		return nil, true
	}
	off, ok := r.readU64()
	if !ok {
		return nil, false
	}
	return &off, true
}

// Load parses a Program header from r's remaining bytes.
func (r *programReader) Load() (Program, bool) {
	internal, ok := r.readEntrypoint()
	if !ok {
		return Program{}, false
	}
	external, ok := r.readEntrypoint()
	if !ok {
		return Program{}, false
	}
	view, ok := r.readEntrypoint()
	if !ok {
		return Program{}, false
	}
	code := make([]byte, len(r.bytes)-r.offset)
	copy(code, r.bytes[r.offset:])
	return Program{code: code, internal: internal, external: external, view: view}, true
}

// ProgramFromBytes parses a Program header + code from raw bytes.
func ProgramFromBytes(bytes []byte) (Program, bool) {
	return newProgramReader(bytes).Load()
}
