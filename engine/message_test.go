package engine

import "testing"

func TestInitRoundTrip(t *testing.T) {
	init := Init{Program: NewBlock([]byte("prog")), Data: NewBlock([]byte("data"))}
	decoded, ok := InitFromBlock(init.GetAsBlock())
	if !ok {
		t.Fatal("expected init to decode")
	}
	if decoded.Program.String() != init.Program.String() || decoded.Data.String() != init.Data.String() {
		t.Fatalf("init round trip mismatch: %+v != %+v", decoded, init)
	}
}

func TestEmptyInitBlockFailsToParse(t *testing.T) {
	if _, ok := InitFromBlock(EmptyBlock()); ok {
		t.Fatal("expected empty init block to fail, confirming init_len=0 means no init")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	init := Init{Program: NewBlock([]byte("p")), Data: NewBlock([]byte("d"))}
	msg := NewMessage(MessageExternal, NewBlock([]byte("body")), 7, EmptyBlock(), NewBlock([]byte("recv")), &init)

	decoded, ok := MessageFromBlock(msg.GetAsBlock())
	if !ok {
		t.Fatal("expected message to decode")
	}
	if decoded.Kind != MessageExternal {
		t.Fatalf("kind mismatch: %v", decoded.Kind)
	}
	if decoded.Opcode != 7 {
		t.Fatalf("opcode mismatch: %d", decoded.Opcode)
	}
	if decoded.Body.String() != msg.Body.String() {
		t.Fatalf("body mismatch")
	}
	if decoded.Init == nil || decoded.Init.Program.String() != init.Program.String() {
		t.Fatalf("init mismatch: %+v", decoded.Init)
	}
	if decoded.Timestamp != msg.Timestamp {
		t.Fatalf("timestamp mismatch: %d != %d", decoded.Timestamp, msg.Timestamp)
	}
}

func TestMessageWithoutInit(t *testing.T) {
	msg := NewMessage(MessageInternal, EmptyBlock(), 0, NewBlock([]byte("s")), NewBlock([]byte("r")), nil)
	decoded, ok := MessageFromBlock(msg.GetAsBlock())
	if !ok {
		t.Fatal("expected message to decode")
	}
	if decoded.Init != nil {
		t.Fatalf("expected no init, got %+v", decoded.Init)
	}
	if decoded.Kind != MessageInternal {
		t.Fatalf("kind mismatch: %v", decoded.Kind)
	}
}

func TestMessageKindWireOrder(t *testing.T) {
	cases := []struct {
		kind MessageType
		byte uint8
	}{
		{MessageExternal, 0},
		{MessageInternal, 1},
		{MessageView, 2},
	}
	for _, c := range cases {
		msg := NewMessage(c.kind, EmptyBlock(), 0, EmptyBlock(), EmptyBlock(), nil)
		raw := msg.GetAsBlock().Unpack()
		if raw[0] != c.byte {
			t.Fatalf("kind %v expected wire byte %d, got %d", c.kind, c.byte, raw[0])
		}
	}
}
