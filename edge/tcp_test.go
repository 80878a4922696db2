package edge

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"svmd/engine"
	"svmd/repository"
)

func testServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(testWriter{t})
	s := NewServer(repository.NewInMemory(), logger, 10*time.Second, 0, nil)
	ln, err := s.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go s.Serve(ln)
	return s, ln
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func dial(t *testing.T, ln net.Listener) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, bufio.NewReader(conn)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return line[:len(line)-2]
}

func TestTCPConnectedBanner(t *testing.T) {
	_, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	if got := readLine(t, r); got != "connected" {
		t.Fatalf("expected banner 'connected', got %q", got)
	}
}

func TestTCPSendInvalidHex(t *testing.T) {
	_, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	readLine(t, r)

	conn.Write([]byte("send zz\n"))
	if got := readLine(t, r); got != "invalid hex" {
		t.Fatalf("expected 'invalid hex', got %q", got)
	}
}

func TestTCPSendSenderMustBeEmpty(t *testing.T) {
	_, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	readLine(t, r)

	msg := engine.NewMessage(engine.MessageExternal, engine.EmptyBlock(), 0, engine.NewBlock([]byte("someone")), engine.NewBlock([]byte("recv")), nil)
	hexBlob := msg.GetAsBlock().String()
	conn.Write([]byte("send " + hexBlob + "\n"))
	if got := readLine(t, r); got != "sender must be empty" {
		t.Fatalf("expected 'sender must be empty', got %q", got)
	}
}

func TestTCPSendRejectsInternalKind(t *testing.T) {
	_, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	readLine(t, r)

	msg := engine.NewMessage(engine.MessageInternal, engine.EmptyBlock(), 0, engine.EmptyBlock(), engine.NewBlock([]byte("recv")), nil)
	conn.Write([]byte("send " + msg.GetAsBlock().String() + "\n"))
	if got := readLine(t, r); got != "cant be internal message" {
		t.Fatalf("expected 'cant be internal message', got %q", got)
	}
}

func TestTCPSendRejectsStaleTimestamp(t *testing.T) {
	_, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	readLine(t, r)

	msg := engine.NewMessage(engine.MessageExternal, engine.EmptyBlock(), 0, engine.EmptyBlock(), engine.NewBlock([]byte("recv")), nil)
	msg.Timestamp = 1
	conn.Write([]byte("send " + msg.GetAsBlock().String() + "\n"))
	if got := readLine(t, r); got != "invalid message time" {
		t.Fatalf("expected 'invalid message time', got %q", got)
	}
}

// withExternalEntrypoint wraps code in a Program header declaring a single
// External entrypoint at offset 0 (no internal, no view), matching the
// three presence-flag + offset layout engine.ProgramFromBytes expects.
func withExternalEntrypoint(code []byte) []byte {
	header := engine.NewBuilder()
	header.WriteU8(0) // no internal
	header.WriteU8(1) // has external
	header.WriteU64(0)
	header.WriteU8(0) // no view
	header.WriteBlock(engine.NewBlock(code))
	return header.Build().Unpack()
}

func TestTCPSendExternalDeployAndQuery(t *testing.T) {
	server, ln := testServer(t)
	defer ln.Close()
	conn, r := dial(t, ln)
	defer conn.Close()
	readLine(t, r)

	code := withExternalEntrypoint([]byte{
		byte(engine.MKBUILDER), byte(engine.IPUSH8), 7, byte(engine.IWRITE8),
		byte(engine.BUILD), byte(engine.SDATA), byte(engine.HALT),
	})
	init := engine.Init{Program: engine.NewBlock(code), Data: engine.EmptyBlock()}
	address := init.GetAsBlock().Hash()
	msg := engine.NewMessage(engine.MessageExternal, engine.EmptyBlock(), 0, engine.EmptyBlock(), address, &init)

	conn.Write([]byte("send " + msg.GetAsBlock().String() + "\n"))
	reply := readLine(t, r)
	if reply == "" {
		t.Fatal("expected a non-empty transaction reply")
	}
	txBlock, ok := engine.BlockFromString(reply)
	if !ok {
		t.Fatalf("expected valid hex reply, got %q", reply)
	}
	txBytes := txBlock.Unpack()
	if len(txBytes) == 0 || txBytes[0] != 1 {
		t.Fatalf("expected the transaction reply to be tagged as an executed state, got %v", txBytes)
	}

	data, ok := server.Repository.GetContractData(address)
	if !ok || data.String() != "07" {
		t.Fatalf("expected the deploy to have stored data 07, got %v ok=%v", data, ok)
	}

	conn.Write([]byte("get_all_messages 10 0\n"))
	page := readLine(t, r)
	blk, ok := engine.BlockFromString(page)
	if !ok {
		t.Fatalf("expected valid hex reply, got %q", page)
	}
	s := engine.NewSlice(blk)
	count, ok := s.ReadU64()
	if !ok || count != 1 {
		t.Fatalf("expected 1 recorded message, got %d ok=%v", count, ok)
	}
}
