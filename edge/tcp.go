// Package edge implements the node's external interfaces: the TCP
// line-oriented protocol that accepts hex-encoded messages and queries, and
// an additive HTTP surface exposing health and metrics endpoints.
package edge

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"svmd/engine"
)

// Server is the TCP line-protocol listener. One connection is served to
// completion on its own goroutine; the repository is the only state shared
// across connections, and each call into it is serialized by the backing's
// own locking. Executor invocations from different connections are not
// serialized against each other.
type Server struct {
	Repository engine.Repository
	Logger     *logrus.Logger
	ClockSkew  time.Duration
	MaxSteps   uint64
	Metrics    *Metrics
}

// NewServer constructs a line-protocol server bound to repo.
func NewServer(repo engine.Repository, logger *logrus.Logger, clockSkew time.Duration, maxSteps uint64, metrics *Metrics) *Server {
	return &Server{Repository: repo, Logger: logger, ClockSkew: clockSkew, MaxSteps: maxSteps, Metrics: metrics}
}

// Listen binds addr for the caller to hand to Serve. Splitting bind from
// accept lets the caller close the listener for a graceful shutdown
// without racing the Accept loop's startup.
func (s *Server) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve accepts connections from ln, handling each on its own goroutine,
// until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.Logger.WithField("addr", ln.Addr().String()).Info("edge: listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

func (s *Server) execOptions() engine.ExecOptions {
	opts := engine.ExecOptions{MaxSteps: s.MaxSteps}
	if s.Metrics != nil {
		opts.StepHook = func(engine.Opcode) { s.Metrics.VMSteps.Inc() }
	}
	return opts
}

func (s *Server) handle(conn net.Conn) {
	correlationID := uuid.NewString()
	log := s.Logger.WithField("conn", correlationID)
	if s.Metrics != nil {
		s.Metrics.OpenConnections.Inc()
		defer s.Metrics.OpenConnections.Dec()
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	write := func(line string) {
		_, _ = writer.WriteString(line + "\r\n")
		_ = writer.Flush()
	}

	write("connected")
	for {
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			return
		}
		words := strings.Fields(strings.TrimRight(line, "\r\n"))
		s.dispatch(words, write, log)
		if err != nil {
			return
		}
	}
}

func (s *Server) dispatch(words []string, write func(string), log *logrus.Entry) {
	switch len(words) {
	case 2:
		if words[0] == "send" {
			s.recordCommand("send")
			s.handleSend(words[1], write, log)
		}
	case 3:
		if words[0] == "get_all_messages" {
			s.recordCommand("get_all_messages")
			s.handleGetAllMessages(words[1], words[2], write)
		}
	case 4:
		if words[0] == "get_messages_by_contract" {
			s.recordCommand("get_messages_by_contract")
			s.handleGetMessagesByContract(words[1], words[2], words[3], write)
		}
	}
}

func (s *Server) recordCommand(command string) {
	if s.Metrics != nil {
		s.Metrics.MessagesReceived.WithLabelValues(command).Inc()
	}
}

func (s *Server) recordOutcome(kind, outcome string) {
	if s.Metrics != nil {
		s.Metrics.Executions.WithLabelValues(kind, outcome).Inc()
	}
}

func (s *Server) handleSend(hexBlob string, write func(string), log *logrus.Entry) {
	raw, ok := engine.BlockFromString(hexBlob)
	if !ok {
		write("invalid hex")
		return
	}
	message, ok := engine.MessageFromBlock(raw)
	if !ok {
		write("invalid message")
		return
	}

	now := uint64(time.Now().UnixMilli())
	skew := uint64(s.ClockSkew / time.Millisecond)
	if message.Timestamp+skew < now || message.Timestamp > now+skew {
		write("invalid message time")
		return
	}
	if message.Sender.Len() > 0 {
		write("sender must be empty")
		return
	}

	switch message.Kind {
	case engine.MessageInternal:
		write("cant be internal message")
	case engine.MessageExternal:
		tx := engine.StartTransaction(message, s.Repository, s.execOptions())
		if tx.Executed() {
			s.recordOutcome("external", "state")
		} else {
			s.recordOutcome("external", "message")
		}
		write(tx.GetAsBlock().String())
	case engine.MessageView:
		stack := engine.View(message, s.Repository, s.execOptions())
		s.recordOutcome("view", "ran")
		write(encodeStack(stack).String())
	default:
		write("invalid message")
	}
}

func (s *Server) handleGetAllMessages(limitStr, offsetStr string, write func(string)) {
	limit, err1 := strconv.ParseUint(limitStr, 10, 64)
	offset, err2 := strconv.ParseUint(offsetStr, 10, 64)
	if err1 != nil || err2 != nil {
		return
	}
	msgs := s.Repository.GetAllMessages(limit, offset)
	write(encodeMessages(msgs).String())
}

func (s *Server) handleGetMessagesByContract(addrHex, limitStr, offsetStr string, write func(string)) {
	address, okAddr := engine.BlockFromString(addrHex)
	limit, err1 := strconv.ParseUint(limitStr, 10, 64)
	offset, err2 := strconv.ParseUint(offsetStr, 10, 64)
	if !okAddr || err1 != nil || err2 != nil {
		return
	}
	msgs := s.Repository.GetMessagesByContract(address, limit, offset)
	write(encodeMessages(msgs).String())
}

func encodeMessages(msgs []engine.Message) engine.Block {
	b := engine.NewBuilder()
	b.WriteU64(uint64(len(msgs)))
	for _, m := range msgs {
		b.WriteBlockWithLen(m.GetAsBlock())
	}
	return b.Build()
}

func encodeStack(stack []engine.Value) engine.Block {
	b := engine.NewBuilder()
	b.WriteU64(uint64(len(stack)))
	for _, v := range stack {
		b.WriteBlockWithLen(v.GetAsBlock())
	}
	return b.Build()
}
