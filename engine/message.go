package engine

import "time"

// MessageType identifies how a Message is dispatched by the executor. The
// wire encoding is pinned independently of these constants' declaration
// order: External=0, Internal=1, View=2.
type MessageType uint8

const (
	MessageExternal MessageType = 0
	MessageInternal MessageType = 1
	MessageView     MessageType = 2
)

// Init carries the program image and initial data of a contract being
// deployed by a message.
type Init struct {
	Program Block
	Data    Block
}

// GetAsBlock renders Init as length-prefixed program followed by
// length-prefixed data.
func (i Init) GetAsBlock() Block {
	b := NewBuilder()
	b.WriteBlockWithLen(i.Program)
	b.WriteBlockWithLen(i.Data)
	return b.Build()
}

// InitFromBlock parses an Init from its wire encoding.
func InitFromBlock(blk Block) (Init, bool) {
	s := NewSlice(blk)
	program, ok := s.ReadBlockWithLen()
	if !ok {
		return Init{}, false
	}
	data, ok := s.ReadBlockWithLen()
	if !ok {
		return Init{}, false
	}
	return Init{Program: program, Data: data}, true
}

// Message is a unit of execution: an invocation of opcode on receiver with
// body as payload, optionally deploying a contract via Init.
type Message struct {
	Kind      MessageType
	Sender    Block
	Receiver  Block
	Init      *Init
	Opcode    uint64
	Body      Block
	Timestamp uint64
}

// NewMessage builds a Message stamped with the current wall-clock time in
// milliseconds since the Unix epoch.
func NewMessage(kind MessageType, body Block, opcode uint64, sender, receiver Block, init *Init) Message {
	return Message{
		Kind:      kind,
		Sender:    sender,
		Receiver:  receiver,
		Init:      init,
		Opcode:    opcode,
		Body:      body,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

// GetAsBlock renders the Message to its wire encoding.
func (m Message) GetAsBlock() Block {
	b := NewBuilder()
	switch m.Kind {
	case MessageInternal:
		b.WriteU8(1)
	case MessageExternal:
		b.WriteU8(0)
	case MessageView:
		b.WriteU8(2)
	default:
		b.WriteU8(0)
	}
	b.WriteBlockWithLen(m.Sender)
	b.WriteBlockWithLen(m.Receiver)
	if m.Init != nil {
		b.WriteBlockWithLen(m.Init.GetAsBlock())
	} else {
		b.WriteBlockWithLen(EmptyBlock())
	}
	b.WriteU64(m.Opcode)
	b.WriteBlockWithLen(m.Body)
	b.WriteU64(m.Timestamp)
	return b.Build()
}

// MessageFromBlock parses a Message from its wire encoding. An empty init
// sub-block fails Init parsing and is treated as "no init", matching the
// reference decoder.
func MessageFromBlock(blk Block) (Message, bool) {
	s := NewSlice(blk)
	kindByte, ok := s.ReadU8()
	if !ok {
		return Message{}, false
	}
	var kind MessageType
	switch kindByte {
	case 0:
		kind = MessageExternal
	case 1:
		kind = MessageInternal
	case 2:
		kind = MessageView
	default:
		return Message{}, false
	}
	sender, ok := s.ReadBlockWithLen()
	if !ok {
		return Message{}, false
	}
	receiver, ok := s.ReadBlockWithLen()
	if !ok {
		return Message{}, false
	}
	initBlock, ok := s.ReadBlockWithLen()
	if !ok {
		return Message{}, false
	}
	var initPtr *Init
	if init, ok := InitFromBlock(initBlock); ok {
		initPtr = &init
	}
	opcode, ok := s.ReadU64()
	if !ok {
		return Message{}, false
	}
	body, ok := s.ReadBlockWithLen()
	if !ok {
		return Message{}, false
	}
	timestamp, ok := s.ReadU64()
	if !ok {
		return Message{}, false
	}
	return Message{
		Kind:      kind,
		Sender:    sender,
		Receiver:  receiver,
		Init:      initPtr,
		Opcode:    opcode,
		Body:      body,
		Timestamp: timestamp,
	}, true
}

// String renders a Message for diagnostic logging.
func (m Message) String() string {
	return m.GetAsBlock().Hash().String() + " " + m.Sender.String() + " -> " + m.Receiver.String()
}
