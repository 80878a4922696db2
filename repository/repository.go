// Package repository provides storage backings for the execution engine:
// an in-memory map-backed store for tests and an embedded LevelDB-backed
// store for durable operation. Both satisfy engine.Repository.
package repository

import "svmd/engine"

// Repository is engine.Repository, re-exported so callers outside engine
// don't need to import it directly to hold a reference to a backing.
type Repository = engine.Repository

// contractRecord is the persisted shape of a contracts collection entry.
type contractRecord struct {
	Address   string `json:"address"`
	Program   string `json:"program"`
	Timestamp uint64 `json:"timestamp"`
}

// stateRecord is the persisted shape of a contract_states collection
// entry.
type stateRecord struct {
	Address   string `json:"address"`
	Data      string `json:"data"`
	Timestamp uint64 `json:"timestamp"`
}

// messageRecord is the persisted shape of a messages collection entry.
type messageRecord struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Blob      string `json:"blob"`
	Timestamp uint64 `json:"timestamp"`
}

func newContractRecord(address, program string, timestamp uint64) contractRecord {
	return contractRecord{Address: address, Program: program, Timestamp: timestamp}
}

func newStateRecord(address, data string, timestamp uint64) stateRecord {
	return stateRecord{Address: address, Data: data, Timestamp: timestamp}
}

func newMessageRecord(m engine.Message) messageRecord {
	return messageRecord{
		ID:        m.GetAsBlock().Hash().String(),
		Sender:    m.Sender.String(),
		Receiver:  m.Receiver.String(),
		Blob:      m.GetAsBlock().String(),
		Timestamp: m.Timestamp,
	}
}

// saveTransactionPart walks tx in pre-order, handing each message and state
// record to the put callbacks. This is the shared traversal both backings
// use: for each State node, record the message, the post-state, and (if
// the message carries init) a contract entry, then recurse into children;
// for each Message node, record just the message.
func saveTransactionPart(tx engine.TransactionPart, putContract func(contractRecord), putState func(stateRecord), putMessage func(messageRecord)) {
	if !tx.Executed() {
		putMessage(newMessageRecord(tx.Message()))
		return
	}
	state := tx.State()
	putMessage(newMessageRecord(state.Message))
	putState(newStateRecord(state.Message.Receiver.String(), state.Data.String(), state.Message.Timestamp))
	if state.Message.Init != nil {
		putContract(newContractRecord(state.Message.Receiver.String(), state.Message.Init.Program.String(), state.Message.Timestamp))
	}
	for _, child := range state.Children {
		saveTransactionPart(child, putContract, putState, putMessage)
	}
}

func paginate(msgs []messageRecord, limit, offset uint64) []messageRecord {
	if offset >= uint64(len(msgs)) {
		return nil
	}
	end := offset + limit
	if end > uint64(len(msgs)) {
		end = uint64(len(msgs))
	}
	return msgs[offset:end]
}

func decodeMessages(records []messageRecord) []engine.Message {
	out := make([]engine.Message, 0, len(records))
	for _, r := range records {
		blk, ok := engine.BlockFromString(r.Blob)
		if !ok {
			continue
		}
		m, ok := engine.MessageFromBlock(blk)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}
