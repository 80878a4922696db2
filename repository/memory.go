package repository

import (
	"sort"
	"sync"

	"svmd/engine"
)

// InMemory is a map-backed Repository implementation used by tests and by
// operators who don't need durability across restarts. It mirrors the
// mutex-guarded map shape the teacher's virtual machine state keeps for its
// own in-memory backing.
type InMemory struct {
	mu        sync.RWMutex
	contracts map[string][]contractRecord
	states    map[string][]stateRecord
	messages  []messageRecord
}

// NewInMemory returns an empty in-memory repository.
func NewInMemory() *InMemory {
	return &InMemory{
		contracts: make(map[string][]contractRecord),
		states:    make(map[string][]stateRecord),
	}
}

// GetContractProgram returns the program of the most recently recorded
// contract entry for address, if any.
func (m *InMemory) GetContractProgram(address engine.Block) (engine.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := latestContract(m.contracts[address.String()])
	if !ok {
		return engine.Block{}, false
	}
	return engine.BlockFromString(rec.Program)
}

// GetContractData returns the data of the most recently recorded state
// entry for address, if any.
func (m *InMemory) GetContractData(address engine.Block) (engine.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := latestState(m.states[address.String()])
	if !ok {
		return engine.Block{}, false
	}
	return engine.BlockFromString(rec.Data)
}

// SaveTransaction persists tx in pre-order.
func (m *InMemory) SaveTransaction(tx engine.TransactionPart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saveTransactionPart(tx,
		func(c contractRecord) {
			m.contracts[c.Address] = append(m.contracts[c.Address], c)
		},
		func(s stateRecord) {
			m.states[s.Address] = append(m.states[s.Address], s)
		},
		func(msg messageRecord) {
			m.messages = append(m.messages, msg)
		},
	)
}

// GetAllMessages returns a newest-first page of every recorded message.
func (m *InMemory) GetAllMessages(limit, offset uint64) []engine.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := sortedMessages(m.messages)
	return decodeMessages(paginate(sorted, limit, offset))
}

// GetMessagesByContract returns a newest-first page of recorded messages
// where address is the sender or the receiver.
func (m *InMemory) GetMessagesByContract(address engine.Block, limit, offset uint64) []engine.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr := address.String()
	filtered := make([]messageRecord, 0, len(m.messages))
	for _, r := range sortedMessages(m.messages) {
		if r.Sender == addr || r.Receiver == addr {
			filtered = append(filtered, r)
		}
	}
	return decodeMessages(paginate(filtered, limit, offset))
}

func latestContract(recs []contractRecord) (contractRecord, bool) {
	if len(recs) == 0 {
		return contractRecord{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if r.Timestamp > best.Timestamp {
			best = r
		}
	}
	return best, true
}

func latestState(recs []stateRecord) (stateRecord, bool) {
	if len(recs) == 0 {
		return stateRecord{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if r.Timestamp > best.Timestamp {
			best = r
		}
	}
	return best, true
}

func sortedMessages(msgs []messageRecord) []messageRecord {
	out := make([]messageRecord, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}
