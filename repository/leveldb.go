package repository

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"svmd/engine"
)

// LevelDB is a durable Repository implementation backed by an embedded
// goleveldb store. Records are key-prefixed by collection
// (contract:/state:/message:) following the three logical collections of
// the document-store layout this repository contract was designed around,
// and JSON-encoded with hex-stringed Blocks, matching that layout's "Blocks
// are stored as hex strings" convention.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if necessary) a LevelDB-backed repository at
// path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying database handle.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

func contractKey(address string, timestamp uint64) []byte {
	return []byte(fmt.Sprintf("contract:%s:%020d", address, timestamp))
}

func contractPrefix(address string) []byte {
	return []byte(fmt.Sprintf("contract:%s:", address))
}

func stateKey(address string, timestamp uint64) []byte {
	return []byte(fmt.Sprintf("state:%s:%020d", address, timestamp))
}

func statePrefix(address string) []byte {
	return []byte(fmt.Sprintf("state:%s:", address))
}

func messageKey(id string) []byte {
	return []byte("message:" + id)
}

// GetContractProgram returns the program of the highest-timestamped
// contract entry for address, if any.
func (l *LevelDB) GetContractProgram(address engine.Block) (engine.Block, bool) {
	rec, ok := l.latestContract(address.String())
	if !ok {
		return engine.Block{}, false
	}
	return engine.BlockFromString(rec.Program)
}

// GetContractData returns the data of the highest-timestamped state entry
// for address, if any.
func (l *LevelDB) GetContractData(address engine.Block) (engine.Block, bool) {
	rec, ok := l.latestState(address.String())
	if !ok {
		return engine.Block{}, false
	}
	return engine.BlockFromString(rec.Data)
}

func (l *LevelDB) latestContract(address string) (contractRecord, bool) {
	iter := l.db.NewIterator(util.BytesPrefix(contractPrefix(address)), nil)
	defer iter.Release()
	var best contractRecord
	found := false
	for iter.Next() {
		var rec contractRecord
		if json.Unmarshal(iter.Value(), &rec) != nil {
			continue
		}
		if !found || rec.Timestamp > best.Timestamp {
			best, found = rec, true
		}
	}
	return best, found
}

func (l *LevelDB) latestState(address string) (stateRecord, bool) {
	iter := l.db.NewIterator(util.BytesPrefix(statePrefix(address)), nil)
	defer iter.Release()
	var best stateRecord
	found := false
	for iter.Next() {
		var rec stateRecord
		if json.Unmarshal(iter.Value(), &rec) != nil {
			continue
		}
		if !found || rec.Timestamp > best.Timestamp {
			best, found = rec, true
		}
	}
	return best, found
}

// SaveTransaction persists tx in pre-order inside a single batch, so the
// whole tree is written atomically.
func (l *LevelDB) SaveTransaction(tx engine.TransactionPart) {
	batch := new(leveldb.Batch)
	saveTransactionPart(tx,
		func(c contractRecord) {
			if raw, err := json.Marshal(c); err == nil {
				batch.Put(contractKey(c.Address, c.Timestamp), raw)
			}
		},
		func(s stateRecord) {
			if raw, err := json.Marshal(s); err == nil {
				batch.Put(stateKey(s.Address, s.Timestamp), raw)
			}
		},
		func(msg messageRecord) {
			if raw, err := json.Marshal(msg); err == nil {
				batch.Put(messageKey(msg.ID), raw)
			}
		},
	)
	_ = l.db.Write(batch, nil)
}

func (l *LevelDB) allMessages() []messageRecord {
	iter := l.db.NewIterator(util.BytesPrefix([]byte("message:")), nil)
	defer iter.Release()
	var out []messageRecord
	for iter.Next() {
		var rec messageRecord
		if json.Unmarshal(iter.Value(), &rec) == nil {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// GetAllMessages returns a newest-first page of every recorded message.
func (l *LevelDB) GetAllMessages(limit, offset uint64) []engine.Message {
	return decodeMessages(paginate(l.allMessages(), limit, offset))
}

// GetMessagesByContract returns a newest-first page of recorded messages
// where address is the sender or the receiver.
func (l *LevelDB) GetMessagesByContract(address engine.Block, limit, offset uint64) []engine.Message {
	addr := address.String()
	all := l.allMessages()
	filtered := make([]messageRecord, 0, len(all))
	for _, r := range all {
		if r.Sender == addr || r.Receiver == addr {
			filtered = append(filtered, r)
		}
	}
	return decodeMessages(paginate(filtered, limit, offset))
}
