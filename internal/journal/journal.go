// Package journal persists the accepted command stream so engine state can
// be rebuilt by replaying it in order. The store is pebble with 8-byte
// big-endian sequence keys, so iteration order is replay order.
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/cockroachdb/pebble"

	"gungnir/internal/common"
)

func init() {
	gob.Register(common.RegisterSymbols{})
	gob.Register(common.OpenAccount{})
	gob.Register(common.AdjustBalance{})
	gob.Register(common.PlaceOrder{})
	gob.Register(common.MoveOrder{})
	gob.Register(common.CancelOrder{})
}

// entry wraps the command union so gob can round-trip the interface value.
type entry struct {
	Cmd common.Command
}

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// Append writes one accepted command under its sequence number, synced:
// a command is never applied before it is durable.
func (s *Store) Append(seq uint64, cmd common.Command) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry{Cmd: cmd}); err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if err := s.db.Set(seqKey(seq), buf.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("journal append seq %d: %w", seq, err)
	}
	return nil
}

// Replay streams the journalled commands in sequence order. The callback
// returning an error stops the replay.
func (s *Store) Replay(fn func(seq uint64, cmd common.Command) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		seq := binary.BigEndian.Uint64(iter.Key())
		var e entry
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(&e); err != nil {
			return fmt.Errorf("decode seq %d: %w", seq, err)
		}
		if err := fn(seq, e.Cmd); err != nil {
			return err
		}
	}
	return iter.Error()
}
