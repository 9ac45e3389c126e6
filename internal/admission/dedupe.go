package admission

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"rondo/internal/log"
)

// DedupeStore records message and media-group keys with a TTL. It is backed
// by an in-memory badger instance so expiry is handled by the store itself
// rather than by sweep-on-access over an unbounded map. Expiry timestamps
// are kept with one-second granularity, so windows must be well above a
// second; the production windows are minutes.
type DedupeStore struct {
	db *badger.DB
}

// NewDedupeStore opens the in-memory key store.
func NewDedupeStore() (*DedupeStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("admission: open dedupe store: %w", err)
	}
	return &DedupeStore{db: db}, nil
}

// Close releases the store.
func (s *DedupeStore) Close() error { return s.db.Close() }

// FirstSeen records the key with the given TTL and reports whether this was
// its first occurrence inside the TTL window. Store failures admit the key
// (fail open): a rare duplicate job beats rejecting legitimate traffic.
func (s *DedupeStore) FirstSeen(key string, ttl time.Duration) bool {
	first := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return nil // already recorded
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		first = true
		entry := badger.NewEntry([]byte(key), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		logger := log.WithComponent("admission")
		logger.Warn().Err(err).Str("key", key).
			Msg("dedupe store update failed, admitting")
		return true
	}
	return first
}

func messageKey(chatID int64, messageID int) string {
	return fmt.Sprintf("msg:%d:%d", chatID, messageID)
}

func groupKey(id string) string {
	return "grp:" + id
}
