package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

const lockKeyPrefix = "lock:"

// LockStorage implements durable TTL locks and markers on raw Badger
// entries. Acquire relies on Badger's transactional conflict detection,
// so two concurrent acquirers of the same name cannot both succeed even
// across processes sharing the database.
type LockStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLockStorage creates a new LockStorage instance
func NewLockStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LockStore {
	return &LockStorage{db: db, logger: logger}
}

// Acquire atomically creates the lock entry if absent. It returns false
// when the lock is already held; expiry via TTL makes crashed holders
// release automatically.
func (s *LockStorage) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := []byte(lockKeyPrefix + name)

	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return badgerdb.ErrConflict
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		entry := badgerdb.NewEntry(key, []byte(time.Now().Format(time.RFC3339))).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err == badgerdb.ErrConflict {
		s.logger.Debug().Str("lock", name).Msg("Lock already held")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	s.logger.Debug().Str("lock", name).Dur("ttl", ttl).Msg("Lock acquired")
	return true, nil
}

// Release deletes the lock entry. Releasing an unheld lock is a no-op.
func (s *LockStorage) Release(ctx context.Context, name string) error {
	key := []byte(lockKeyPrefix + name)

	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}

	s.logger.Debug().Str("lock", name).Msg("Lock released")
	return nil
}

// SetMarker stores a TTL-bounded marker value, overwriting any existing one.
func (s *LockStorage) SetMarker(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(lockKeyPrefix+key), []byte(value)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to set marker %s: %w", key, err)
	}
	return nil
}

// GetMarker reads a marker value, returning ErrKeyNotFound for missing or
// expired markers.
func (s *LockStorage) GetMarker(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.Badger().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(lockKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get marker %s: %w", key, err)
	}
	return value, nil
}

// DeleteMarker removes a marker entry.
func (s *LockStorage) DeleteMarker(ctx context.Context, key string) error {
	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(lockKeyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete marker %s: %w", key, err)
	}
	return nil
}
