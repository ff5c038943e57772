package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Manager aggregates all Badger-backed stores behind one handle sharing a
// single database connection.
type Manager struct {
	db        *BadgerDB
	jobs      interfaces.JobStore
	queue     interfaces.QueueStore
	kv        interfaces.KeyValueStorage
	ledger    interfaces.LedgerStore
	documents interfaces.DocumentStore
	locks     interfaces.LockStore
}

// NewManager opens the database and wires every store.
func NewManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	jobTTL := common.ParseDuration(config.Pipeline.JobTTL, common.DefaultJobTTL)
	staleness := common.ParseDuration(config.Queue.StalenessWindow, common.DefaultStalenessWindow)
	maxAttempts := config.Queue.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = common.DefaultTopicMaxAttempts
	}

	return &Manager{
		db:        db,
		jobs:      NewJobStorage(db, logger, jobTTL),
		queue:     NewQueueStorage(db, logger, staleness, maxAttempts),
		kv:        NewKVStorage(db, logger),
		ledger:    NewLedgerStorage(db, logger),
		documents: NewDocumentStorage(db, logger),
		locks:     NewLockStorage(db, logger),
	}, nil
}

func (m *Manager) JobStore() interfaces.JobStore            { return m.jobs }
func (m *Manager) QueueStore() interfaces.QueueStore        { return m.queue }
func (m *Manager) KVStore() interfaces.KeyValueStorage      { return m.kv }
func (m *Manager) LedgerStore() interfaces.LedgerStore      { return m.ledger }
func (m *Manager) DocumentStore() interfaces.DocumentStore  { return m.documents }
func (m *Manager) LockStore() interfaces.LockStore          { return m.locks }

// Close shuts down the shared database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}
