package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/common"
)

// setupTestDB opens a throwaway database for one test.
func setupTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	config := &common.BadgerConfig{
		Path: t.TempDir(),
	}

	db, err := NewBadgerDB(common.GetLogger(), config)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
