package gomariadb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareCacheGetPutRoundTrip(t *testing.T) {
	pc := newPrepareCache(2)
	entry := &preparedStmtEntry{sql: "SELECT 1", stmtID: 1}
	pc.put(entry)

	got, ok := pc.get("SELECT 1")
	require.True(t, ok)
	assert.Equal(t, uint32(1), got.stmtID)

	_, ok = pc.get("SELECT 2")
	assert.False(t, ok)
}

// TestPrepareCacheEvictionDefersCloseUntilLastRelease matches the
// refcounting contract spec.md §3 calls for: a statement evicted from the
// LRU while a Statement still holds it must not be closed until that
// holder releases it.
func TestPrepareCacheEvictionDefersCloseUntilLastRelease(t *testing.T) {
	pc := newPrepareCache(1)

	a := &preparedStmtEntry{sql: "A", stmtID: 10}
	pc.put(a)
	held, ok := pc.get("A") // second reference, simulating a live Statement
	require.True(t, ok)

	b := &preparedStmtEntry{sql: "B", stmtID: 20}
	pc.put(b) // evicts A, but A.refCount is still 2

	assert.Empty(t, pc.drainPendingCloses(), "eviction while in use must not schedule a close yet")

	pc.releaseRef(a) // the put() caller's own reference
	stmtID, shouldClose := pc.releaseRef(held)
	assert.True(t, shouldClose)
	assert.Equal(t, uint32(10), stmtID)
}

func TestPrepareCacheLenAndPurge(t *testing.T) {
	pc := newPrepareCache(4)
	pc.put(&preparedStmtEntry{sql: "A", stmtID: 1})
	pc.put(&preparedStmtEntry{sql: "B", stmtID: 2})
	assert.Equal(t, 2, pc.len())

	pc.purge()
	assert.Equal(t, 0, pc.len())
}
