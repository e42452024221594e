package gomariadb

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// preparedStmtEntry is a server-prepared statement kept alive across
// Statement instances that share the same SQL text (spec.md §3 "prepare
// cache"). refCount tracks how many live Statements currently point at it;
// an entry evicted from the LRU while refCount > 0 is only closed once the
// last holder releases it.
type preparedStmtEntry struct {
	sql         string
	stmtID      uint32
	paramCount  uint16
	columnCount uint16
	columns     []*ColumnDefinition
	params      []*ColumnDefinition

	mu       sync.Mutex
	refCount int
	evicted  bool
}

func (e *preparedStmtEntry) acquire() {
	e.mu.Lock()
	e.refCount++
	e.mu.Unlock()
}

// release decrements the reference count and reports whether the caller
// must now issue COM_STMT_CLOSE for this statement id (it was evicted
// while in use, and this was the last holder).
func (e *preparedStmtEntry) release() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refCount--
	return e.evicted && e.refCount <= 0
}

// prepareCache is a per-Session LRU of server-prepared statements keyed by
// SQL text (spec.md §3). Eviction never closes a statement directly —
// that would race a Statement mid-use — it only marks the entry and defers
// the close to whichever caller drops the last reference.
type prepareCache struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *preparedStmtEntry]
	toClose  []uint32
}

func newPrepareCache(capacity int) *prepareCache {
	pc := &prepareCache{toClose: make([]uint32, 0, 4)}
	c, _ := lru.NewWithEvict[string, *preparedStmtEntry](capacity, func(_ string, entry *preparedStmtEntry) {
		pc.onEvict(entry)
	})
	pc.cache = c
	return pc
}

func (pc *prepareCache) onEvict(entry *preparedStmtEntry) {
	entry.mu.Lock()
	entry.evicted = true
	closeNow := entry.refCount <= 0
	entry.mu.Unlock()

	if closeNow {
		pc.mu.Lock()
		pc.toClose = append(pc.toClose, entry.stmtID)
		pc.mu.Unlock()
	}
}

// get returns the cached entry for sql, acquiring a reference on the
// caller's behalf so it survives a concurrent eviction.
func (pc *prepareCache) get(sql string) (*preparedStmtEntry, bool) {
	entry, ok := pc.cache.Get(sql)
	if !ok {
		return nil, false
	}
	entry.acquire()
	return entry, true
}

// put registers a freshly prepared statement, acquiring one reference for
// the caller that just prepared it.
func (pc *prepareCache) put(entry *preparedStmtEntry) {
	entry.acquire()
	pc.cache.Add(entry.sql, entry)
}

// releaseRef drops the caller's reference, returning the statement id to
// close if eviction happened while it was still checked out.
func (pc *prepareCache) releaseRef(entry *preparedStmtEntry) (uint32, bool) {
	if entry.release() {
		return entry.stmtID, true
	}
	return 0, false
}

// drainPendingCloses returns and clears the statement ids whose
// COM_STMT_CLOSE is still owed; the Session flushes them at the start of
// its next command (Session.flushPendingCloses).
func (pc *prepareCache) drainPendingCloses() []uint32 {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if len(pc.toClose) == 0 {
		return nil
	}
	out := pc.toClose
	pc.toClose = make([]uint32, 0, 4)
	return out
}

// sqlForStmtID finds the SQL text a still-cached entry was prepared from.
// Used by transaction replay to re-prepare a statement against a fresh
// connection before remapping its id (spec.md §4.2 "Transaction replay").
func (pc *prepareCache) sqlForStmtID(id uint32) (string, bool) {
	for _, sql := range pc.cache.Keys() {
		if entry, ok := pc.cache.Peek(sql); ok && entry.stmtID == id {
			return sql, true
		}
	}
	return "", false
}

func (pc *prepareCache) len() int { return pc.cache.Len() }

func (pc *prepareCache) purge() { pc.cache.Purge() }
