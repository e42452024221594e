package gomariadb

import "sync"

// transactionSaver buffers every redoable message issued since the last
// commit/rollback/BEGIN, so a transaction interrupted by a transient
// connection failure can be replayed in full against a fresh connection
// (spec.md §4.2 "Transaction replay"). Once the buffer exceeds maxSize it
// stops recording and flags itself overflowed: replay then becomes
// impossible and the caller must surface a connection error instead of
// silently resubmitting a partial transaction.
type transactionSaver struct {
	mu         sync.Mutex
	messages   []Message
	size       int
	maxSize    int
	overflowed bool
}

func newTransactionSaver(maxSize int) *transactionSaver {
	return &transactionSaver{maxSize: maxSize}
}

// add records a message after it was successfully sent. Non-redoable
// messages (PING, QUIT, SET_OPTION) are never passed here by the caller.
func (ts *transactionSaver) add(m Message, encodedLen int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.overflowed {
		return
	}
	if ts.size+encodedLen > ts.maxSize {
		ts.overflowed = true
		ts.messages = nil
		return
	}
	ts.messages = append(ts.messages, m)
	ts.size += encodedLen
}

func (ts *transactionSaver) clear() {
	ts.mu.Lock()
	ts.messages = nil
	ts.size = 0
	ts.overflowed = false
	ts.mu.Unlock()
}

func (ts *transactionSaver) canReplay() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return !ts.overflowed && len(ts.messages) > 0
}

// replay re-sends every buffered message over a freshly (re)connected
// frame, remapping prepared-statement ids through remapStmt since the new
// connection's server assigns its own ids on re-prepare.
func (ts *transactionSaver) replay(ctx *Context, fr *frame, remapStmt func(oldID uint32) (uint32, error)) error {
	ts.mu.Lock()
	msgs := make([]Message, len(ts.messages))
	copy(msgs, ts.messages)
	ts.mu.Unlock()

	for _, m := range msgs {
		var payload []byte
		var err error

		if redo, ok := m.(Redoable); ok && redo.originalStmtID() != 0 {
			newID, rerr := remapStmt(redo.originalStmtID())
			if rerr != nil {
				return rerr
			}
			payload, err = redo.reencode(ctx, newID)
		} else {
			payload, err = m.encode(ctx)
		}
		if err != nil {
			return myErrorWrap(ErrConnection, err, "transaction replay")
		}

		fr.resetSeq()
		if err := fr.writePacket(payload); err != nil {
			return err
		}
		if _, err := fr.readPacket(); err != nil {
			return err
		}
	}
	return nil
}
