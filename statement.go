package gomariadb

// Statement is a server-prepared statement bound to the Session that
// prepared it (spec.md §3 "Prepared statement", §4.2 "Prepared
// statements"). It is backed by the Session's prepareCache entry, so
// repeated Prepare calls for identical SQL reuse the same server-side
// statement id.
type Statement struct {
	session *Session
	entry   *preparedStmtEntry
	closed  bool
}

// Prepare issues COM_STMT_PREPARE, or returns a cached entry for
// identical SQL text already prepared on this Session (spec.md §3
// "prepare cache").
func (s *Session) Prepare(sql string) (*Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, myError(ErrNoConnection)
	}
	if err := s.flushPendingCloses(); err != nil {
		return nil, err
	}

	if entry, ok := s.prepared.get(sql); ok {
		return &Statement{session: s, entry: entry}, nil
	}

	payload, err := (&prepareMessage{sql: sql}).encode(s.ctx)
	if err != nil {
		return nil, err
	}
	s.fr.resetSeq()
	if err := s.fr.writePacket(payload); err != nil {
		return nil, s.handleFatal(err)
	}

	first, err := s.fr.readPacket()
	if err != nil {
		return nil, s.handleFatal(err)
	}
	if len(first) == 0 {
		return nil, myError(ErrInvalidPacket)
	}
	if first[0] == headerErr {
		return nil, parseErr(first)
	}

	ok := parsePrepareOK(first)
	entry := &preparedStmtEntry{
		sql:         sql,
		stmtID:      ok.stmtID,
		paramCount:  ok.paramCount,
		columnCount: ok.columnCount,
	}

	for i := uint16(0); i < ok.paramCount; i++ {
		pkt, err := s.fr.readPacket()
		if err != nil {
			return nil, s.handleFatal(err)
		}
		entry.params = append(entry.params, parseColumnDefinitionPacket(pkt))
	}
	if ok.paramCount > 0 && !s.ctx.hasCapability(CapDeprecateEOF) {
		if _, err := s.fr.readPacket(); err != nil {
			return nil, s.handleFatal(err)
		}
	}

	for i := uint16(0); i < ok.columnCount; i++ {
		pkt, err := s.fr.readPacket()
		if err != nil {
			return nil, s.handleFatal(err)
		}
		entry.columns = append(entry.columns, parseColumnDefinitionPacket(pkt))
	}
	if ok.columnCount > 0 && !s.ctx.hasCapability(CapDeprecateEOF) {
		if _, err := s.fr.readPacket(); err != nil {
			return nil, s.handleFatal(err)
		}
	}

	s.prepared.put(entry)
	return &Statement{session: s, entry: entry}, nil
}

// ParamCount reports the number of placeholders the server parsed out of
// the prepared SQL text.
func (st *Statement) ParamCount() int { return int(st.entry.paramCount) }

// Execute binds params positionally and issues COM_STMT_EXECUTE, returning
// a result set for SELECT-shaped statements or nil for DML (spec.md §4.2).
func (st *Statement) Execute(params ...interface{}) (*ResultSet, uint64, uint64, error) {
	s := st.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || st.closed {
		return nil, 0, 0, myError(ErrNoConnection)
	}
	if err := s.flushPendingCloses(); err != nil {
		return nil, 0, 0, err
	}
	if len(params) != int(st.entry.paramCount) {
		return nil, 0, 0, myError(ErrInvalidType, "parameter count mismatch")
	}

	values := make([]driverValue, len(params))
	for i, p := range params {
		values[i] = driverValue{isNull: p == nil, val: p}
	}

	msg := &executeMessage{stmtID: st.entry.stmtID, params: values, newParamsBound: true}
	payload, err := msg.encode(s.ctx)
	if err != nil {
		return nil, 0, 0, err
	}

	s.fr.resetSeq()
	if err := s.fr.writePacket(payload); err != nil {
		return nil, 0, 0, s.handleFatal(err)
	}
	if s.ctx.inTransaction() {
		s.saver.add(msg, len(payload))
	}

	first, err := s.fr.readPacket()
	if err != nil {
		return nil, 0, 0, s.handleFatal(err)
	}
	if len(first) == 0 {
		return nil, 0, 0, myError(ErrInvalidPacket)
	}
	switch first[0] {
	case headerOK:
		ok := parseOK(first, s.ctx)
		if _, err := s.drainMoreResults(nil, true); err != nil {
			return nil, 0, 0, err
		}
		return nil, ok.affectedRows, ok.lastInsertID, nil
	case headerErr:
		return nil, 0, 0, parseErr(first)
	default:
		rs, err := s.readResultSet(first, true)
		if err != nil {
			return rs, 0, 0, err
		}
		rs, err = s.drainMoreResults(rs, true)
		return rs, 0, 0, err
	}
}

// Close releases this Statement's reference and issues COM_STMT_CLOSE
// once the cache entry has been evicted and every Statement sharing it
// has released it; an entry still in the cache stays prepared (spec.md
// §4.2, preparecache.go's refcounting).
func (st *Statement) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true

	s := st.session
	s.mu.Lock()
	defer s.mu.Unlock()

	stmtID, shouldClose := s.prepared.releaseRef(st.entry)
	if !shouldClose {
		return nil
	}
	payload, err := (&closeStmtMessage{stmtID: stmtID}).encode(s.ctx)
	if err != nil {
		return err
	}
	s.fr.resetSeq()
	return s.fr.writePacket(payload)
}
