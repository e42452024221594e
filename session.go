package gomariadb

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session owns one physical connection's command cycle: it serializes
// every command behind a mutex, decodes the response shape (OK/ERR/result
// set) per spec.md §4.2, and keeps the Context, prepare cache, and
// transaction-replay buffer that travel with the connection.
type Session struct {
	mu sync.Mutex

	cfg      *Config
	conn     net.Conn
	fr       *frame
	ctx      *Context
	registry *codecRegistry
	prepared *prepareCache
	saver    *transactionSaver
	log      *zap.Logger

	connectionID uint32
	closed       bool
}

// Connect dials, performs the handshake, and runs the session's
// post-connect setup (database selection already happened during
// handshake; session variables are applied here via SET).
func Connect(cfg *Config, opts ...SessionOption) (*Session, error) {
	options := defaultSessionOptions()
	for _, o := range opts {
		o(options)
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	network, address := "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	if cfg.Socket != "" {
		network, address = "unix", cfg.Socket
	}
	conn, err := dialer.Dial(network, address)
	if err != nil {
		return nil, myErrorWrap(ErrConnection, err)
	}

	creds := cfg.credentials()
	if options.credentials != nil {
		creds = options.credentials
	}

	fr, ctx, err := handshake(conn, cfg, creds)
	if err != nil {
		conn.Close()
		return nil, err
	}
	ctx.exceptionFactory = options.exceptionFactory
	ctx.host = sharedHostAddress(cfg.Host, cfg.Port)

	if cfg.UseCompression && ctx.hasCapability(CapCompress) {
		fr.rw = newCompressReadWriter()
	}

	s := &Session{
		cfg:          cfg,
		conn:         conn,
		fr:           fr,
		ctx:          ctx,
		registry:     newCodecRegistry(),
		prepared:     newPrepareCache(cfg.PrepareCacheSize),
		saver:        newTransactionSaver(cfg.TransactionReplaySize),
		log:          options.logger,
		connectionID: ctx.connectionID,
	}

	if err := s.applySessionVariables(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// SessionOption customizes Connect beyond what the DSN expresses
// (SPEC_FULL.md §3: injectable logger, pluggable credential provider,
// exception factory substitution).
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger           *zap.Logger
	credentials      CredentialProvider
	exceptionFactory ExceptionFactory
}

func defaultSessionOptions() *sessionOptions {
	return &sessionOptions{logger: zap.NewNop(), exceptionFactory: defaultExceptionFactory}
}

// WithLogger injects a zap logger; the default is a no-op logger so the
// library stays silent unless a caller opts in (SPEC_FULL.md §3).
func WithLogger(l *zap.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// WithCredentialProvider overrides the DSN's static username/password.
func WithCredentialProvider(c CredentialProvider) SessionOption {
	return func(o *sessionOptions) { o.credentials = c }
}

// WithExceptionFactory overrides how internal *Error values are
// translated for the caller (SPEC_FULL.md §5).
func WithExceptionFactory(f ExceptionFactory) SessionOption {
	return func(o *sessionOptions) { o.exceptionFactory = f }
}

func (s *Session) applySessionVariables() error {
	if len(s.cfg.SessionVariables) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("SET ")
	first := true
	for k, v := range s.cfg.SessionVariables {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k)
		sb.WriteString(" = ")
		sb.WriteString(v)
	}
	_, _, err := s.Exec(sb.String())
	return err
}

func (s *Session) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return s.ctx.exceptionFactory(e)
	}
	return err
}

// Query runs a text-protocol command and returns its result set, buffering
// all rows eagerly (spec.md §4.2 "Otherwise: read column-definitions then
// rows"). A multi-statement SQL string yields a chain reachable through
// ResultSet.NextResultSet.
func (s *Session) Query(sql string) (*ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, myError(ErrNoConnection)
	}
	if err := s.flushPendingCloses(); err != nil {
		return nil, s.wrapErr(err)
	}

	rs, _, err := s.runCommand(&queryMessage{sql: sql}, s.ctx.inTransaction())
	return rs, s.wrapErr(err)
}

// Exec runs a text-protocol command expected to return an OK packet
// (affected rows / last insert id) rather than a result set.
func (s *Session) Exec(sql string) (affectedRows, lastInsertID uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0, myError(ErrNoConnection)
	}
	if err := s.flushPendingCloses(); err != nil {
		return 0, 0, s.wrapErr(err)
	}

	_, ok, err := s.runCommand(&queryMessage{sql: sql}, s.ctx.inTransaction())
	if err != nil {
		return 0, 0, s.wrapErr(err)
	}
	if ok == nil {
		return 0, 0, myError(ErrInvalidPacket)
	}
	return ok.affectedRows, ok.lastInsertID, nil
}

// Ping issues COM_PING.
func (s *Session) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushPendingCloses(); err != nil {
		return s.wrapErr(err)
	}
	_, _, err := s.runCommand(&pingMessage{}, false)
	return s.wrapErr(err)
}

// ResetConnection clears session state server-side with
// COM_RESET_CONNECTION when the server supports it and UseResetConnection
// is enabled, then purges the prepare cache, the tracked state flags and
// the replay buffer. Otherwise it sends nothing and returns nil; there is
// no SET-based reset path.
func (s *Session) ResetConnection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.UseResetConnection && s.ctx.supportsResetConnection() {
		_, _, err := s.runCommand(&resetConnectionMessage{}, false)
		if err == nil {
			s.prepared.purge()
			s.ctx.clearChanges()
			s.saver.clear()
		}
		return s.wrapErr(err)
	}
	return nil
}

// Close sends COM_QUIT and releases the socket; idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.fr != nil {
		s.fr.resetSeq()
		payload, _ := (&quitMessage{}).encode(s.ctx)
		s.fr.writePacket(payload)
	}
	return s.conn.Close()
}

// ConnectionID reports the server-assigned thread id, used by KILL QUERY
// (spec.md §4.2, cancel.go).
func (s *Session) ConnectionID() uint32 { return s.connectionID }

// runCommand sends m, reads its response, and decodes a result set when
// the server replied with a column-count header rather than OK/ERR.
func (s *Session) runCommand(m Message, redoable bool) (*ResultSet, *okPacket, error) {
	payload, err := m.encode(s.ctx)
	if err != nil {
		return nil, nil, err
	}

	s.fr.resetSeq()
	if err := s.fr.writePacket(payload); err != nil {
		return nil, nil, s.handleFatal(err)
	}
	if redoable {
		s.saver.add(m, len(payload))
	}

	first, err := s.fr.readPacket()
	if err != nil {
		return nil, nil, s.handleFatal(err)
	}
	if len(first) == 0 {
		return nil, nil, myError(ErrInvalidPacket)
	}

	switch first[0] {
	case headerOK:
		ok := parseOK(first, s.ctx)
		chain, err := s.drainMoreResults(nil, false)
		return chain, ok, err
	case headerErr:
		return nil, nil, parseErr(first)
	default:
		rs, err := s.readResultSet(first, false)
		if err != nil {
			return rs, nil, err
		}
		rs, err = s.drainMoreResults(rs, false)
		return rs, nil, err
	}
}

// drainMoreResults reads every trailing response in a multi-statement
// command's MORE_RESULTS_EXISTS chain (spec.md §4.2 "Multi-result /
// streaming"), linking each one onto head via ResultSet.next so a
// multi-statement command never leaves a later statement's response
// unread on the socket.
func (s *Session) drainMoreResults(head *ResultSet, binaryRows bool) (*ResultSet, error) {
	tail := head
	for s.ctx.moreResults() {
		first, err := s.fr.readPacket()
		if err != nil {
			return head, s.handleFatal(err)
		}
		if len(first) == 0 {
			return head, myError(ErrInvalidPacket)
		}

		var rs *ResultSet
		switch first[0] {
		case headerOK:
			o := parseOK(first, s.ctx)
			rs = newResultSet(s.registry, nil)
			rs.affectedRows = o.affectedRows
			rs.lastInsertID = o.lastInsertID
			rs.loaded = true
		case headerErr:
			return head, parseErr(first)
		default:
			rs, err = s.readResultSet(first, binaryRows)
			if err != nil {
				return head, err
			}
		}

		if head == nil {
			head = rs
		} else {
			tail.next = rs
		}
		tail = rs
	}
	return head, nil
}

// flushPendingCloses dispatches COM_STMT_CLOSE for every prepared
// statement the LRU evicted while idle and unreferenced (preparecache.go's
// onEvict). Called at the start of each command cycle so an idle-evicted
// entry's server-side handle never leaks past the next thing this Session
// does (spec.md §4.5 / §8's "exactly one CLOSE_STMT dispatched"
// invariant).
func (s *Session) flushPendingCloses() error {
	for _, id := range s.prepared.drainPendingCloses() {
		payload, err := (&closeStmtMessage{stmtID: id}).encode(s.ctx)
		if err != nil {
			return err
		}
		s.fr.resetSeq()
		if err := s.fr.writePacket(payload); err != nil {
			return s.handleFatal(err)
		}
	}
	return nil
}

// readResultSet decodes the column-count packet, the following N
// column-definition packets, the EOF terminator (unless
// CapDeprecateEOF), and then every row (spec.md §4.2, §4.6).
func (s *Session) readResultSet(columnCountPkt []byte, binaryRows bool) (*ResultSet, error) {
	count, _ := getLenencInt(columnCountPkt[0:])
	columns := make([]*ColumnDefinition, 0, count)
	for i := uint64(0); i < count; i++ {
		pkt, err := s.fr.readPacket()
		if err != nil {
			return nil, s.handleFatal(err)
		}
		columns = append(columns, parseColumnDefinitionPacket(pkt))
	}

	if !s.ctx.hasCapability(CapDeprecateEOF) {
		eofPkt, err := s.fr.readPacket()
		if err != nil {
			return nil, s.handleFatal(err)
		}
		parseEOF(eofPkt, s.ctx)
	}

	rs := newResultSet(s.registry, columns)
	for {
		pkt, err := s.fr.readPacket()
		if err != nil {
			return nil, s.handleFatal(err)
		}
		if len(pkt) > 0 && pkt[0] == headerErr {
			return nil, parseErr(pkt)
		}
		if isEOFPacket(pkt, s.ctx) {
			if s.ctx.hasCapability(CapDeprecateEOF) {
				parseOK(pkt, s.ctx)
			} else {
				parseEOF(pkt, s.ctx)
			}
			break
		}
		var r *row
		if binaryRows {
			r, err = newBinaryRow(pkt, columns)
		} else {
			r, err = newTextRow(pkt, columns)
		}
		if err != nil {
			return nil, err
		}
		rs.addRow(r)
	}
	return rs, nil
}

// handleFatal marks the connection dead on any I/O failure. When the
// buffer has messages worth replaying, it also tries to build a
// replacement connection and replay them before giving up, so a
// transaction interrupted mid-flight can continue on the next call
// instead of being lost outright (spec.md §4.2 "Transaction replay",
// scenario 4 in spec.md §8). Either way, the error that triggered this
// call is returned unchanged — the caller's own in-flight command still
// failed; only the Session's usability for subsequent calls depends on
// whether replay succeeded.
func (s *Session) handleFatal(err error) error {
	s.closed = true
	if e, ok := err.(*Error); ok {
		e.fatal = true
	}
	if s.saver.canReplay() {
		if s.reconnectAndReplay() == nil {
			s.closed = false
		}
	}
	return err
}

// reconnectAndReplay dials a fresh connection to the same host, performs
// the handshake, re-prepares any statement the buffered messages
// reference, and replays the buffer against the new connection. On
// success it swaps the Session's conn/fr/ctx/connectionID in place and
// purges the prepare cache (old statement ids/entries from the dead
// connection are no longer valid); on any failure the Session stays
// closed and the caller must open a new one.
func (s *Session) reconnectAndReplay() error {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	network, address := "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if s.cfg.Socket != "" {
		network, address = "unix", s.cfg.Socket
	}
	conn, err := dialer.Dial(network, address)
	if err != nil {
		return myErrorWrap(ErrConnection, err)
	}

	fr, ctx, err := handshake(conn, s.cfg, s.cfg.credentials())
	if err != nil {
		conn.Close()
		return err
	}
	ctx.exceptionFactory = s.ctx.exceptionFactory
	ctx.host = s.ctx.host

	remapped := map[uint32]uint32{}
	remapStmt := func(oldID uint32) (uint32, error) {
		if newID, ok := remapped[oldID]; ok {
			return newID, nil
		}
		sql, ok := s.prepared.sqlForStmtID(oldID)
		if !ok {
			return 0, myError(ErrInvalidPacket)
		}
		newID, err := reprepareForReplay(fr, ctx, sql)
		if err != nil {
			return 0, err
		}
		remapped[oldID] = newID
		return newID, nil
	}

	if err := s.saver.replay(ctx, fr, remapStmt); err != nil {
		conn.Close()
		return err
	}

	oldConn := s.conn
	s.conn = conn
	s.fr = fr
	s.ctx = ctx
	s.connectionID = ctx.connectionID
	s.prepared.purge()
	// The buffer's messages are now applied (as individually autocommitted
	// statements, since no BEGIN precedes them on the new connection) and
	// must not be replayed again: a second failure after this point starts
	// from an empty buffer rather than risk double-applying them.
	s.saver.clear()
	oldConn.Close()
	return nil
}

// reprepareForReplay issues COM_STMT_PREPARE against a freshly (re)connected
// frame and returns only the new statement id, discarding param/column
// metadata — sufficient for transaction replay's remapStmt callback
// (spec.md §4.2); a caller that later Prepares the same SQL text rebuilds
// the full cache entry as normal.
func reprepareForReplay(fr *frame, ctx *Context, sql string) (uint32, error) {
	payload, err := (&prepareMessage{sql: sql}).encode(ctx)
	if err != nil {
		return 0, err
	}
	fr.resetSeq()
	if err := fr.writePacket(payload); err != nil {
		return 0, err
	}
	first, err := fr.readPacket()
	if err != nil {
		return 0, err
	}
	if len(first) == 0 {
		return 0, myError(ErrInvalidPacket)
	}
	if first[0] == headerErr {
		return 0, parseErr(first)
	}

	ok := parsePrepareOK(first)
	for i := uint16(0); i < ok.paramCount; i++ {
		if _, err := fr.readPacket(); err != nil {
			return 0, err
		}
	}
	if ok.paramCount > 0 && !ctx.hasCapability(CapDeprecateEOF) {
		if _, err := fr.readPacket(); err != nil {
			return 0, err
		}
	}
	for i := uint16(0); i < ok.columnCount; i++ {
		if _, err := fr.readPacket(); err != nil {
			return 0, err
		}
	}
	if ok.columnCount > 0 && !ctx.hasCapability(CapDeprecateEOF) {
		if _, err := fr.readPacket(); err != nil {
			return 0, err
		}
	}
	return ok.stmtID, nil
}
