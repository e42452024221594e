package gomariadb

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionHandleFatalReconnectsAndReplaysBufferedTransaction exercises
// spec.md §8 scenario 4: a transient I/O failure mid-transaction is
// recovered by reconnecting to the same host and replaying every message
// the saver buffered, so the Session survives and the next command on it
// succeeds, even though the command that triggered the failure still
// surfaces its own error to the caller.
func TestSessionHandleFatalReconnectsAndReplaysBufferedTransaction(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	replayed := make(chan []string, 1)

	// First connection: handshake, ack the first INSERT, then die while
	// the client is waiting on the second INSERT's ack (write already
	// succeeded, so the saver already holds both messages).
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fr := newFrame(conn, 0)
		if err := fr.writePacket(buildHandshakePacket("8.0.34", "mysql_native_password")); err != nil {
			return
		}
		if _, err := fr.readPacket(); err != nil {
			return
		}
		if err := fr.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
			return
		}

		fr.resetSeq()
		if _, err := fr.readPacket(); err != nil { // INSERT A
			conn.Close()
			return
		}
		if err := fr.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
			conn.Close()
			return
		}

		fr.resetSeq()
		fr.readPacket() // INSERT B, write succeeds but ack never comes
		conn.Close()
	}()

	// Second connection: the replacement Session's handshake, then the
	// replayed INSERTs, then whatever command the caller issues next.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fr := newFrame(conn, 0)
		if err := fr.writePacket(buildHandshakePacket("8.0.34", "mysql_native_password")); err != nil {
			return
		}
		if _, err := fr.readPacket(); err != nil {
			return
		}
		if err := fr.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
			return
		}

		var got []string
		for i := 0; i < 2; i++ {
			fr.resetSeq()
			pkt, err := fr.readPacket()
			if err != nil {
				return
			}
			got = append(got, string(pkt[1:]))
			if err := fr.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
				return
			}
		}
		replayed <- got

		fr.resetSeq()
		if _, err := fr.readPacket(); err != nil { // the session's next command, PING
			return
		}
		fr.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0})
	}()

	cfg := defaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.TransactionReplaySize = 4096

	s, err := Connect(cfg)
	require.NoError(t, err)
	defer s.Close()

	s.ctx.statusFlags |= statusInTrans // simulate an already-open transaction

	_, _, err = s.Exec("INSERT INTO t VALUES ('A')")
	require.NoError(t, err)

	_, _, err = s.Exec("INSERT INTO t VALUES ('B')")
	assert.Error(t, err, "the in-flight command's own ack was lost and must still surface as an error")
	assert.False(t, s.closed, "a successful reconnect+replay must leave the Session usable")

	select {
	case got := <-replayed:
		assert.Equal(t, []string{"INSERT INTO t VALUES ('A')", "INSERT INTO t VALUES ('B')"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("replacement connection never received the replayed transaction")
	}

	require.NoError(t, s.Ping())
}

// TestSessionHandleFatalLeavesSessionClosedWhenNothingToReplay is the
// counterpart: outside a transaction the saver is empty, so a fatal I/O
// error has nothing to replay and the Session is simply marked dead, same
// as before this feature existed.
func TestSessionHandleFatalLeavesSessionClosedWhenNothingToReplay(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()

	err := s.handleFatal(myError(ErrRead))
	require.Error(t, err)
	assert.True(t, s.closed)
}
