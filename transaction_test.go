package gomariadb

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionSaverAddAccumulates(t *testing.T) {
	ts := newTransactionSaver(1024)
	ts.add(&queryMessage{sql: "INSERT 1"}, 10)
	ts.add(&queryMessage{sql: "INSERT 2"}, 10)
	assert.True(t, ts.canReplay())
	assert.Len(t, ts.messages, 2)
}

func TestTransactionSaverOverflowDropsBuffer(t *testing.T) {
	ts := newTransactionSaver(15)
	ts.add(&queryMessage{sql: "a"}, 10)
	ts.add(&queryMessage{sql: "b"}, 10) // 20 > 15, overflow
	assert.True(t, ts.overflowed)
	assert.Empty(t, ts.messages)
	assert.False(t, ts.canReplay())
}

func TestTransactionSaverOverflowedIgnoresFurtherAdds(t *testing.T) {
	ts := newTransactionSaver(5)
	ts.add(&queryMessage{sql: "a"}, 10)
	require.True(t, ts.overflowed)
	ts.add(&queryMessage{sql: "b"}, 1)
	assert.Empty(t, ts.messages)
}

func TestTransactionSaverClearResetsState(t *testing.T) {
	ts := newTransactionSaver(5)
	ts.add(&queryMessage{sql: "a"}, 10)
	require.True(t, ts.overflowed)
	ts.clear()
	assert.False(t, ts.overflowed)
	assert.Zero(t, ts.size)
	assert.False(t, ts.canReplay())
}

func TestTransactionSaverReplaySendsEachMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ts := newTransactionSaver(1024)
	ts.add(&queryMessage{sql: "INSERT INTO t VALUES (1)"}, 30)
	ts.add(&queryMessage{sql: "INSERT INTO t VALUES (2)"}, 30)

	ctx := newContext()
	fr := newFrame(client, 0)

	serverErr := make(chan error, 1)
	go func() {
		sf := newFrame(server, 0)
		for i := 0; i < 2; i++ {
			// fr.resetSeq() on the client side resets to 0 before every
			// replayed message, so the server frame must track the same
			// reset between rounds to stay in lockstep.
			if _, err := sf.readPacket(); err != nil {
				serverErr <- err
				return
			}
			if err := sf.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
				serverErr <- err
				return
			}
			sf.resetSeq()
		}
		serverErr <- nil
	}()

	err := ts.replay(ctx, fr, func(oldID uint32) (uint32, error) { return oldID, nil })
	require.NoError(t, err)
	require.NoError(t, <-serverErr)
}

func TestTransactionSaverReplayRemapsStatementIDs(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ts := newTransactionSaver(1024)
	ts.add(&executeMessage{stmtID: 7, params: nil}, 30)

	ctx := newContext()
	fr := newFrame(client, 0)

	var gotID uint32
	serverErr := make(chan error, 1)
	go func() {
		sf := newFrame(server, 0)
		pkt, err := sf.readPacket()
		if err != nil {
			serverErr <- err
			return
		}
		gotID = getUint32(pkt[1:5])
		if err := sf.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0}); err != nil {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	remapCalled := false
	err := ts.replay(ctx, fr, func(oldID uint32) (uint32, error) {
		remapCalled = true
		assert.EqualValues(t, 7, oldID)
		return 99, nil
	})
	require.NoError(t, err)
	require.NoError(t, <-serverErr)
	assert.True(t, remapCalled)
	assert.EqualValues(t, 99, gotID)
}
