package gomariadb

import (
	"context"
	"database/sql/driver"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnAdapterExecContextNoArgs(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()

	go func() {
		sf := newFrame(server, 0)
		if _, err := sf.readPacket(); err != nil {
			return
		}
		sf.writePacket([]byte{headerOK, 5, 3, 0, 0, 0, 0})
	}()

	c := &connAdapter{session: s}
	res, err := c.ExecContext(context.Background(), "DELETE FROM t", nil)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)
}

func TestConnAdapterQueryContextNoArgsReadsRows(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()

	go func() {
		sf := newFrame(server, 0)
		if _, err := sf.readPacket(); err != nil {
			return
		}
		colCount := make([]byte, lenencIntSize(1))
		putLenencInt(colCount, 1)
		sf.writePacket(colCount)
		sf.writePacket(buildColumnDefPacket(t, "", "", "", "", "name", "name", charsetUTF8MB4, 20, TypeVarchar, 0, 0))
		sf.writePacket([]byte{headerEOF, 0, 0, 0, 0})
		sf.writePacket(encodeTextRowPayload("alice"))
		sf.writePacket([]byte{headerEOF, 0, 0, 0, 0})
	}()

	c := &connAdapter{session: s}
	rows, err := c.QueryContext(context.Background(), "SELECT name FROM t", nil)
	require.NoError(t, err)
	defer rows.Close()

	assert.Equal(t, []string{"name"}, rows.Columns())

	dest := make([]driver.Value, 1)
	require.NoError(t, rows.Next(dest))
	assert.Equal(t, "alice", dest[0])

	assert.Equal(t, io.EOF, rows.Next(dest))
}

func TestConnAdapterBeginAndBeginTx(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()

	go func() {
		sf := newFrame(server, 0)
		for i := 0; i < 2; i++ {
			if _, err := sf.readPacket(); err != nil {
				return
			}
			sf.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0})
			sf.resetSeq()
		}
	}()

	c := &connAdapter{session: s}
	tx, err := c.Begin()
	require.NoError(t, err)
	require.NotNil(t, tx)

	tx2, err := c.BeginTx(context.Background(), driver.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	require.NotNil(t, tx2)
}

func TestConnAdapterPingDelegatesToSession(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()

	go func() {
		sf := newFrame(server, 0)
		if _, err := sf.readPacket(); err != nil {
			return
		}
		sf.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0})
	}()

	c := &connAdapter{session: s}
	require.NoError(t, c.Ping(context.Background()))
}

func TestConnAdapterCloseDelegatesToSession(t *testing.T) {
	client, server := net.Pipe()
	s := &Session{
		cfg:      defaultConfig(),
		conn:     client,
		fr:       newFrame(client, 0),
		ctx:      newContext(),
		registry: newCodecRegistry(),
		prepared: newPrepareCache(4),
		saver:    newTransactionSaver(1024),
	}
	defer server.Close()

	go func() {
		sf := newFrame(server, 0)
		sf.readPacket() // absorbs the COM_QUIT Close() writes
	}()

	c := &connAdapter{session: s}
	require.NoError(t, c.Close())
	assert.True(t, s.closed)
}

func TestDriverOpenRejectsBadDSN(t *testing.T) {
	d := Driver{}
	_, err := d.Open("postgres://user@host/db")
	assert.Error(t, err)
}
