package gomariadb

import (
	"database/sql/driver"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapterResultSet(types ...FieldType) *ResultSet {
	cols := textRowColumns(types...)
	return newResultSet(newCodecRegistry(), cols)
}

func TestRowsAdapterColumnsUsesNames(t *testing.T) {
	cols := []*ColumnDefinition{{Type: TypeVarchar}, {Type: TypeLong}}
	rs := newResultSet(newCodecRegistry(), cols)
	ra := &rowsAdapter{rs: rs}
	assert.Equal(t, []string{"", ""}, ra.Columns())
}

func TestRowsAdapterNextDecodesAndConverts(t *testing.T) {
	rs := newAdapterResultSet(TypeVarchar, TypeLong)
	r, err := newTextRow(encodeTextRowPayload("alice", "42"), rs.Columns())
	require.NoError(t, err)
	require.True(t, rs.addRow(r))

	ra := &rowsAdapter{rs: rs}
	dest := make([]driver.Value, 2)
	require.NoError(t, ra.Next(dest))
	assert.Equal(t, "alice", dest[0])
	assert.EqualValues(t, int64(42), dest[1])
}

func TestRowsAdapterNextReturnsEOFWhenExhausted(t *testing.T) {
	rs := newAdapterResultSet(TypeVarchar)
	ra := &rowsAdapter{rs: rs}
	dest := make([]driver.Value, 1)
	err := ra.Next(dest)
	assert.Equal(t, io.EOF, err)
}

func TestRowsAdapterCloseAlsoClosesStatementWhenFlagged(t *testing.T) {
	rs := newAdapterResultSet(TypeVarchar)
	s, server := newTestSessionOverPipe(4)
	defer server.Close()
	// refCount 1, never evicted: releasing the last reference does not
	// owe a COM_STMT_CLOSE, so Close() needs no network round trip.
	entry := &preparedStmtEntry{stmtID: 9, refCount: 1}
	st := &Statement{session: s, entry: entry}

	ra := &rowsAdapter{rs: rs, stmt: st, closeStmt: true}
	require.NoError(t, ra.Close())
	assert.True(t, st.closed)
}

func TestFieldTypeToDriverTargetMapping(t *testing.T) {
	assert.Equal(t, "Long", fieldTypeToDriverTarget(TypeLong))
	assert.Equal(t, "Double", fieldTypeToDriverTarget(TypeDouble))
	assert.Equal(t, "BigDecimal", fieldTypeToDriverTarget(TypeNewDecimal))
	assert.Equal(t, "Date", fieldTypeToDriverTarget(TypeDate))
	assert.Equal(t, "Timestamp", fieldTypeToDriverTarget(TypeDatetime))
	assert.Equal(t, "Time", fieldTypeToDriverTarget(TypeTime))
	assert.Equal(t, "Bytes", fieldTypeToDriverTarget(TypeBlob))
	assert.Equal(t, "String", fieldTypeToDriverTarget(TypeVarString))
}

func TestToDriverValueNumericWidening(t *testing.T) {
	assert.Equal(t, int64(5), toDriverValue(int8(5), "Long"))
	assert.Equal(t, int64(5), toDriverValue(int16(5), "Long"))
	assert.Equal(t, int64(5), toDriverValue(int32(5), "Long"))
	assert.Equal(t, int64(5), toDriverValue(int64(5), "Long"))
	assert.Equal(t, float64(1.5), toDriverValue(float32(1.5), "Double"))
	assert.Equal(t, float64(1.5), toDriverValue(float64(1.5), "Double"))
}

func TestToDriverValueNilPassesThrough(t *testing.T) {
	assert.Nil(t, toDriverValue(nil, "Long"))
}

func TestToDriverValueDurationFormatsAsSQLTime(t *testing.T) {
	v := toDriverValue(26*time.Hour+5*time.Minute+9*time.Second, "Time")
	assert.Equal(t, "26:05:09", v)
}

func TestToDriverValueNegativeDuration(t *testing.T) {
	v := toDriverValue(-(90 * time.Minute), "Time")
	assert.Equal(t, "-01:30:00", v)
}

func TestToDriverValuePassthroughKinds(t *testing.T) {
	now := time.Now()
	assert.Equal(t, true, toDriverValue(true, "Bool"))
	assert.Equal(t, []byte("blob"), toDriverValue([]byte("blob"), "Bytes"))
	assert.Equal(t, "text", toDriverValue("text", "String"))
	assert.Equal(t, now, toDriverValue(now, "Timestamp"))
}

func TestToDriverValueFallsBackToStringRepr(t *testing.T) {
	type weird struct{ X int }
	v := toDriverValue(weird{X: 3}, "String")
	assert.Equal(t, "{3}", v)
}

func TestResultAdapterReportsRowsAndInsertID(t *testing.T) {
	ra := &resultAdapter{affectedRows: 3, lastInsertID: 77}
	n, err := ra.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	id, err := ra.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 77, id)
}

func TestNamedValuesToParams(t *testing.T) {
	args := []driver.NamedValue{{Value: int64(1)}, {Value: "two"}}
	out := namedValuesToParams(args)
	assert.Equal(t, []interface{}{int64(1), "two"}, out)
}

func TestValuesToParams(t *testing.T) {
	args := []driver.Value{int64(1), "two"}
	out := valuesToParams(args)
	assert.Equal(t, []interface{}{int64(1), "two"}, out)
}

func TestEncodeBinaryParamExtendedRoutesByType(t *testing.T) {
	b, err := encodeBinaryParamExtended(driverValue{val: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	b, err = encodeBinaryParamExtended(driverValue{val: 90 * time.Minute})
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	u, _ := url.Parse("https://example.com")
	b, err = encodeBinaryParamExtended(driverValue{val: u})
	require.NoError(t, err)
	decoded, _ := getLenencString(b)
	assert.Equal(t, "https://example.com", decoded.value)

	b, err = encodeBinaryParamExtended(driverValue{val: nil})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = encodeBinaryParamExtended(driverValue{val: "plain"})
	require.NoError(t, err)
	decoded, _ = getLenencString(b)
	assert.Equal(t, "plain", decoded.value)
}

func TestBinaryTypeCodeForExtended(t *testing.T) {
	assert.EqualValues(t, TypeDatetime, binaryTypeCodeForExtended(driverValue{val: time.Now()}))
	assert.EqualValues(t, TypeTime, binaryTypeCodeForExtended(driverValue{val: time.Second}))
	assert.EqualValues(t, TypeVarString, binaryTypeCodeForExtended(driverValue{val: "x"}))
}

func TestTxAdapterCommitClearsReplayBuffer(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()
	s.saver.add(&queryMessage{sql: "INSERT 1"}, 10)
	require.True(t, s.saver.canReplay())

	go func() {
		sf := newFrame(server, 0)
		if _, err := sf.readPacket(); err != nil {
			return
		}
		sf.writePacket([]byte{headerOK, 0, 0, 0, 0, 0, 0})
	}()

	tx := &txAdapter{session: s}
	require.NoError(t, tx.Commit())
	assert.False(t, s.saver.canReplay())
}

func TestTxAdapterRollbackClearsReplayBufferEvenOnError(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	s.saver.add(&queryMessage{sql: "INSERT 1"}, 10)
	require.True(t, s.saver.canReplay())
	server.Close() // force the write to fail

	tx := &txAdapter{session: s}
	err := tx.Rollback()
	assert.Error(t, err)
	assert.False(t, s.saver.canReplay())
}

func TestStmtAdapterNumInputReflectsParamCount(t *testing.T) {
	entry := &preparedStmtEntry{stmtID: 3, paramCount: 2}
	st := &Statement{entry: entry}
	sa := &stmtAdapter{stmt: st}
	assert.Equal(t, 2, sa.NumInput())
}

func TestStmtAdapterExecBindsParamsAndReturnsResult(t *testing.T) {
	s, server := newTestSessionOverPipe(4)
	defer server.Close()
	entry := &preparedStmtEntry{stmtID: 1, paramCount: 1}
	st := &Statement{session: s, entry: entry}
	sa := &stmtAdapter{stmt: st}

	go func() {
		sf := newFrame(server, 0)
		if _, err := sf.readPacket(); err != nil {
			return
		}
		sf.writePacket([]byte{headerOK, 2, 0, 0, 0, 0, 0})
	}()

	res, err := sa.Exec([]driver.Value{int64(7)})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
