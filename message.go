package gomariadb

// Message is the common contract for every client-issued command (spec.md
// §4.8 "Message taxonomy"): it knows how to encode itself, a
// human-readable description for error attachment, and whether it can be
// replayed by the transaction saver/redoer. It does not report how many
// response packets it expects; the Session reads responses one command
// at a time.
type Message interface {
	encode(ctx *Context) ([]byte, error)
	description() string
	redoable() bool
}

// Redoable is implemented by messages that may substitute a freshly issued
// server-prepared-statement id when replayed on a new connection (spec.md
// §4.2 "Transaction replay").
type Redoable interface {
	Message
	reencode(ctx *Context, newStmtID uint32) ([]byte, error)
	// originalStmtID reports the statement id this message was bound
	// against, or 0 if it carries none (a plain query, say).
	originalStmtID() uint32
}

// --- concrete client messages -------------------------------------------

type queryMessage struct{ sql string }

func (m *queryMessage) description() string { return "QUERY: " + m.sql }
func (m *queryMessage) redoable() bool      { return true }
func (m *queryMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 1+len(m.sql))
	b[0] = ComQuery
	copy(b[1:], m.sql)
	return b, nil
}

type initDBMessage struct{ schema string }

func (m *initDBMessage) description() string { return "INIT_DB: " + m.schema }
func (m *initDBMessage) redoable() bool      { return false }
func (m *initDBMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 1+len(m.schema))
	b[0] = ComInitDB
	copy(b[1:], m.schema)
	return b, nil
}

type pingMessage struct{}

func (m *pingMessage) description() string             { return "PING" }
func (m *pingMessage) redoable() bool                   { return false }
func (m *pingMessage) encode(ctx *Context) ([]byte, error) { return []byte{ComPing}, nil }

type quitMessage struct{}

func (m *quitMessage) description() string             { return "QUIT" }
func (m *quitMessage) redoable() bool                   { return false }
func (m *quitMessage) encode(ctx *Context) ([]byte, error) { return []byte{ComQuit}, nil }

type resetConnectionMessage struct{}

func (m *resetConnectionMessage) description() string { return "RESET_CONNECTION" }
func (m *resetConnectionMessage) redoable() bool       { return false }
func (m *resetConnectionMessage) encode(ctx *Context) ([]byte, error) {
	return []byte{ComResetConnection}, nil
}

type setOptionMessage struct{ option uint16 }

func (m *setOptionMessage) description() string { return "SET_OPTION" }
func (m *setOptionMessage) redoable() bool       { return false }
func (m *setOptionMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 3)
	b[0] = ComSetOption
	putUint16(b[1:3], m.option)
	return b, nil
}

// prepareMessage encodes COM_STMT_PREPARE (spec.md §4.2 "Prepared
// statements").
type prepareMessage struct{ sql string }

func (m *prepareMessage) description() string { return "PREPARE: " + m.sql }
func (m *prepareMessage) redoable() bool       { return false } // caching handles re-preparation
func (m *prepareMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 1+len(m.sql))
	b[0] = ComStmtPrepare
	copy(b[1:], m.sql)
	return b, nil
}

// closeStmtMessage encodes COM_STMT_CLOSE, which has no server reply
// (spec.md §4.2).
type closeStmtMessage struct{ stmtID uint32 }

func (m *closeStmtMessage) description() string { return "STMT_CLOSE" }
func (m *closeStmtMessage) redoable() bool       { return false }
func (m *closeStmtMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 5)
	b[0] = ComStmtClose
	putUint32(b[1:5], m.stmtID)
	return b, nil
}

type resetStmtMessage struct{ stmtID uint32 }

func (m *resetStmtMessage) description() string { return "STMT_RESET" }
func (m *resetStmtMessage) redoable() bool       { return false }
func (m *resetStmtMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 5)
	b[0] = ComStmtReset
	putUint32(b[1:5], m.stmtID)
	return b, nil
}

// longDataMessage encodes COM_STMT_SEND_LONG_DATA, used to send an
// oversized bound parameter in pieces (spec.md §4.2).
type longDataMessage struct {
	stmtID uint32
	param  uint16
	data   []byte
}

func (m *longDataMessage) description() string { return "STMT_SEND_LONG_DATA" }
func (m *longDataMessage) redoable() bool       { return true }
func (m *longDataMessage) encode(ctx *Context) ([]byte, error) {
	b := make([]byte, 7+len(m.data))
	b[0] = ComStmtSendLongData
	putUint32(b[1:5], m.stmtID)
	putUint16(b[5:7], m.param)
	copy(b[7:], m.data)
	return b, nil
}

func (m *longDataMessage) originalStmtID() uint32 { return m.stmtID }

func (m *longDataMessage) reencode(ctx *Context, newStmtID uint32) ([]byte, error) {
	old := m.stmtID
	m.stmtID = newStmtID
	b, err := m.encode(ctx)
	m.stmtID = old
	return b, err
}

// executeMessage encodes COM_STMT_EXECUTE: statement id, iteration count,
// NULL bitmap, a new-params-bound flag, per-parameter type codes when
// bound, then encoded parameter values (spec.md §4.2).
type executeMessage struct {
	stmtID         uint32
	params         []driverValue
	paramTypes     []uint16 // wire type code per param, from codecs
	newParamsBound bool
	cursorFlag     uint8
}

func (m *executeMessage) description() string { return "STMT_EXECUTE" }
func (m *executeMessage) redoable() bool       { return true }

func (m *executeMessage) reencode(ctx *Context, newStmtID uint32) ([]byte, error) {
	old := m.stmtID
	m.stmtID = newStmtID
	b, err := m.encode(ctx)
	m.stmtID = old
	return b, err
}

func (m *executeMessage) originalStmtID() uint32 { return m.stmtID }

func (m *executeMessage) encode(ctx *Context) ([]byte, error) {
	n := len(m.params)
	bitmapLen := nullBitmapSize(n, 0)

	size := 1 + 4 + 1 + 4 + bitmapLen + 1
	if m.newParamsBound {
		size += n * 2
	}

	encoded := make([][]byte, n)
	for i, v := range m.params {
		if v.isNull {
			continue
		}
		enc, err := encodeBinaryParam(v)
		if err != nil {
			return nil, err
		}
		encoded[i] = enc
		size += len(enc)
	}

	b := make([]byte, size)
	off := 0
	b[off] = ComStmtExecute
	off++
	putUint32(b[off:off+4], m.stmtID)
	off += 4
	b[off] = m.cursorFlag
	off++
	putUint32(b[off:off+4], 1) // iteration count, always 1
	off += 4

	bitmap := b[off : off+bitmapLen]
	off += bitmapLen

	for i, v := range m.params {
		if v.isNull {
			setNull(bitmap, i, 0)
		}
	}

	if m.newParamsBound {
		b[off] = 1
		off++
		for i, v := range m.params {
			var typeCode uint16
			if m.paramTypes != nil {
				typeCode = m.paramTypes[i]
			} else {
				typeCode = binaryTypeCodeFor(v)
			}
			if v.unsigned {
				typeCode |= 0x8000
			}
			putUint16(b[off:off+2], typeCode)
			off += 2
		}
	} else {
		b[off] = 0
		off++
	}

	for _, enc := range encoded {
		off += copy(b[off:], enc)
	}

	return b[:off], nil
}

// driverValue is a lightweight parameter value carrier used by the message
// layer, independent of database/sql/driver.Value so the engine has no
// compile-time dependency on the adapter package (spec.md §4.8 note that
// the call-level API is a thin adapter, SPEC_FULL.md §2).
type driverValue struct {
	isNull   bool
	unsigned bool
	val      interface{}
}

// encodeBinaryParam dispatches a bound parameter to the codec that knows
// how to lay out its Go type on the wire (spec.md §4.7's codecs are
// bidirectional: the same table that decodes result cells encodes bound
// parameters).
func encodeBinaryParam(v driverValue) ([]byte, error) {
	switch val := v.val.(type) {
	case string:
		return (&stringCodec{}).EncodeBinary(val)
	case []byte:
		return (&bytesCodec{}).EncodeBinary(val)
	case bool:
		return (&boolCodec{}).EncodeBinary(val)
	case int:
		return (&longCodec{}).EncodeBinary(int64(val))
	case int8:
		return (&byteCodec{}).EncodeBinary(val)
	case int16:
		return (&shortCodec{}).EncodeBinary(val)
	case int32:
		return (&intCodec{}).EncodeBinary(val)
	case int64:
		return (&longCodec{}).EncodeBinary(val)
	case uint:
		return (&longCodec{}).EncodeBinary(int64(val))
	case uint64:
		return (&longCodec{}).EncodeBinary(int64(val))
	case float32:
		return (&floatCodec{}).EncodeBinary(val)
	case float64:
		return (&doubleCodec{}).EncodeBinary(val)
	default:
		return encodeBinaryParamExtended(v)
	}
}

// binaryTypeCodeFor reports the wire type code used when a new parameter
// set is bound (spec.md §4.2 "new-params-bound").
func binaryTypeCodeFor(v driverValue) uint16 {
	switch v.val.(type) {
	case string, nil:
		return uint16(TypeVarString)
	case []byte:
		return uint16(TypeBlob)
	case bool, int8:
		return uint16(TypeTiny)
	case int16:
		return uint16(TypeShort)
	case int32:
		return uint16(TypeLong)
	case int, int64, uint, uint64:
		return uint16(TypeLonglong)
	case float32:
		return uint16(TypeFloat)
	case float64:
		return uint16(TypeDouble)
	default:
		return binaryTypeCodeForExtended(v)
	}
}
