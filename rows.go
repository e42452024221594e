package gomariadb

import "strings"

const cellNullMarker = 0xfb

// row holds one decoded result row. Cell bytes are kept as positioned
// slices into a copy of the packet payload and decoded lazily by target
// type on Get, mirroring the wire codecs' text/binary split (spec.md §4.6).
type row struct {
	binary  bool
	columns []*ColumnDefinition
	cells   [][]byte
	nulls   []bool
}

func newTextRow(payload []byte, columns []*ColumnDefinition) (*row, error) {
	raw := make([]byte, len(payload))
	copy(raw, payload)

	r := &row{columns: columns, cells: make([][]byte, len(columns)), nulls: make([]bool, len(columns))}
	off := 0
	for i := range columns {
		if off >= len(raw) {
			return nil, myError(ErrInvalidPacket)
		}
		if raw[off] == cellNullMarker {
			r.nulls[i] = true
			off++
			continue
		}
		s, n := getLenencString(raw[off:])
		r.cells[i] = []byte(s.value)
		off += n
	}
	return r, nil
}

func newBinaryRow(payload []byte, columns []*ColumnDefinition) (*row, error) {
	raw := make([]byte, len(payload))
	copy(raw, payload)

	r := &row{binary: true, columns: columns, cells: make([][]byte, len(columns)), nulls: make([]bool, len(columns))}
	off := 1 // skip packet header byte (0x00)

	bitmapLen := nullBitmapSize(len(columns), 2)
	bitmap := raw[off : off+bitmapLen]
	off += bitmapLen

	for i, cd := range columns {
		if isNull(bitmap, i, 2) {
			r.nulls[i] = true
			continue
		}
		n := binaryCellWidth(cd.Type, raw[off:])
		r.cells[i] = raw[off : off+n]
		off += n
	}
	return r, nil
}

// binaryCellWidth reports how many bytes a binary-protocol cell of the
// given server type occupies, without fully decoding it.
func binaryCellWidth(t FieldType, raw []byte) int {
	switch t {
	case TypeTiny:
		return 1
	case TypeShort, TypeYear:
		return 2
	case TypeInt24, TypeLong, TypeFloat:
		return 4
	case TypeLonglong, TypeDouble:
		return 8
	case TypeDate, TypeNewDate, TypeTimestamp, TypeDatetime, TypeTime:
		return 1 + int(raw[0])
	default:
		_, n := getLenencString(raw)
		return n
	}
}

func (r *row) columnCount() int { return len(r.columns) }

func (r *row) isNull(idx int) bool { return r.nulls[idx] }

func (r *row) columnIndex(label string) (int, bool) {
	for i, cd := range r.columns {
		if strings.EqualFold(cd.Name(), label) {
			return i, true
		}
	}
	return 0, false
}

// decode routes a cell through the codec registered for target, applying
// the row's protocol (text/binary) and the column's declared unsigned flag.
func (r *row) decode(registry *codecRegistry, idx int, target string) (interface{}, error) {
	if idx < 0 || idx >= len(r.columns) {
		return nil, myError(ErrRowOutOfRange, idx, len(r.columns))
	}
	if r.nulls[idx] {
		return nil, nil
	}
	codec, ok := registry.forTarget(target)
	if !ok {
		return nil, myError(ErrInvalidType, target)
	}
	cd := r.columns[idx]
	if r.binary {
		v, _, err := codec.DecodeBinary(cd.Type, r.cells[idx], cd.Unsigned())
		return v, err
	}
	return codec.DecodeText(cd.Type, r.cells[idx], cd.Unsigned())
}

// ResultSet is the cursor over a command's rows (spec.md §3 "ResultSet"),
// fully buffered as the rows arrive off the wire.
type ResultSet struct {
	registry *codecRegistry
	columns  []*ColumnDefinition
	rows     []*row
	current  int // index of the "current" row; -1 before first next()
	loaded   bool
	maxRows  int64

	// affectedRows/lastInsertID are only meaningful when columns is empty:
	// a link in a multi-statement chain that terminated with OK rather
	// than a row stream (spec.md §4.2 "Multi-result / streaming").
	affectedRows uint64
	lastInsertID uint64

	// next chains to the result of the following statement in a
	// multi-statement command, in arrival order.
	next *ResultSet
}

func newResultSet(registry *codecRegistry, columns []*ColumnDefinition) *ResultSet {
	return &ResultSet{registry: registry, columns: columns, current: -1}
}

// Columns exposes the column-definition array for metadata access.
func (rs *ResultSet) Columns() []*ColumnDefinition { return rs.columns }

// addRow appends a fully-buffered row, honoring maxRows when set.
func (rs *ResultSet) addRow(r *row) bool {
	if rs.maxRows > 0 && int64(len(rs.rows)) >= rs.maxRows {
		return false
	}
	rs.rows = append(rs.rows, r)
	return true
}

// Next advances to the following row and reports whether one is available.
func (rs *ResultSet) Next() (bool, error) {
	rs.current++
	return rs.current < len(rs.rows), nil
}

func (rs *ResultSet) currentRow() (*row, error) {
	if rs.current < 0 || rs.current >= len(rs.rows) {
		return nil, myError(ErrRowOutOfRange, rs.current, len(rs.rows))
	}
	return rs.rows[rs.current], nil
}

// GetByIndex decodes the current row's column at idx (0-based) as target.
func (rs *ResultSet) GetByIndex(idx int, target string) (interface{}, error) {
	r, err := rs.currentRow()
	if err != nil {
		return nil, err
	}
	return r.decode(rs.registry, idx, target)
}

// GetByLabel decodes the current row's column whose name matches label
// case-insensitively (spec.md §4.6).
func (rs *ResultSet) GetByLabel(label string, target string) (interface{}, error) {
	r, err := rs.currentRow()
	if err != nil {
		return nil, err
	}
	idx, ok := r.columnIndex(label)
	if !ok {
		return nil, myError(ErrNoSuchColumn, label)
	}
	return r.decode(rs.registry, idx, target)
}

// IsNull reports whether the current row's column at idx is SQL NULL.
func (rs *ResultSet) IsNull(idx int) (bool, error) {
	r, err := rs.currentRow()
	if err != nil {
		return false, err
	}
	if idx < 0 || idx >= r.columnCount() {
		return false, myError(ErrRowOutOfRange, idx, r.columnCount())
	}
	return r.isNull(idx), nil
}

// RowCount reports the number of buffered rows.
func (rs *ResultSet) RowCount() int { return len(rs.rows) }

// AffectedRows reports the affected-row count for a chain link that
// terminated with OK instead of carrying rows (spec.md §4.2).
func (rs *ResultSet) AffectedRows() uint64 { return rs.affectedRows }

// LastInsertID reports the last-insert-id for a chain link that
// terminated with OK instead of carrying rows.
func (rs *ResultSet) LastInsertID() uint64 { return rs.lastInsertID }

// NextResultSet returns the result of the statement that followed this one
// in a multi-statement command (spec.md §4.2 "Multi-result / streaming"),
// or nil if this was the last (or only) result.
func (rs *ResultSet) NextResultSet() *ResultSet { return rs.next }

// Close releases the result set's buffered rows.
func (rs *ResultSet) Close() error {
	rs.rows = nil
	rs.loaded = true
	return nil
}
