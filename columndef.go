package gomariadb

// ColumnDefinition is immutable after construction and holds the raw
// definition bytes plus precomputed offsets into them, per spec.md §3
// "ColumnDefinition". Copying the backing bytes out of the packet buffer
// (rather than aliasing it) is what makes the "offsets remain valid for the
// result set's lifetime" invariant hold once the packet buffer is reused
// for the next command.
type ColumnDefinition struct {
	raw []byte

	catalogOff, catalogLen           int
	schemaOff, schemaLen             int
	tableOff, tableLen               int
	orgTableOff, orgTableLen         int
	nameOff, nameLen                 int
	orgNameOff, orgNameLen           int

	Charset      uint16
	ColumnLength uint32
	Type         FieldType
	Flags        uint16
	Decimals     uint8

	// extendedTypeName/extendedFormat are populated only for MariaDB
	// extended metadata (e.g. JSON reported as extended LONGBLOB).
	extendedTypeName string
	extendedFormat   string
}

func (cd *ColumnDefinition) slice(off, length int) string {
	return string(cd.raw[off : off+length])
}

func (cd *ColumnDefinition) Catalog() string  { return cd.slice(cd.catalogOff, cd.catalogLen) }
func (cd *ColumnDefinition) Schema() string   { return cd.slice(cd.schemaOff, cd.schemaLen) }
func (cd *ColumnDefinition) Table() string    { return cd.slice(cd.tableOff, cd.tableLen) }
func (cd *ColumnDefinition) OrgTable() string { return cd.slice(cd.orgTableOff, cd.orgTableLen) }
func (cd *ColumnDefinition) Name() string     { return cd.slice(cd.nameOff, cd.nameLen) }
func (cd *ColumnDefinition) OrgName() string  { return cd.slice(cd.orgNameOff, cd.orgNameLen) }

func (cd *ColumnDefinition) Unsigned() bool      { return cd.Flags&flagUnsigned != 0 }
func (cd *ColumnDefinition) PrimaryKey() bool    { return cd.Flags&flagPrimaryKey != 0 }
func (cd *ColumnDefinition) NotNull() bool       { return cd.Flags&flagNotNull != 0 }
func (cd *ColumnDefinition) AutoIncrement() bool { return cd.Flags&flagAutoIncrement != 0 }
func (cd *ColumnDefinition) IsBlob() bool        { return cd.Flags&flagBlob != 0 }
func (cd *ColumnDefinition) Zerofill() bool      { return cd.Flags&flagZerofill != 0 }
func (cd *ColumnDefinition) Binary() bool        { return cd.Flags&flagBinary != 0 }

// ExtendedTypeName reports the MariaDB extended type name (e.g. "json"),
// empty when the server didn't send extended metadata (spec.md §3).
func (cd *ColumnDefinition) ExtendedTypeName() string { return cd.extendedTypeName }
func (cd *ColumnDefinition) ExtendedFormat() string   { return cd.extendedFormat }

// parseColumnDefinitionPacket decodes one COM_QUERY/COM_STMT_PREPARE
// column-definition packet (spec.md §4.2 "Otherwise: ... Read N
// column-definition packets"). The payload is copied into ColumnDefinition
// so later reuse of the packet buffer cannot invalidate offsets.
func parseColumnDefinitionPacket(payload []byte) *ColumnDefinition {
	raw := make([]byte, len(payload))
	copy(raw, payload)

	cd := &ColumnDefinition{raw: raw}
	off := 0

	var s nullString
	var n int

	s, n = getLenencString(raw[off:])
	cd.catalogOff, cd.catalogLen = off+n-len(s.value), len(s.value)
	off += n

	s, n = getLenencString(raw[off:])
	cd.schemaOff, cd.schemaLen = off+n-len(s.value), len(s.value)
	off += n

	s, n = getLenencString(raw[off:])
	cd.tableOff, cd.tableLen = off+n-len(s.value), len(s.value)
	off += n

	s, n = getLenencString(raw[off:])
	cd.orgTableOff, cd.orgTableLen = off+n-len(s.value), len(s.value)
	off += n

	s, n = getLenencString(raw[off:])
	cd.nameOff, cd.nameLen = off+n-len(s.value), len(s.value)
	off += n

	s, n = getLenencString(raw[off:])
	cd.orgNameOff, cd.orgNameLen = off+n-len(s.value), len(s.value)
	off += n

	off++ // length of fixed-length fields, always 0x0c

	cd.Charset = getUint16(raw[off : off+2])
	off += 2

	cd.ColumnLength = getUint32(raw[off : off+4])
	off += 4

	cd.Type = FieldType(raw[off])
	off++

	cd.Flags = getUint16(raw[off : off+2])
	off += 2

	cd.Decimals = raw[off]
	off++

	off += 2 // filler [00][00]

	if off < len(raw) {
		// extended metadata, MariaDB-specific: a sequence of
		// [type:1][lenenc value] pairs terminated by end of payload.
		for off < len(raw) {
			metaType := raw[off]
			off++
			val, n := getLenencString(raw[off:])
			off += n
			switch metaType {
			case 0: // type name
				cd.extendedTypeName = val.value
			case 1: // format
				cd.extendedFormat = val.value
			}
		}
	}

	return cd
}
