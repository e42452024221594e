package gomariadb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildColumnDefPacket(t *testing.T, catalog, schema, table, orgTable, name, orgName string, charset uint16, colLen uint32, typ FieldType, flags uint16, decimals uint8) []byte {
	t.Helper()
	var b []byte
	put := func(s string) {
		tmp := make([]byte, lenencStringSize(s))
		putLenencString(tmp, s)
		b = append(b, tmp...)
	}
	put(catalog)
	put(schema)
	put(table)
	put(orgTable)
	put(name)
	put(orgName)
	b = append(b, 0x0c) // length of fixed fields

	tmp2 := make([]byte, 2)
	putUint16(tmp2, charset)
	b = append(b, tmp2...)

	tmp4 := make([]byte, 4)
	putUint32(tmp4, colLen)
	b = append(b, tmp4...)

	b = append(b, byte(typ))

	putUint16(tmp2, flags)
	b = append(b, tmp2...)

	b = append(b, decimals)
	b = append(b, 0, 0) // filler

	return b
}

func TestParseColumnDefinitionPacketFields(t *testing.T) {
	raw := buildColumnDefPacket(t, "def", "myschema", "mytable", "mytable", "mycol", "mycol", 33, 255, TypeVarchar, flagNotNull|flagUnsigned, 0)
	cd := parseColumnDefinitionPacket(raw)

	assert.Equal(t, "def", cd.Catalog())
	assert.Equal(t, "myschema", cd.Schema())
	assert.Equal(t, "mytable", cd.Table())
	assert.Equal(t, "mytable", cd.OrgTable())
	assert.Equal(t, "mycol", cd.Name())
	assert.Equal(t, "mycol", cd.OrgName())
	assert.EqualValues(t, 33, cd.Charset)
	assert.EqualValues(t, 255, cd.ColumnLength)
	assert.Equal(t, TypeVarchar, cd.Type)
	assert.True(t, cd.NotNull())
	assert.True(t, cd.Unsigned())
	assert.False(t, cd.PrimaryKey())
	assert.False(t, cd.AutoIncrement())
	assert.False(t, cd.IsBlob())
	assert.False(t, cd.Zerofill())
	assert.False(t, cd.Binary())
	assert.Empty(t, cd.ExtendedTypeName())
}

func TestParseColumnDefinitionPacketWithExtendedMetadata(t *testing.T) {
	raw := buildColumnDefPacket(t, "def", "s", "t", "t", "c", "c", 63, 10, TypeLongBlob, flagBlob, 0)

	var extra []byte
	appendExt := func(metaType byte, val string) {
		extra = append(extra, metaType)
		tmp := make([]byte, lenencStringSize(val))
		putLenencString(tmp, val)
		extra = append(extra, tmp...)
	}
	appendExt(0, "json")
	appendExt(1, "fmt")
	raw = append(raw, extra...)

	cd := parseColumnDefinitionPacket(raw)
	assert.Equal(t, "json", cd.ExtendedTypeName())
	assert.Equal(t, "fmt", cd.ExtendedFormat())
	assert.True(t, cd.IsBlob())
}

func TestParseColumnDefinitionPacketCopiesBytes(t *testing.T) {
	raw := buildColumnDefPacket(t, "def", "s", "t", "t", "col", "col", 8, 1, TypeTiny, 0, 0)
	cdCopy := make([]byte, len(raw))
	copy(cdCopy, raw)

	cd := parseColumnDefinitionPacket(cdCopy)
	for i := range cdCopy {
		cdCopy[i] = 0xFF
	}
	require.Equal(t, "col", cd.Name())
}
