package gomariadb

import (
	"fmt"
	"net/url"
)

// stringCodec accepts any server type whose text representation is already
// a readable string — including numeric and temporal types, since the text
// protocol sends every cell as a length-encoded string regardless of
// target type.
type stringCodec struct{}

func (c *stringCodec) Accepts(t FieldType) bool { return true }
func (c *stringCodec) TargetName() string       { return "String" }
func (c *stringCodec) BinaryTypeCode() uint16   { return uint16(TypeVarString) }

func (c *stringCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	return string(raw), nil
}

func (c *stringCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	switch t {
	case TypeVarchar, TypeVarString, TypeString, TypeBlob, TypeTinyBlob,
		TypeMediumBlob, TypeLongBlob, TypeEnum, TypeSet, TypeJSON, TypeGeometry,
		TypeDecimal, TypeNewDecimal, TypeBit:
		s, n := getLenencString(raw)
		return s.value, n, nil
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, err
	}
	if isInt {
		return fmt.Sprintf("%d", i), n, nil
	}
	return fmt.Sprintf("%v", f), n, nil
}

func (c *stringCodec) EncodeBinary(v interface{}) ([]byte, error) {
	s := fmtValue(v)
	b := make([]byte, lenencStringSize(s))
	putLenencString(b, s)
	return b, nil
}

func fmtValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// bytesCodec decodes binary payloads ([]byte), for BLOB/BINARY columns.
type bytesCodec struct{}

func (c *bytesCodec) Accepts(t FieldType) bool {
	switch t {
	case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeVarString,
		TypeString, TypeVarchar, TypeGeometry, TypeBit:
		return true
	}
	return false
}
func (c *bytesCodec) TargetName() string     { return "Bytes" }
func (c *bytesCodec) BinaryTypeCode() uint16 { return uint16(TypeBlob) }

func (c *bytesCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (c *bytesCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	s, n := getLenencString(raw)
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out, n, nil
}

func (c *bytesCodec) EncodeBinary(v interface{}) ([]byte, error) {
	bs, ok := v.([]byte)
	if !ok {
		return nil, myError(ErrInvalidType, "expected []byte")
	}
	b := make([]byte, lenencIntSize(uint64(len(bs)))+len(bs))
	n := putLenencInt(b, uint64(len(bs)))
	copy(b[n:], bs)
	return b, nil
}

// urlCodec is produced only from strings and fails with a syntactic error
// if the string does not parse (spec.md §4.7).
type urlCodec struct{}

func (c *urlCodec) Accepts(t FieldType) bool {
	switch t {
	case TypeVarchar, TypeVarString, TypeString:
		return true
	}
	return false
}
func (c *urlCodec) TargetName() string     { return "URL" }
func (c *urlCodec) BinaryTypeCode() uint16 { return uint16(TypeVarString) }

func (c *urlCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	u, err := url.Parse(string(raw))
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return u, nil
}

func (c *urlCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	s, n := getLenencString(raw)
	u, err := url.Parse(s.value)
	if err != nil {
		return nil, n, valueDecodeErrorf(s.value, c.TargetName())
	}
	return u, n, nil
}

func (c *urlCodec) EncodeBinary(v interface{}) ([]byte, error) {
	u, ok := v.(*url.URL)
	if !ok {
		return nil, myError(ErrInvalidType, "expected *url.URL")
	}
	s := u.String()
	b := make([]byte, lenencStringSize(s))
	putLenencString(b, s)
	return b, nil
}
