package gomariadb

import (
	"math"
	"strconv"
)

// isNumericSource reports whether t is one of the server types every numeric
// codec in this file accepts, matching the FLOAT scenario in spec.md §8: a FLOAT column
// can be read as byte/short/int/long/float/double.
func isNumericSource(t FieldType) bool {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLonglong,
		TypeFloat, TypeDouble, TypeDecimal, TypeNewDecimal, TypeYear, TypeBit:
		return true
	}
	return false
}

// decodeNumericText parses any numeric server type's ASCII text
// representation to a float64 for range checking, and a separate int64
// path for exactness when the text has no fractional part.
func decodeNumericText(raw []byte) (f float64, i int64, isInt bool, err error) {
	s := string(raw)
	if iv, e := strconv.ParseInt(s, 10, 64); e == nil {
		return float64(iv), iv, true, nil
	}
	if uv, e := strconv.ParseUint(s, 10, 64); e == nil {
		return float64(uv), int64(uv), true, nil
	}
	fv, e := strconv.ParseFloat(s, 64)
	if e != nil {
		return 0, 0, false, e
	}
	return fv, 0, false, nil
}

// decodeNumericBinary decodes a binary-protocol numeric cell of the given
// server type into a float64 (for FLOAT/DOUBLE/DECIMAL-as-text) or int64.
func decodeNumericBinary(t FieldType, raw []byte, unsigned bool) (f float64, i int64, isInt bool, n int, err error) {
	switch t {
	case TypeTiny:
		if unsigned {
			return float64(raw[0]), int64(raw[0]), true, 1, nil
		}
		return float64(int8(raw[0])), int64(int8(raw[0])), true, 1, nil
	case TypeShort, TypeYear:
		v := getUint16(raw)
		if unsigned {
			return float64(v), int64(v), true, 2, nil
		}
		return float64(int16(v)), int64(int16(v)), true, 2, nil
	case TypeInt24, TypeLong:
		v := getUint32(raw)
		if unsigned {
			return float64(v), int64(v), true, 4, nil
		}
		return float64(int32(v)), int64(int32(v)), true, 4, nil
	case TypeLonglong:
		v := getUint64(raw)
		if unsigned {
			return float64(v), int64(v), true, 8, nil
		}
		return float64(int64(v)), int64(v), true, 8, nil
	case TypeFloat:
		bits := getUint32(raw)
		return float64(math.Float32frombits(bits)), 0, false, 4, nil
	case TypeDouble:
		bits := getUint64(raw)
		return math.Float64frombits(bits), 0, false, 8, nil
	case TypeDecimal, TypeNewDecimal:
		s, ln := getLenencString(raw)
		f, i, isInt, err := decodeNumericText([]byte(s.value))
		return f, i, isInt, ln, err
	}
	return 0, 0, false, 0, decodeErrorf(t, "numeric")
}

// --- byte (int8) ---------------------------------------------------------

type byteCodec struct{}

func (c *byteCodec) Accepts(t FieldType) bool  { return isNumericSource(t) }
func (c *byteCodec) TargetName() string        { return "Byte" }
func (c *byteCodec) BinaryTypeCode() uint16    { return uint16(TypeTiny) }

func (c *byteCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt8 || i > math.MaxInt8 {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return int8(i), nil
}

func (c *byteCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, 0, err
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt8 || i > math.MaxInt8 {
		return nil, n, myError(ErrDecode, "numeric overflow decoding as Byte")
	}
	return int8(i), n, nil
}

func (c *byteCodec) EncodeBinary(v interface{}) ([]byte, error) {
	iv, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	return []byte{byte(int8(iv))}, nil
}

// --- short (int16) ---------------------------------------------------------

type shortCodec struct{}

func (c *shortCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *shortCodec) TargetName() string       { return "Short" }
func (c *shortCodec) BinaryTypeCode() uint16   { return uint16(TypeShort) }

func (c *shortCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt16 || i > math.MaxInt16 {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return int16(i), nil
}

func (c *shortCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, 0, err
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt16 || i > math.MaxInt16 {
		return nil, n, myError(ErrDecode, "numeric overflow decoding as Short")
	}
	return int16(i), n, nil
}

func (c *shortCodec) EncodeBinary(v interface{}) ([]byte, error) {
	iv, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 2)
	putUint16(b, uint16(int16(iv)))
	return b, nil
}

// --- int (int32) ---------------------------------------------------------

type intCodec struct{}

func (c *intCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *intCodec) TargetName() string       { return "Int" }
func (c *intCodec) BinaryTypeCode() uint16   { return uint16(TypeLong) }

func (c *intCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return int32(i), nil
}

func (c *intCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, 0, err
	}
	if !isInt {
		i = int64(f)
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, n, myError(ErrDecode, "numeric overflow decoding as Int")
	}
	return int32(i), n, nil
}

func (c *intCodec) EncodeBinary(v interface{}) ([]byte, error) {
	iv, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4)
	putUint32(b, uint32(int32(iv)))
	return b, nil
}

// --- long (int64) ---------------------------------------------------------

type longCodec struct{}

func (c *longCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *longCodec) TargetName() string       { return "Long" }
func (c *longCodec) BinaryTypeCode() uint16   { return uint16(TypeLonglong) }

func (c *longCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	if !isInt {
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, valueDecodeErrorf(string(raw), c.TargetName())
		}
		i = int64(f)
	}
	return i, nil
}

func (c *longCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, myError(ErrDecode, "cannot be decoded as Long")
	}
	if !isInt {
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, n, myError(ErrDecode, "numeric overflow decoding as Long")
		}
		i = int64(f)
	}
	return i, n, nil
}

func (c *longCodec) EncodeBinary(v interface{}) ([]byte, error) {
	iv, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 8)
	putUint64(b, uint64(iv))
	return b, nil
}

// --- float (float32) -------------------------------------------------------

type floatCodec struct{}

func (c *floatCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *floatCodec) TargetName() string       { return "Float" }
func (c *floatCodec) BinaryTypeCode() uint16   { return uint16(TypeFloat) }

func (c *floatCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, _, _, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return float32(f), nil
}

func (c *floatCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, _, _, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, err
	}
	return float32(f), n, nil
}

func (c *floatCodec) EncodeBinary(v interface{}) ([]byte, error) {
	fv, err := toFloat64(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4)
	putUint32(b, math.Float32bits(float32(fv)))
	return b, nil
}

// --- double (float64) -------------------------------------------------------

type doubleCodec struct{}

func (c *doubleCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *doubleCodec) TargetName() string       { return "Double" }
func (c *doubleCodec) BinaryTypeCode() uint16   { return uint16(TypeDouble) }

func (c *doubleCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, _, _, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	return f, nil
}

func (c *doubleCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, _, _, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, err
	}
	return f, n, nil
}

func (c *doubleCodec) EncodeBinary(v interface{}) ([]byte, error) {
	fv, err := toFloat64(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 8)
	putUint64(b, math.Float64bits(fv))
	return b, nil
}

// --- bool ------------------------------------------------------------------

// boolCodec treats any non-zero numeric as true (spec.md §4.7).
type boolCodec struct{}

func (c *boolCodec) Accepts(t FieldType) bool { return isNumericSource(t) }
func (c *boolCodec) TargetName() string       { return "Boolean" }
func (c *boolCodec) BinaryTypeCode() uint16   { return uint16(TypeTiny) }

func (c *boolCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, err := decodeNumericText(raw)
	if err != nil {
		return nil, valueDecodeErrorf(string(raw), c.TargetName())
	}
	if isInt {
		return i != 0, nil
	}
	return f != 0, nil
}

func (c *boolCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, err
	}
	if isInt {
		return i != 0, n, nil
	}
	return f != 0, n, nil
}

func (c *boolCodec) EncodeBinary(v interface{}) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, myError(ErrInvalidType, "expected bool")
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// --- BigDecimal (string-backed decimal) -------------------------------------

// bigDecimalCodec only accepts exact-precision server types; notably it
// never accepts DATETIME/TIMESTAMP, matching the DATETIME(6) scenario in
// spec.md §8 ("getBigDecimal(1) fails with 'cannot be decoded as
// BigDecimal'").
type bigDecimalCodec struct{}

func (c *bigDecimalCodec) Accepts(t FieldType) bool {
	switch t {
	case TypeDecimal, TypeNewDecimal, TypeTiny, TypeShort, TypeInt24, TypeLong,
		TypeLonglong, TypeFloat, TypeDouble, TypeYear:
		return true
	}
	return false
}
func (c *bigDecimalCodec) TargetName() string     { return "BigDecimal" }
func (c *bigDecimalCodec) BinaryTypeCode() uint16 { return uint16(TypeNewDecimal) }

func (c *bigDecimalCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	return string(raw), nil
}

func (c *bigDecimalCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	if t == TypeDecimal || t == TypeNewDecimal {
		s, n := getLenencString(raw)
		return s.value, n, nil
	}
	f, i, isInt, n, err := decodeNumericBinary(t, raw, unsigned)
	if err != nil {
		return nil, n, err
	}
	if isInt {
		return strconv.FormatInt(i, 10), n, nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), n, nil
}

func (c *bigDecimalCodec) EncodeBinary(v interface{}) ([]byte, error) {
	s := fmtValue(v)
	b := make([]byte, lenencStringSize(s))
	putLenencString(b, s)
	return b, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, myError(ErrInvalidType, "not a numeric value")
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, myError(ErrInvalidType, "not a numeric value")
}
