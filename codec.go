package gomariadb

import "fmt"

// Codec is implemented once per logical data type (spec.md §4.7). Each
// codec declares the wire type tags it can decode from, decodes both text
// and binary row encodings into the caller-facing scalar/temporal type, and
// can encode a value as a text literal (for client-side substitution) and
// as a binary parameter (with its wire type code).
type Codec interface {
	// Accepts reports whether this codec can decode the given server type.
	Accepts(t FieldType) bool
	// TargetName is the caller-facing type name used in decode-failure
	// messages ("Data type X cannot be decoded as Y").
	TargetName() string
	// DecodeText decodes a text-protocol cell (already NULL-checked).
	DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error)
	// DecodeBinary decodes a binary-protocol cell (already NULL-checked).
	DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error)
	// BinaryTypeCode is the wire type code used to bind this Go value as a
	// binary COM_STMT_EXECUTE parameter.
	BinaryTypeCode() uint16
	// EncodeBinary appends the binary parameter encoding of v.
	EncodeBinary(v interface{}) ([]byte, error)
}

// decodeErrorf builds the exact message spec.md §4.7 and §8 require:
// "Data type X cannot be decoded as Y".
func decodeErrorf(serverType FieldType, target string) error {
	return myError(ErrDecode, fmt.Sprintf("Data type %s cannot be decoded as %s", serverType, target))
}

func valueDecodeErrorf(value string, target string) error {
	return myError(ErrDecode, fmt.Sprintf("value '%s' cannot be decoded as %s", value, target))
}

// codecRegistry maps a requested target type name to the codec that
// produces it; rows.go's by-index/by-label getters use this to dispatch.
type codecRegistry struct {
	byTarget map[string]Codec
}

func newCodecRegistry() *codecRegistry {
	r := &codecRegistry{byTarget: map[string]Codec{}}
	for _, c := range defaultCodecs() {
		r.byTarget[c.TargetName()] = c
	}
	return r
}

func (r *codecRegistry) forTarget(target string) (Codec, bool) {
	c, ok := r.byTarget[target]
	return c, ok
}

func defaultCodecs() []Codec {
	return []Codec{
		&byteCodec{}, &shortCodec{}, &intCodec{}, &longCodec{},
		&floatCodec{}, &doubleCodec{}, &boolCodec{}, &bigDecimalCodec{},
		&stringCodec{}, &bytesCodec{},
		&dateCodec{}, &timeCodec{}, &timestampCodec{}, &durationCodec{},
		&urlCodec{}, &geometryCodec{},
	}
}
