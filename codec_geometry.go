package gomariadb

import "math"

// Geometry is a minimal WKB-backed value: MariaDB prefixes every GEOMETRY
// column with a 4-byte SRID ahead of the standard WKB body (spec.md §6).
type Geometry struct {
	SRID uint32
	WKB  []byte
}

// Point is decoded out of a WKB point body for the common case so callers
// don't have to hand-parse WKB for the simplest shape.
type Point struct {
	X, Y float64
}

// AsPoint interprets the geometry as a WKB Point (type code 1); returns
// false if the WKB body is not a point.
func (g Geometry) AsPoint() (Point, bool) {
	if len(g.WKB) < 21 {
		return Point{}, false
	}
	littleEndian := g.WKB[0] == 1
	var order func([]byte) uint32
	if littleEndian {
		order = getUint32
	} else {
		order = func(b []byte) uint32 {
			return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		}
	}
	if order(g.WKB[1:5]) != 1 {
		return Point{}, false
	}
	var x, y uint64
	if littleEndian {
		x = getUint64(g.WKB[5:13])
		y = getUint64(g.WKB[13:21])
	} else {
		x = beUint64(g.WKB[5:13])
		y = beUint64(g.WKB[13:21])
	}
	return Point{X: math.Float64frombits(x), Y: math.Float64frombits(y)}, true
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

type geometryCodec struct{}

func (c *geometryCodec) Accepts(t FieldType) bool { return t == TypeGeometry }
func (c *geometryCodec) TargetName() string       { return "Geometry" }
func (c *geometryCodec) BinaryTypeCode() uint16   { return uint16(TypeGeometry) }

func (c *geometryCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	return c.fromBytes(raw)
}

func (c *geometryCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	s, n := getLenencString(raw)
	g, err := c.fromBytes([]byte(s.value))
	if err != nil {
		return nil, n, err
	}
	return g, n, nil
}

func (c *geometryCodec) fromBytes(raw []byte) (Geometry, error) {
	if len(raw) < 4 {
		return Geometry{}, decodeErrorf(TypeGeometry, c.TargetName())
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return Geometry{SRID: getUint32(out[0:4]), WKB: out[4:]}, nil
}

func (c *geometryCodec) EncodeBinary(v interface{}) ([]byte, error) {
	g, ok := v.(Geometry)
	if !ok {
		return nil, myError(ErrInvalidType, "expected Geometry")
	}
	body := make([]byte, 4+len(g.WKB))
	putUint32(body[0:4], g.SRID)
	copy(body[4:], g.WKB)

	b := make([]byte, lenencIntSize(uint64(len(body)))+len(body))
	n := putLenencInt(b, uint64(len(body)))
	copy(b[n:], body)
	return b, nil
}
