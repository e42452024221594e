package gomariadb

import (
	"net/url"
	"time"
)

// encodeBinaryParamExtended covers bound-parameter Go types beyond the
// primitive set handled inline in message.go: temporal values, geometry,
// and URLs, each routed through its decode-symmetric codec.
func encodeBinaryParamExtended(v driverValue) ([]byte, error) {
	switch val := v.val.(type) {
	case time.Time:
		return (&timestampCodec{}).EncodeBinary(val)
	case time.Duration:
		return (&timeCodec{}).EncodeBinary(val)
	case Geometry:
		return (&geometryCodec{}).EncodeBinary(val)
	case *url.URL:
		return (&urlCodec{}).EncodeBinary(val)
	case nil:
		return nil, nil
	default:
		return (&stringCodec{}).EncodeBinary(val)
	}
}

func binaryTypeCodeForExtended(v driverValue) uint16 {
	switch v.val.(type) {
	case time.Time:
		return uint16(TypeDatetime)
	case time.Duration:
		return uint16(TypeTime)
	case Geometry:
		return uint16(TypeGeometry)
	case *url.URL:
		return uint16(TypeVarString)
	default:
		return uint16(TypeVarString)
	}
}
