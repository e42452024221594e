package gomariadb

import (
	"strconv"
	"strings"
	"time"
)

func isTemporalSource(t FieldType) bool {
	switch t {
	case TypeDate, TypeNewDate, TypeDatetime, TypeTimestamp, TypeTime:
		return true
	}
	return false
}

// parsedDateTime is a field-by-field decomposition shared by date/time/
// timestamp/duration codecs, produced from either text or binary rows.
type parsedDateTime struct {
	year, month, day       int
	hour, minute, second   int
	microsecond            int
	negative               bool
}

func parseTemporalText(t FieldType, raw []byte) (parsedDateTime, error) {
	s := string(raw)
	var p parsedDateTime

	switch t {
	case TypeDate, TypeNewDate:
		parts := strings.SplitN(s, "-", 3)
		if len(parts) != 3 {
			return p, valueDecodeErrorf(s, "Date")
		}
		p.year, _ = strconv.Atoi(parts[0])
		p.month, _ = strconv.Atoi(parts[1])
		p.day, _ = strconv.Atoi(parts[2])
	case TypeDatetime, TypeTimestamp:
		datePart := s
		timePart := ""
		if sp := strings.IndexByte(s, ' '); sp >= 0 {
			datePart = s[:sp]
			timePart = s[sp+1:]
		}
		dp := strings.SplitN(datePart, "-", 3)
		if len(dp) != 3 {
			return p, valueDecodeErrorf(s, "Timestamp")
		}
		p.year, _ = strconv.Atoi(dp[0])
		p.month, _ = strconv.Atoi(dp[1])
		p.day, _ = strconv.Atoi(dp[2])
		if timePart != "" {
			if err := parseClock(timePart, &p); err != nil {
				return p, valueDecodeErrorf(s, "Timestamp")
			}
		}
	case TypeTime:
		ts := s
		if strings.HasPrefix(ts, "-") {
			p.negative = true
			ts = ts[1:]
		}
		if err := parseClock(ts, &p); err != nil {
			return p, valueDecodeErrorf(s, "Time")
		}
	default:
		return p, decodeErrorf(t, "Timestamp")
	}
	return p, nil
}

func parseClock(s string, p *parsedDateTime) error {
	main := s
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		main = s[:dot]
		frac := s[dot+1:]
		for len(frac) < 6 {
			frac += "0"
		}
		us, err := strconv.Atoi(frac[:6])
		if err != nil {
			return err
		}
		p.microsecond = us
	}
	parts := strings.Split(main, ":")
	if len(parts) < 2 {
		return valueDecodeErrorf(s, "Time")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	p.hour = h
	if len(parts) > 1 {
		p.minute, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		p.second, _ = strconv.Atoi(parts[2])
	}
	return nil
}

func parseTemporalBinary(t FieldType, raw []byte) (parsedDateTime, int) {
	var p parsedDateTime
	length := int(raw[0])
	off := 1

	switch t {
	case TypeDate, TypeNewDate, TypeDatetime, TypeTimestamp:
		if length >= 4 {
			p.year = int(getUint16(raw[off : off+2]))
			p.month = int(raw[off+2])
			p.day = int(raw[off+3])
		}
		if length >= 7 {
			p.hour = int(raw[off+4])
			p.minute = int(raw[off+5])
			p.second = int(raw[off+6])
		}
		if length >= 11 {
			p.microsecond = int(getUint32(raw[off+7 : off+11]))
		}
	case TypeTime:
		if length >= 1 {
			p.negative = raw[off] != 0
		}
		if length >= 8 {
			days := getUint32(raw[off+1 : off+5])
			p.hour = int(days)*24 + int(raw[off+5])
			p.minute = int(raw[off+6])
			p.second = int(raw[off+7])
		}
		if length >= 12 {
			p.microsecond = int(getUint32(raw[off+8 : off+12]))
		}
	}
	return p, 1 + length
}

func (p parsedDateTime) toTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if p.year == 0 && p.month == 0 && p.day == 0 {
		return time.Time{}
	}
	return time.Date(p.year, time.Month(p.month), p.day, p.hour, p.minute, p.second,
		p.microsecond*1000, loc)
}

// toDuration implements the DATETIME(6) scenario of spec.md §8: a DATETIME
// decoded as Duration sums (day-1)*24h plus the clock component, treating
// the value as an elapsed time since day 1 of its month rather than a
// calendar point.
func (p parsedDateTime) toDuration() time.Duration {
	days := p.day - 1
	if days < 0 {
		days = 0
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(p.hour)*time.Hour +
		time.Duration(p.minute)*time.Minute +
		time.Duration(p.second)*time.Second +
		time.Duration(p.microsecond)*time.Microsecond
	if p.negative {
		d = -d
	}
	return d
}

// --- Date --------------------------------------------------------------

type dateCodec struct{}

func (c *dateCodec) Accepts(t FieldType) bool { return isTemporalSource(t) }
func (c *dateCodec) TargetName() string       { return "Date" }
func (c *dateCodec) BinaryTypeCode() uint16   { return uint16(TypeDate) }

func (c *dateCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	p, err := parseTemporalText(t, raw)
	if err != nil {
		return nil, err
	}
	return p.toTime(time.UTC), nil
}

func (c *dateCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	p, n := parseTemporalBinary(t, raw)
	return p.toTime(time.UTC), n, nil
}

func (c *dateCodec) EncodeBinary(v interface{}) ([]byte, error) {
	tv, ok := v.(time.Time)
	if !ok {
		return nil, myError(ErrInvalidType, "expected time.Time")
	}
	b := make([]byte, 5)
	b[0] = 4
	putUint16(b[1:3], uint16(tv.Year()))
	b[3] = byte(tv.Month())
	b[4] = byte(tv.Day())
	return b, nil
}

// --- Time (as time.Duration, since TIME may exceed 24h) ------------------

type timeCodec struct{}

func (c *timeCodec) Accepts(t FieldType) bool { return t == TypeTime }
func (c *timeCodec) TargetName() string       { return "Time" }
func (c *timeCodec) BinaryTypeCode() uint16   { return uint16(TypeTime) }

func (c *timeCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	p, err := parseTemporalText(t, raw)
	if err != nil {
		return nil, err
	}
	return p.toDuration(), nil
}

func (c *timeCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	p, n := parseTemporalBinary(t, raw)
	return p.toDuration(), n, nil
}

func (c *timeCodec) EncodeBinary(v interface{}) ([]byte, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return nil, myError(ErrInvalidType, "expected time.Duration")
	}
	neg := d < 0
	if neg {
		d = -d
	}
	totalSec := int64(d / time.Second)
	days := totalSec / 86400
	hour := (totalSec % 86400) / 3600
	minute := (totalSec % 3600) / 60
	second := totalSec % 60
	micro := int64(d%time.Second) / 1000

	b := make([]byte, 13)
	b[0] = 12
	if neg {
		b[1] = 1
	}
	putUint32(b[2:6], uint32(days))
	b[6] = byte(hour)
	b[7] = byte(minute)
	b[8] = byte(second)
	putUint32(b[9:13], uint32(micro))
	return b, nil
}

// --- Timestamp (time.Time) ------------------------------------------------

type timestampCodec struct{}

func (c *timestampCodec) Accepts(t FieldType) bool {
	return t == TypeDatetime || t == TypeTimestamp || t == TypeDate || t == TypeNewDate
}
func (c *timestampCodec) TargetName() string     { return "Timestamp" }
func (c *timestampCodec) BinaryTypeCode() uint16 { return uint16(TypeDatetime) }

func (c *timestampCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	p, err := parseTemporalText(t, raw)
	if err != nil {
		return nil, err
	}
	return p.toTime(time.Local), nil
}

func (c *timestampCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	p, n := parseTemporalBinary(t, raw)
	return p.toTime(time.Local), n, nil
}

func (c *timestampCodec) EncodeBinary(v interface{}) ([]byte, error) {
	tv, ok := v.(time.Time)
	if !ok {
		return nil, myError(ErrInvalidType, "expected time.Time")
	}
	b := make([]byte, 12)
	b[0] = 11
	putUint16(b[1:3], uint16(tv.Year()))
	b[3] = byte(tv.Month())
	b[4] = byte(tv.Day())
	b[5] = byte(tv.Hour())
	b[6] = byte(tv.Minute())
	b[7] = byte(tv.Second())
	putUint32(b[8:12], uint32(tv.Nanosecond()/1000))
	return b, nil
}

// --- Duration (explicit target, same conversion as timeCodec but also
// accepting DATETIME/TIMESTAMP per spec.md §8's literal scenario) ---------

type durationCodec struct{}

func (c *durationCodec) Accepts(t FieldType) bool { return isTemporalSource(t) }
func (c *durationCodec) TargetName() string       { return "Duration" }
func (c *durationCodec) BinaryTypeCode() uint16   { return uint16(TypeTime) }

func (c *durationCodec) DecodeText(t FieldType, raw []byte, unsigned bool) (interface{}, error) {
	if !c.Accepts(t) {
		return nil, decodeErrorf(t, c.TargetName())
	}
	p, err := parseTemporalText(t, raw)
	if err != nil {
		return nil, err
	}
	return p.toDuration(), nil
}

func (c *durationCodec) DecodeBinary(t FieldType, raw []byte, unsigned bool) (interface{}, int, error) {
	if !c.Accepts(t) {
		return nil, 0, decodeErrorf(t, c.TargetName())
	}
	p, n := parseTemporalBinary(t, raw)
	return p.toDuration(), n, nil
}

func (c *durationCodec) EncodeBinary(v interface{}) ([]byte, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return nil, myError(ErrInvalidType, "expected time.Duration")
	}
	tc := &timeCodec{}
	return tc.EncodeBinary(d)
}
