package gomariadb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDatetimeAsDurationScenario implements spec.md §8's DATETIME(6)
// scenario verbatim: a DATETIME value of 2024-03-12 01:55:12.000000
// decoded as a Duration yields PT265H55M12S, treating the day-of-month
// as an elapsed-day count from day 1 rather than a calendar date.
func TestDatetimeAsDurationScenario(t *testing.T) {
	raw := []byte("2024-03-12 01:55:12")
	p, err := parseTemporalText(TypeDatetime, raw)
	require.NoError(t, err)

	d := p.toDuration()
	want := 265*time.Hour + 55*time.Minute + 12*time.Second
	assert.Equal(t, want, d)
	assert.Equal(t, "265h55m12s", d.String())
}

func TestDatetimeAsDurationScenarioBinary(t *testing.T) {
	raw := make([]byte, 12)
	raw[0] = 11 // length byte: date+time+microseconds (microseconds left at 0)
	putUint16(raw[1:3], 2024)
	raw[3] = 3  // month
	raw[4] = 12 // day
	raw[5] = 1  // hour
	raw[6] = 55 // minute
	raw[7] = 12 // second

	d, _, err := (&durationCodec{}).DecodeBinary(TypeDatetime, raw, false)
	require.NoError(t, err)
	assert.Equal(t, 265*time.Hour+55*time.Minute+12*time.Second, d)
}

func TestBigDecimalStillRejectsThisDatetime(t *testing.T) {
	assert.False(t, (&bigDecimalCodec{}).Accepts(TypeDatetime))
}

func TestTimeCodecTextRoundTripish(t *testing.T) {
	d, err := (&timeCodec{}).DecodeText(TypeTime, []byte("25:30:10"), false)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Hour+30*time.Minute+10*time.Second, d)
}

func TestTimeCodecNegative(t *testing.T) {
	d, err := (&timeCodec{}).DecodeText(TypeTime, []byte("-02:00:00"), false)
	require.NoError(t, err)
	assert.Equal(t, -2*time.Hour, d)
}

func TestTimeCodecEncodeBinary(t *testing.T) {
	b, err := (&timeCodec{}).EncodeBinary(-(26 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, byte(12), b[0])
	assert.Equal(t, byte(1), b[1]) // negative flag
}

func TestDateCodecParsesCalendarDate(t *testing.T) {
	v, err := (&dateCodec{}).DecodeText(TypeDate, []byte("2024-03-12"), false)
	require.NoError(t, err)
	tv := v.(time.Time)
	assert.Equal(t, 2024, tv.Year())
	assert.Equal(t, time.Month(3), tv.Month())
	assert.Equal(t, 12, tv.Day())
}

func TestTimestampCodecFractionalSeconds(t *testing.T) {
	v, err := (&timestampCodec{}).DecodeText(TypeTimestamp, []byte("2024-03-12 01:55:12.123456"), false)
	require.NoError(t, err)
	tv := v.(time.Time)
	assert.Equal(t, 123456000, tv.Nanosecond())
}
