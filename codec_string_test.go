package gomariadb

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringCodecDecodeTextAcceptsAnything(t *testing.T) {
	c := &stringCodec{}
	assert.True(t, c.Accepts(TypeLong))
	assert.True(t, c.Accepts(TypeDatetime))

	v, err := c.DecodeText(TypeVarchar, []byte("hello"), false)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestStringCodecDecodeBinaryLenencKinds(t *testing.T) {
	c := &stringCodec{}
	raw := make([]byte, lenencStringSize("abc"))
	putLenencString(raw, "abc")

	v, n, err := c.DecodeBinary(TypeVarString, raw, false)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	assert.Equal(t, len(raw), n)
}

func TestStringCodecDecodeBinaryFormatsNumerics(t *testing.T) {
	c := &stringCodec{}
	b := make([]byte, 4)
	putUint32(b, 42)

	v, n, err := c.DecodeBinary(TypeLong, b, false)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	assert.Equal(t, 4, n)
}

func TestStringCodecEncodeBinaryRoundTrip(t *testing.T) {
	c := &stringCodec{}
	enc, err := c.EncodeBinary("hi there")
	require.NoError(t, err)
	s, n := getLenencString(enc)
	assert.Equal(t, "hi there", s.value)
	assert.Equal(t, len(enc), n)
}

func TestStringCodecEncodeBinaryNonString(t *testing.T) {
	c := &stringCodec{}
	enc, err := c.EncodeBinary(42)
	require.NoError(t, err)
	s, _ := getLenencString(enc)
	assert.Equal(t, "42", s.value)
}

func TestBytesCodecAcceptsBlobLikeTypes(t *testing.T) {
	c := &bytesCodec{}
	assert.True(t, c.Accepts(TypeBlob))
	assert.True(t, c.Accepts(TypeVarString))
	assert.False(t, c.Accepts(TypeLong))
}

func TestBytesCodecDecodeTextRejectsWrongType(t *testing.T) {
	c := &bytesCodec{}
	_, err := c.DecodeText(TypeLong, []byte("x"), false)
	assert.Error(t, err)
}

func TestBytesCodecDecodeBinaryRoundTrip(t *testing.T) {
	c := &bytesCodec{}
	payload := []byte{0x01, 0x02, 0x03}
	enc, err := c.EncodeBinary(payload)
	require.NoError(t, err)

	v, n, err := c.DecodeBinary(TypeBlob, enc, false)
	require.NoError(t, err)
	assert.Equal(t, payload, v)
	assert.Equal(t, len(enc), n)
}

func TestBytesCodecEncodeBinaryWrongType(t *testing.T) {
	c := &bytesCodec{}
	_, err := c.EncodeBinary("not bytes")
	assert.Error(t, err)
}

func TestURLCodecDecodeTextParsesValidURL(t *testing.T) {
	c := &urlCodec{}
	v, err := c.DecodeText(TypeVarchar, []byte("https://example.com/path?q=1"), false)
	require.NoError(t, err)
	u, ok := v.(*url.URL)
	require.True(t, ok)
	assert.Equal(t, "example.com", u.Host)
}

func TestURLCodecDecodeTextRejectsWrongType(t *testing.T) {
	c := &urlCodec{}
	_, err := c.DecodeText(TypeLong, []byte("https://example.com"), false)
	assert.Error(t, err)
}

func TestURLCodecDecodeBinaryRoundTrip(t *testing.T) {
	c := &urlCodec{}
	u, err := url.Parse("https://host.example/a/b")
	require.NoError(t, err)

	enc, err := c.EncodeBinary(u)
	require.NoError(t, err)

	v, n, err := c.DecodeBinary(TypeString, enc, false)
	require.NoError(t, err)
	got, ok := v.(*url.URL)
	require.True(t, ok)
	assert.Equal(t, u.String(), got.String())
	assert.Equal(t, len(enc), n)
}

func TestURLCodecEncodeBinaryWrongType(t *testing.T) {
	c := &urlCodec{}
	_, err := c.EncodeBinary("not a url")
	assert.Error(t, err)
}
