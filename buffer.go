/*
  The MIT License (MIT)

  Copyright (c) 2015 Nirbhay Choubey

  Permission is hereby granted, free of charge, to any person obtaining a copy
  of this software and associated documentation files (the "Software"), to deal
  in the Software without restriction, including without limitation the rights
  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
  copies of the Software, and to permit persons to whom the Software is
  furnished to do so, subject to the following conditions:

  The above copyright notice and this permission notice shall be included in all
  copies or substantial portions of the Software.

  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
  SOFTWARE.
*/

package gomariadb

import (
	"encoding/binary"
)

// buffer is a growable byte buffer with a read/write offset, used both as
// the packet-assembly scratch area (writer side) and as a zero-copy view
// over a received payload (reader side). spec.md §4.1's buffer codec.
type buffer struct {
	buff   []byte
	cap    int
	off    int
	length int
}

func newBuffer(cap int) *buffer {
	b := &buffer{}
	b.reinit(cap)
	return b
}

func (b *buffer) reinit(cap int) {
	b.off, b.length = 0, 0
	b.buff = make([]byte, cap)
	b.cap = cap
}

// reset rewinds the buffer for a new logical packet, growing the backing
// array if the requested capacity exceeds it. It never shrinks, mirroring
// the teacher's "discard the old buffer" growth-only policy.
func (b *buffer) reset(cap int) []byte {
	b.off, b.length = 0, 0
	if cap > b.cap {
		b.buff = make([]byte, cap)
		b.cap = cap
	}
	return b.buff[:cap]
}

func (b *buffer) len() int    { return b.length }
func (b *buffer) tell() int   { return b.off }
func (b *buffer) seek(o int)  { b.off = o }

// read returns the next length bytes without copying and advances the
// offset. The returned slice aliases the backing array; callers that need
// to retain data across the next reset must copy it themselves (spec.md §3
// ColumnDefinition's "offsets remain valid for the result set's lifetime"
// invariant is what forces column-definition bytes to be copied out).
func (b *buffer) read(length int) []byte {
	beg := b.off
	b.off += length
	return b.buff[beg:b.off]
}

func (b *buffer) write(p []byte) int {
	n := copy(b.buff[b.off:], p)
	b.off += n
	if b.off > b.length {
		b.length = b.off
	}
	return n
}

// mark/resetMark let a writer rewind to a point where a length prefix is
// filled in once the body length is known (spec.md §4.1's writer contract).
func (b *buffer) mark() int         { return b.off }
func (b *buffer) resetMark(pos int) { b.off = pos }

// --- fixed-width little-endian getters/putters -----------------------

func getUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

func getUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func getUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func getUint48(b []byte) uint64 {
	var v uint64
	for i := 5; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func getUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

func getInt16(b []byte) int16 { return int16(getUint16(b)) }
func getInt32(b []byte) int32 { return int32(getUint32(b)) }
func getInt64(b []byte) int64 { return int64(getUint64(b)) }

// --- length-encoded integers -------------------------------------------
//
// 1, 3, 4, or 9-byte variable-width integer, per the GLOSSARY's
// "Length-encoded int" entry.

func getLenencInt(b []byte) (v uint64, n int) {
	switch {
	case b[0] < 0xfb:
		return uint64(b[0]), 1
	case b[0] == 0xfb:
		// NULL sentinel: caller must check for this via isLenencNull.
		return 0, 1
	case b[0] == 0xfc:
		return uint64(getUint16(b[1:3])), 3
	case b[0] == 0xfd:
		return uint64(getUint24(b[1:4])), 4
	case b[0] == 0xfe:
		return getUint64(b[1:9]), 9
	}
	return 0, 1
}

func isLenencNull(b byte) bool { return b == 0xfb }

func putLenencInt(b []byte, v uint64) (n int) {
	switch {
	case v < 251:
		b[0] = byte(v)
		return 1
	case v < 1<<16:
		b[0] = 0xfc
		putUint16(b[1:3], uint16(v))
		return 3
	case v < 1<<24:
		b[0] = 0xfd
		putUint24(b[1:4], uint32(v))
		return 4
	default:
		b[0] = 0xfe
		putUint64(b[1:9], v)
		return 9
	}
}

func lenencIntSize(v uint64) int {
	switch {
	case v < 251:
		return 1
	case v < 1<<16:
		return 3
	case v < 1<<24:
		return 4
	default:
		return 9
	}
}

// nullString models a length-encoded (or fixed) string that may be SQL
// NULL, distinguishing "" from NULL the way spec.md §4.6 requires for text
// row decoding.
type nullString struct {
	value string
	valid bool
}

func getLenencString(b []byte) (s nullString, n int) {
	if isLenencNull(b[0]) {
		return nullString{}, 1
	}
	length, hdr := getLenencInt(b)
	return nullString{value: string(b[hdr : hdr+int(length)]), valid: true}, hdr + int(length)
}

func putLenencString(b []byte, v string) (n int) {
	n = putLenencInt(b, uint64(len(v)))
	n += copy(b[n:], v)
	return n
}

func lenencStringSize(v string) int {
	return lenencIntSize(uint64(len(v))) + len(v)
}

func getNullTerminatedString(b []byte) (v string, n int) {
	for n = 0; n < len(b) && b[n] != 0; n++ {
	}
	v = string(b[:n])
	if n < len(b) {
		n++ // consume the NUL
	}
	return
}

func putNullTerminatedString(b []byte, v string) (n int) {
	n = copy(b, v)
	b[n] = 0
	return n + 1
}

// --- NULL bitmap (binary row protocol, spec.md §4.6) --------------------

func nullBitmapSize(numFields int, offset int) int {
	return (numFields + offset + 7) / 8
}

func isNull(bitmap []byte, pos, offset int) bool {
	bytePos := (pos + offset) / 8
	bitPos := uint((pos + offset) % 8)
	return bitmap[bytePos]&(1<<bitPos) != 0
}

func setNull(bitmap []byte, pos, offset int) {
	bytePos := (pos + offset) / 8
	bitPos := uint((pos + offset) % 8)
	bitmap[bytePos] |= 1 << bitPos
}
