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
	"bytes"
	"io"
	"net"

	"github.com/klauspost/compress/zlib"
)

// compressionThreshold is the payload size at or below which a compressed packet
// is sent uncompressed with an origLength of 0 (spec.md §4.1), matching the
// teacher's threshold heuristic.
const compressionThreshold = 50

// compressReadWriter implements readWriter over the CLIENT_COMPRESS wire
// wrapper: [comp_len:3][comp_seq:1][uncomp_len:3][payload], with its own
// sequence counter independent of the protocol sequence (spec.md §4.1).
// Grounded on the teacher's compress.go, ported from compress/zlib to
// klauspost/compress/zlib per SPEC_FULL.md §4.
type compressReadWriter struct {
	seqno uint8
	ubuff *buffer // decompressed backlog not yet consumed
	uoff  int
}

func newCompressReadWriter() *compressReadWriter {
	return &compressReadWriter{ubuff: newBuffer(4096)}
}

func (rw *compressReadWriter) reset() { rw.seqno = 0 }

func (rw *compressReadWriter) read(c net.Conn, b []byte) (int, error) {
	need := len(b)
	got := 0
	for got < need {
		unread := rw.ubuff.length - rw.uoff
		if unread == 0 {
			if err := rw.fill(c); err != nil {
				return got, err
			}
			continue
		}
		n := copy(b[got:], rw.ubuff.buff[rw.uoff:rw.ubuff.length])
		rw.uoff += n
		got += n
	}
	return got, nil
}

// fill reads one compressed physical packet from the network and appends
// its decompressed content to the pending backlog.
func (rw *compressReadWriter) fill(c net.Conn) error {
	hdr := make([]byte, 7)
	if _, err := io.ReadFull(c, hdr); err != nil {
		return myErrorWrap(ErrRead, err)
	}
	compLen := getUint24(hdr[0:3])
	seq := hdr[3]
	origLen := getUint24(hdr[4:7])

	if seq != rw.seqno {
		return myError(ErrDesync, rw.seqno, seq)
	}
	rw.seqno++

	payload := make([]byte, compLen)
	if compLen > 0 {
		if _, err := io.ReadFull(c, payload); err != nil {
			return myErrorWrap(ErrRead, err)
		}
	}

	var plain []byte
	if origLen == 0 {
		// not compressed
		plain = payload
	} else {
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return myErrorWrap(ErrCompression, err)
		}
		defer zr.Close()
		plain = make([]byte, 0, origLen)
		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, zr); err != nil {
			return myErrorWrap(ErrCompression, err)
		}
		plain = buf.Bytes()
	}

	rw.ubuff.reset(len(plain))
	rw.ubuff.write(plain)
	rw.uoff = 0
	return nil
}

func (rw *compressReadWriter) write(c net.Conn, b []byte) (int, error) {
	var out []byte
	if len(b) > compressionThreshold {
		compressed, err := deflate(b)
		if err != nil {
			return 0, err
		}
		out = make([]byte, 7+len(compressed))
		putUint24(out[0:3], uint32(len(compressed)))
		out[3] = rw.seqno
		putUint24(out[4:7], uint32(len(b)))
		copy(out[7:], compressed)
	} else {
		out = make([]byte, 7+len(b))
		putUint24(out[0:3], uint32(len(b)))
		out[3] = rw.seqno
		putUint24(out[4:7], 0)
		copy(out[7:], b)
	}
	rw.seqno++
	n, err := c.Write(out)
	if err != nil {
		return n, myErrorWrap(ErrWrite, err)
	}
	return n, nil
}

func deflate(b []byte) ([]byte, error) {
	var z bytes.Buffer
	w, err := zlib.NewWriterLevel(&z, zlib.DefaultCompression)
	if err != nil {
		return nil, myErrorWrap(ErrCompression, err)
	}
	if _, err := w.Write(b); err != nil {
		return nil, myErrorWrap(ErrCompression, err)
	}
	if err := w.Close(); err != nil {
		return nil, myErrorWrap(ErrCompression, err)
	}
	return z.Bytes(), nil
}
