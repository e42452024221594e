/*
  Copyright (C) 2015 Nirbhay Choubey

  This library is free software; you can redistribute it and/or
  modify it under the terms of the GNU Lesser General Public
  License as published by the Free Software Foundation; either
  version 2.1 of the License, or (at your option) any later version.

  This library is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
  Lesser General Public License for more details.

  You should have received a copy of the GNU Lesser General Public
  License along with this library; if not, write to the Free Software
  Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301
  USA
*/

package gomariadb

import (
	"io"
	"net"
)

// readWriter is the pluggable transport underneath a frame: plain socket or
// compressed stream (spec.md §4.1's compression wrapper). Modeled on the
// teacher's net.go readWriter interface.
type readWriter interface {
	read(c net.Conn, b []byte) (int, error)
	write(c net.Conn, b []byte) (int, error)
	reset()
}

type plainReadWriter struct{}

func (rw *plainReadWriter) read(c net.Conn, b []byte) (int, error) {
	n, err := io.ReadFull(c, b)
	if err != nil {
		return n, myErrorWrap(ErrRead, err)
	}
	return n, nil
}

func (rw *plainReadWriter) write(c net.Conn, b []byte) (int, error) {
	n, err := c.Write(b)
	if err != nil {
		return n, myErrorWrap(ErrWrite, err)
	}
	return n, nil
}

func (rw *plainReadWriter) reset() {}

// frame owns the packet sequence number and read/write framing for one
// direction-independent conn: [len:3 LE][seq:1][payload:len], reassembling
// payloads that spill across a 0xFFFFFF-length continuation packet
// (spec.md §3 "Packet", §4.1).
type frame struct {
	conn         net.Conn
	rw           readWriter
	seqno        uint8
	maxAllowed   uint32
	writeBuf     *buffer
	header       [4]byte
}

func newFrame(c net.Conn, maxAllowed uint32) *frame {
	return &frame{
		conn:       c,
		rw:         &plainReadWriter{},
		maxAllowed: maxAllowed,
		writeBuf:   newBuffer(4096),
	}
}

// resetSeq resets the sequence to 0 at the start of each new command cycle
// (spec.md §4.2 "Before any command").
func (f *frame) resetSeq() {
	f.seqno = 0
	f.rw.reset()
}

// readPacket reads one logical packet, transparently reassembling a payload
// that spans multiple 0xFFFFFF-length physical packets. A sequence mismatch
// is fatal protocol desync (spec.md §4.1).
func (f *frame) readPacket() ([]byte, error) {
	var payload []byte
	for {
		if _, err := f.rw.read(f.conn, f.header[:]); err != nil {
			return nil, err
		}
		length := getUint24(f.header[0:3])
		seq := f.header[3]
		if seq != f.seqno {
			return nil, myError(ErrDesync, f.seqno, seq)
		}
		f.seqno++

		chunk := make([]byte, length)
		if length > 0 {
			if _, err := f.rw.read(f.conn, chunk); err != nil {
				return nil, err
			}
		}
		payload = append(payload, chunk...)

		if length < maxPacketSize {
			return payload, nil
		}
		// length == 0xFFFFFF: a continuation packet follows, possibly an
		// empty terminator when the true size was an exact multiple.
	}
}

// writePacket splits and writes b (the raw payload, no header) as one or
// more physical packets, incrementing the sequence per physical packet.
// When len(b) is a nonzero multiple of maxPacketSize an empty terminator
// packet is appended so the reader's continuation loop above stops
// (spec.md §4.1 writer contract).
func (f *frame) writePacket(b []byte) error {
	if f.maxAllowed > 0 && uint32(len(b)) > f.maxAllowed {
		return myError(ErrPacketTooBig, len(b), f.maxAllowed)
	}

	off := 0
	for {
		remaining := len(b) - off
		n := remaining
		if n > maxPacketSize {
			n = maxPacketSize
		}

		hdr := make([]byte, 4+n)
		putUint24(hdr[0:3], uint32(n))
		hdr[3] = f.seqno
		copy(hdr[4:], b[off:off+n])

		if _, err := f.rw.write(f.conn, hdr); err != nil {
			return err
		}
		f.seqno++
		off += n

		if n < maxPacketSize {
			return nil
		}
		if off == len(b) {
			// exact multiple: emit an empty terminator packet.
			term := make([]byte, 4)
			putUint24(term[0:3], 0)
			term[3] = f.seqno
			if _, err := f.rw.write(f.conn, term); err != nil {
				return err
			}
			f.seqno++
			return nil
		}
	}
}

// packetWriter accumulates a logical command payload before handing it to
// frame.writePacket, mirroring the teacher's initPacket/mark/flush writer
// contract from spec.md §4.1.
type packetWriter struct {
	buf *buffer
}

func newPacketWriter() *packetWriter {
	return &packetWriter{buf: newBuffer(4096)}
}

func (w *packetWriter) init(capacityHint int) []byte {
	return w.buf.reset(capacityHint)
}

func (w *packetWriter) mark() int          { return w.buf.mark() }
func (w *packetWriter) resetMark(pos int)  { w.buf.resetMark(pos) }

func (w *packetWriter) writeByte(b []byte, v uint8) int    { b[0] = v; return 1 }
func (w *packetWriter) writeShort(b []byte, v uint16) int  { putUint16(b, v); return 2 }
func (w *packetWriter) writeInt(b []byte, v uint32) int    { putUint32(b, v); return 4 }
func (w *packetWriter) writeLong(b []byte, v uint64) int   { putUint64(b, v); return 8 }

func (w *packetWriter) writeLenencInt(b []byte, v uint64) int    { return putLenencInt(b, v) }
func (w *packetWriter) writeLenencString(b []byte, v string) int { return putLenencString(b, v) }
func (w *packetWriter) writeBytes(b []byte, v []byte) int        { return copy(b, v) }
