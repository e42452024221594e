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
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an Error by SQLSTATE class, per spec.md §7.
type Kind uint8

const (
	KindConnection Kind = iota // 08xxx
	KindAuth                   // 28xxx
	KindProtocol                // 22xxx
	KindUnsupported              // 0A000
	KindServer                  // pass-through SQLSTATE
	KindInterrupted             // 70100
)

// client error codes, kept from the teacher's numbering scheme.
const (
	ErrWarning = 0
	ErrUnknown = 9000 + iota
	ErrConnection
	ErrRead
	ErrWrite
	ErrSSLSupport
	ErrSSLConnection
	ErrCompressionSupport
	ErrCompression
	ErrInvalidType
	ErrInvalidDSN
	ErrInvalidProperty
	ErrInvalidPropertyValue
	ErrScheme
	ErrCursor
	ErrFile
	ErrInvalidPacket
	ErrPacketTooBig
	ErrDesync
	ErrAuthPlugin
	ErrRSAUnavailable
	ErrNoConnection
	ErrInterrupted
	ErrFeatureNotSupported
	ErrDecode
	ErrNoSuchColumn
	ErrRowOutOfRange
	ErrPoolClosed
)

var errFormat = map[uint16]string{
	ErrWarning:              "execution of last statement resulted in warning(s)",
	ErrUnknown:              "unknown error",
	ErrConnection:           "can't connect to the server (%s)",
	ErrRead:                 "can't read data from connection (%s)",
	ErrWrite:                "can't write data to connection (%s)",
	ErrSSLSupport:           "server does not support SSL connection",
	ErrSSLConnection:        "can't establish SSL connection with the server (%s)",
	ErrCompressionSupport:   "server does not support packet compression",
	ErrCompression:          "compression error (%s)",
	ErrInvalidType:          "invalid type (%s)",
	ErrInvalidDSN:           "can't parse data source name (%s)",
	ErrInvalidProperty:      "invalid value for property '%s' (%s)",
	ErrInvalidPropertyValue: "invalid value for property '%s': %v",
	ErrScheme:               "unsupported scheme '%s'",
	ErrCursor:               "cursor is closed",
	ErrFile:                 "file operation failed (%s)",
	ErrInvalidPacket:        "invalid/unexpected packet received",
	ErrPacketTooBig:         "packet too big for max_allowed_packet (%d > %d)",
	ErrDesync:               "packet sequence desync: expected %d, got %d",
	ErrAuthPlugin:           "authentication plugin '%s' is not supported",
	ErrRSAUnavailable:       "RSA public key is not available client side",
	ErrNoConnection:         "no connection available within the specified time",
	ErrInterrupted:          "waiter was interrupted",
	ErrFeatureNotSupported:  "feature not supported: %s",
	ErrDecode:               "%s",
	ErrNoSuchColumn:         "no such column '%s'",
	ErrRowOutOfRange:        "row index %d out of range (loaded %d rows)",
	ErrPoolClosed:           "pool is closed",
}

// sqlStateForCode maps a client error code to the SQLSTATE class named in
// spec.md §7. Server errors carry their own SQLSTATE from the ERR packet and
// never go through this table.
func sqlStateForCode(code uint16) (string, Kind) {
	switch {
	case code == ErrConnection || code == ErrRead || code == ErrWrite ||
		code == ErrSSLConnection || code == ErrPacketTooBig || code == ErrDesync ||
		code == ErrNoConnection || code == ErrPoolClosed:
		return "08000", KindConnection
	case code == ErrAuthPlugin || code == ErrRSAUnavailable:
		return "28000", KindAuth
	case code == ErrInvalidType || code == ErrDecode || code == ErrInvalidPacket ||
		code == ErrNoSuchColumn || code == ErrRowOutOfRange:
		return "22000", KindProtocol
	case code == ErrFeatureNotSupported:
		return "0A000", KindUnsupported
	case code == ErrInterrupted:
		return "70100", KindInterrupted
	default:
		return "HY000", KindConnection
	}
}

// Error is the library's error type. It carries a stable SQLSTATE class
// (spec.md §7) and, for server-originated errors, the code/message the
// server sent verbatim.
type Error struct {
	code     uint16
	sqlState string
	kind     Kind
	message  string
	warnings uint16
	when     time.Time
	fatal    bool // must-reconnect: the socket cannot be reused
	cause    error
}

func myError(code uint16, a ...interface{}) *Error {
	sqlState, kind := sqlStateForCode(code)
	return &Error{
		code:     code,
		sqlState: sqlState,
		kind:     kind,
		message:  fmt.Sprintf(errFormat[code], a...),
		when:     time.Now(),
	}
}

// myErrorWrap annotates an underlying I/O or codec failure with a stack via
// github.com/pkg/errors so a caller debugging a transport failure can see
// where in the handshake/command cycle it first surfaced.
func myErrorWrap(code uint16, cause error, a ...interface{}) *Error {
	e := myError(code, a...)
	e.cause = pkgerrors.WithStack(cause)
	return e
}

// newServerError builds an Error from the fields of an ERR packet (spec.md
// §4.2): SQLSTATE, numeric code, and message, passed through verbatim.
func newServerError(sqlState string, code uint16, message string) *Error {
	fatal := false
	switch sqlState[0:2] {
	case "08":
		fatal = true
	}
	return &Error{
		code:     code,
		sqlState: sqlState,
		kind:     KindServer,
		message:  message,
		when:     time.Now(),
		fatal:    fatal,
	}
}

// Error implements Go's error interface.
func (e *Error) Error() string {
	if e.kind != KindServer {
		return fmt.Sprintf("[gomariadb] %d (%s): %s", e.code, e.sqlState, e.message)
	}
	return fmt.Sprintf("[server] %d (%s): %s", e.code, e.sqlState, e.message)
}

// Unwrap exposes the underlying cause, if any, so callers can use
// errors.Is/errors.As across a transport failure.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() uint16      { return e.code }
func (e *Error) SqlState() string  { return e.sqlState }
func (e *Error) Kind() Kind        { return e.kind }
func (e *Error) Message() string   { return e.message }
func (e *Error) When() time.Time   { return e.when }
func (e *Error) Warnings() uint16  { return e.warnings }
func (e *Error) Fatal() bool       { return e.fatal }

// ExceptionFactory converts an internal *Error into whatever error type a
// caller wants surfaced. Named in spec.md §3's Context fields; kept as a
// substitution point rather than baking database/sql/driver conventions
// into the internal engine (SPEC_FULL.md §5).
type ExceptionFactory func(*Error) error

func defaultExceptionFactory(e *Error) error { return e }

// NewError builds a client Error for the given code, for use by the pool
// subpackage and other callers outside this package that need to surface
// one of the client error codes above without going through a Session.
func NewError(code uint16, a ...interface{}) error {
	return myError(code, a...)
}
