package gomariadb

// okPacket is the decoded form of a server OK response (spec.md §4.2).
type okPacket struct {
	affectedRows uint64
	lastInsertID uint64
	statusFlags  uint16
	warnings     uint16
	info         string
	sessionState []byte
}

// parseOK decodes an OK packet (header byte 0x00, length >= 7) or, when
// CLIENT_DEPRECATE_EOF is set, an EOF-shaped OK terminating a row stream
// (spec.md §4.2).
func parseOK(b []byte, ctx *Context) *okPacket {
	off := 1
	ok := &okPacket{}

	v, n := getLenencInt(b[off:])
	ok.affectedRows = v
	off += n

	v, n = getLenencInt(b[off:])
	ok.lastInsertID = v
	off += n

	ok.statusFlags = getUint16(b[off : off+2])
	off += 2

	ok.warnings = getUint16(b[off : off+2])
	off += 2

	ctx.statusFlags = ok.statusFlags
	ctx.warningCount = ok.warnings

	if off < len(b) && ctx.hasCapability(CapSessionTrack) {
		info, n := getLenencString(b[off:])
		ok.info = info.value
		off += n
		if ok.statusFlags&statusSessionStateChanged != 0 && off < len(b) {
			state, n := getLenencString(b[off:])
			ok.sessionState = []byte(state.value)
			off += n
		}
	} else if off < len(b) {
		ok.info = string(b[off:])
	}

	return ok
}

// eofPacket is the decoded form of a (non-deprecated) EOF terminator
// (spec.md §4.2).
type eofPacket struct {
	warnings    uint16
	statusFlags uint16
}

func parseEOF(b []byte, ctx *Context) *eofPacket {
	// [0xfe][warnings:2][status:2]
	e := &eofPacket{}
	e.warnings = getUint16(b[1:3])
	e.statusFlags = getUint16(b[3:5])
	ctx.statusFlags = e.statusFlags
	ctx.warningCount = e.warnings
	return e
}

// isEOFPacket distinguishes a true EOF packet from a result-set row whose
// first byte happens to be 0xfe but is actually a long length-encoded
// string header (payload >= 9 bytes in non-deprecated mode is never EOF).
func isEOFPacket(b []byte, ctx *Context) bool {
	if len(b) == 0 || b[0] != headerEOF {
		return false
	}
	if ctx.hasCapability(CapDeprecateEOF) {
		return len(b) < maxPacketSize
	}
	return len(b) < 9
}

// parseErr decodes an ERR packet: SQLSTATE (5 ASCII after '#'), error code
// (LE16), message (spec.md §4.2).
func parseErr(b []byte) *Error {
	off := 1
	code := getUint16(b[off : off+2])
	off += 2

	sqlState := "HY000"
	if off < len(b) && b[off] == '#' {
		off++
		sqlState = string(b[off : off+5])
		off += 5
	}

	message := string(b[off:])
	return newServerError(sqlState, code, message)
}

// handshakePacket is the decoded protocol-10 initial handshake packet
// (spec.md §4.2 step 2).
type handshakePacket struct {
	protocolVersion  uint8
	serverVersion    string
	connectionID     uint32
	authPluginData   []byte
	capabilities     Capability
	serverCharset    uint8
	statusFlags      uint16
	authPluginName   string
}

func parseHandshake(b []byte) *handshakePacket {
	h := &handshakePacket{}
	off := 0

	h.protocolVersion = b[off]
	off++

	serverVersion, n := getNullTerminatedString(b[off:])
	h.serverVersion = serverVersion
	off += n

	h.connectionID = getUint32(b[off : off+4])
	off += 4

	seed1Off := off
	authDataLength := 8
	off += 8
	off++ // filler [00]

	capLow := uint32(getUint16(b[off : off+2]))
	off += 2

	var capabilities uint32 = capLow

	if len(b) > off {
		h.serverCharset = b[off]
		off++

		h.statusFlags = getUint16(b[off : off+2])
		off += 2

		capabilities |= uint32(getUint16(b[off:off+2])) << 16
		off += 2

		if capabilities&uint32(CapPluginAuth) != 0 {
			authDataLength = int(b[off])
			off++
		} else {
			off++
		}

		off += 10 // reserved

		var seed2 []byte
		if capabilities&uint32(CapSecureConnection) != 0 {
			l := authDataLength - 8
			if l > 13 {
				l = 13
			}
			seed2 = b[off : off+l]
			off += l
			if authDataLength > 8 {
				authDataLength--
			}
		}

		authData := make([]byte, 0, authDataLength)
		authData = append(authData, b[seed1Off:seed1Off+8]...)
		authData = append(authData, seed2...)
		h.authPluginData = authData[:authDataLength]

		if capabilities&uint32(CapPluginAuth) != 0 {
			h.authPluginName, _ = getNullTerminatedString(b[off:])
		}
	} else {
		h.authPluginData = b[seed1Off : seed1Off+8]
	}

	h.capabilities = Capability(capabilities)
	return h
}

// authSwitchPacket (0xfe) tells the client to restart the auth exchange
// with a different plugin and seed (spec.md §4.2 step 6).
type authSwitchPacket struct {
	pluginName string
	authData   []byte
}

func parseAuthSwitch(b []byte) *authSwitchPacket {
	off := 1
	name, n := getNullTerminatedString(b[off:])
	off += n
	return &authSwitchPacket{pluginName: name, authData: b[off:]}
}

// prepareOKPacket is COM_STMT_PREPARE's response header (spec.md §4.2).
type prepareOKPacket struct {
	stmtID      uint32
	columnCount uint16
	paramCount  uint16
	warnings    uint16
}

func parsePrepareOK(b []byte) *prepareOKPacket {
	off := 1
	p := &prepareOKPacket{}
	p.stmtID = getUint32(b[off : off+4])
	off += 4
	p.columnCount = getUint16(b[off : off+2])
	off += 2
	p.paramCount = getUint16(b[off : off+2])
	off += 2
	off++ // filler
	if off+2 <= len(b) {
		p.warnings = getUint16(b[off : off+2])
	}
	return p
}
