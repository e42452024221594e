package gomariadb

import (
	"crypto/tls"
	"net"
	"strconv"
	"strings"
)

// handshake drives the connection-establishment sequence of spec.md §4.2:
// read the server greeting, negotiate capabilities, optionally upgrade to
// TLS, run the authentication sub-protocol (including AuthSwitch/
// AuthMoreData rounds), and return the frame and populated Context ready
// for command traffic.
func handshake(conn net.Conn, cfg *Config, creds CredentialProvider) (*frame, *Context, error) {
	ctx := newContext()
	fr := newFrame(conn, defaultMaxAllowedPacket)

	greeting, err := fr.readPacket()
	if err != nil {
		return nil, nil, err
	}
	if len(greeting) > 0 && greeting[0] == headerErr {
		return nil, nil, parseErr(greeting)
	}
	hs := parseHandshake(greeting)
	ctx.version = parseServerVersion(hs.serverVersion)
	ctx.connectionID = hs.connectionID

	clientCaps := negotiateCapabilities(hs.capabilities, cfg)

	if clientCaps&CapSSL != 0 {
		if err := sendSSLRequest(fr, clientCaps, cfg); err != nil {
			return nil, nil, err
		}
		tlsConn := tls.Client(conn, cfg.tlsConfig())
		if err := tlsConn.Handshake(); err != nil {
			return nil, nil, myErrorWrap(ErrSSLConnection, err)
		}
		conn = tlsConn
		fr.conn = conn
	}
	sslActive := clientCaps&CapSSL != 0

	user, password, err := creds.Credentials()
	if err != nil {
		return nil, nil, err
	}

	registry := newAuthRegistry()
	pluginName := hs.authPluginName
	if pluginName == "" {
		pluginName = "mysql_native_password"
	}
	plugin, ok := registry.get(pluginName)
	if !ok {
		return nil, nil, myError(ErrAuthPlugin, pluginName)
	}

	authResponse, err := plugin.Authenticate(hs.authPluginData, password, sslActive)
	if err != nil {
		return nil, nil, err
	}

	resp := buildHandshakeResponse(clientCaps, user, cfg.Database, pluginName, authResponse, cfg.ConnectionAttributes)
	if err := fr.writePacket(resp); err != nil {
		return nil, nil, err
	}

	for {
		pkt, err := fr.readPacket()
		if err != nil {
			return nil, nil, err
		}
		if len(pkt) == 0 {
			return nil, nil, myError(ErrInvalidPacket)
		}
		switch pkt[0] {
		case headerOK:
			parseOK(pkt, ctx)
			ctx.capabilities = clientCaps
			ctx.database = cfg.Database
			return fr, ctx, nil
		case headerErr:
			return nil, nil, parseErr(pkt)
		case authSwitchHdr:
			sw := parseAuthSwitch(pkt)
			plugin, ok = registry.get(sw.pluginName)
			if !ok {
				return nil, nil, myError(ErrAuthPlugin, sw.pluginName)
			}
			authResponse, err = plugin.Authenticate(sw.authData, password, sslActive)
			if err != nil {
				return nil, nil, err
			}
			if err := fr.writePacket(authResponse); err != nil {
				return nil, nil, err
			}
		case authMoreDataHdr:
			done, err := handleAuthMoreData(fr, pkt, plugin, hs.authPluginData, password, sslActive)
			if err != nil {
				return nil, nil, err
			}
			if done {
				continue
			}
		default:
			return nil, nil, myError(ErrInvalidPacket)
		}
	}
}

// handleAuthMoreData processes an auth_more_data packet for
// caching_sha2_password's fast/full-auth protocol; other plugins don't use
// this packet type today. done reports whether the caller should simply
// loop back to read the next packet (a response is already in flight).
func handleAuthMoreData(fr *frame, pkt []byte, plugin AuthPlugin, seed []byte, password string, sslActive bool) (bool, error) {
	sha2, ok := plugin.(*cachingSha2Plugin)
	if !ok || len(pkt) < 2 {
		return true, nil
	}
	switch pkt[1] {
	case fastAuthSuccess:
		return true, nil
	case fastAuthFull:
		if sslActive {
			out := make([]byte, len(password)+1)
			copy(out, password)
			return false, fr.writePacket(out)
		}
		if err := fr.writePacket([]byte{0x02}); err != nil {
			return false, err
		}
		keyPkt, err := fr.readPacket()
		if err != nil {
			return false, err
		}
		pubKeyPEM := keyPkt
		if len(keyPkt) > 0 && keyPkt[0] == authMoreDataHdr {
			pubKeyPEM = keyPkt[1:]
		}
		ciphertext, err := sha2.FullAuthResponse(seed, password, pubKeyPEM)
		if err != nil {
			return false, err
		}
		return false, fr.writePacket(ciphertext)
	default:
		return true, nil
	}
}

// negotiateCapabilities ANDs the server's advertised bits with what this
// client wants to use, keeping mandatoryCapabilities unconditionally and
// layering on optional features the Config enabled (spec.md §4.2 step 3).
func negotiateCapabilities(serverCaps Capability, cfg *Config) Capability {
	caps := mandatoryCapabilities
	caps |= CapConnectWithDB & serverCaps
	if cfg.Database != "" {
		caps |= CapConnectWithDB
	}
	caps |= CapSessionTrack & serverCaps
	caps |= CapDeprecateEOF & serverCaps
	caps |= CapPluginAuthLenencClientData & serverCaps
	if len(cfg.ConnectionAttributes) > 0 {
		caps |= CapConnectAttrs & serverCaps
	}
	if cfg.UseCompression {
		caps |= CapCompress & serverCaps
	}
	if cfg.TLSMode != TLSModeDisabled {
		caps |= CapSSL & serverCaps
	}
	if cfg.MultiStatements {
		caps |= CapMultiStatements & serverCaps
	}
	return caps
}

// sendSSLRequest writes the truncated HandshakeResponse41 used to request
// a TLS upgrade before any credentials are sent in the clear (spec.md §4.2
// "SSL request").
func sendSSLRequest(fr *frame, caps Capability, cfg *Config) error {
	b := make([]byte, 32)
	putUint32(b[0:4], uint32(caps))
	putUint32(b[4:8], defaultMaxAllowedPacket)
	b[8] = charsetUTF8MB4
	return fr.writePacket(b)
}

// buildHandshakeResponse encodes the full HandshakeResponse41 packet
// (spec.md §4.2 step 4).
func buildHandshakeResponse(caps Capability, user, database, pluginName string, authResponse []byte, attrs map[string]string) []byte {
	size := 32 + len(user) + 1 + 1 + len(authResponse)
	if caps&CapPluginAuthLenencClientData != 0 {
		size += lenencIntSize(uint64(len(authResponse))) - 1
	}
	if caps&CapConnectWithDB != 0 {
		size += len(database) + 1
	}
	if caps&CapPluginAuth != 0 {
		size += len(pluginName) + 1
	}
	var attrsBody []byte
	if caps&CapConnectAttrs != 0 {
		attrsBody = encodeConnectionAttrs(attrs)
		size += lenencIntSize(uint64(len(attrsBody))) + len(attrsBody)
	}

	b := make([]byte, size)
	off := 0
	putUint32(b[off:off+4], uint32(caps))
	off += 4
	putUint32(b[off:off+4], defaultMaxAllowedPacket)
	off += 4
	b[off] = charsetUTF8MB4
	off++
	off += 23 // reserved

	off += putNullTerminatedString(b[off:], user)

	if caps&CapPluginAuthLenencClientData != 0 {
		off += putLenencInt(b[off:], uint64(len(authResponse)))
		off += copy(b[off:], authResponse)
	} else {
		b[off] = byte(len(authResponse))
		off++
		off += copy(b[off:], authResponse)
	}

	if caps&CapConnectWithDB != 0 {
		off += putNullTerminatedString(b[off:], database)
	}
	if caps&CapPluginAuth != 0 {
		off += putNullTerminatedString(b[off:], pluginName)
	}
	if caps&CapConnectAttrs != 0 {
		off += putLenencInt(b[off:], uint64(len(attrsBody)))
		off += copy(b[off:], attrsBody)
	}

	return b[:off]
}

func encodeConnectionAttrs(attrs map[string]string) []byte {
	size := 0
	for k, v := range attrs {
		size += lenencStringSize(k) + lenencStringSize(v)
	}
	b := make([]byte, size)
	off := 0
	for k, v := range attrs {
		off += putLenencString(b[off:], k)
		off += putLenencString(b[off:], v)
	}
	return b
}

// parseServerVersion extracts major.minor.patch and the MariaDB-vs-MySQL
// distinction from the greeting's version string (spec.md §3 "Context").
func parseServerVersion(raw string) serverVersion {
	v := serverVersion{raw: raw}
	v.isMariaDB = strings.Contains(strings.ToLower(raw), "mariadb")

	numeric := raw
	if idx := strings.IndexAny(raw, "-"); idx >= 0 {
		numeric = raw[:idx]
	}
	parts := strings.SplitN(numeric, ".", 3)
	if len(parts) > 0 {
		v.major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		v.minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		v.patch, _ = strconv.Atoi(parts[2])
	}
	return v
}
