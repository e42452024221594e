package gomariadb

import (
	"strconv"
	"sync"
)

// serverVersion is the parsed major/minor/patch plus MariaDB-vs-MySQL
// distinction (spec.md §3 "Context").
type serverVersion struct {
	raw        string
	major      int
	minor      int
	patch      int
	isMariaDB  bool
}

// stateFlag tracks which pieces of session state a Session has changed away
// from the pool's defaults, so a returning connection knows what to reset
// (spec.md §3 Context "state-flag bitmap").
type stateFlag uint32

const (
	stateDatabase stateFlag = 1 << iota
	stateAutocommit
	stateIsolation
	stateSessionVariables
	stateTransaction
)

// Context is the per-connection mutable state a Session owns exclusively
// (spec.md §3 "Context", ownership summary in §3's closing paragraph).
type Context struct {
	mu sync.Mutex

	capabilities Capability
	version      serverVersion
	connectionID uint32

	statusFlags   uint16
	warningCount  uint16
	database      string
	isolation     string
	stateFlags    stateFlag

	connectionAttrs map[string]string

	prepareCache *prepareCache

	exceptionFactory ExceptionFactory

	// hostAddress caches per-host observations across Sessions (spec.md §5
	// "Shared resources"); a Context created for a one-off Session may
	// leave this nil.
	host *HostAddress
}

func newContext() *Context {
	return &Context{
		connectionAttrs:  map[string]string{},
		exceptionFactory: defaultExceptionFactory,
	}
}

func (c *Context) hasCapability(cap Capability) bool {
	return c.capabilities&cap != 0
}

// supportsResetConnection reports whether the negotiated server is new
// enough to implement COM_RESET_CONNECTION: MySQL 5.7.3+ or MariaDB
// 10.2.4+. There is no capability bit for it — it's a version-gated
// command, unlike the features negotiated in the handshake's capability
// bitmask.
func (c *Context) supportsResetConnection() bool {
	v := c.version
	if v.isMariaDB {
		return v.major > 10 || (v.major == 10 && (v.minor > 2 || (v.minor == 2 && v.patch >= 4)))
	}
	return v.major > 5 || (v.major == 5 && (v.minor > 7 || (v.minor == 7 && v.patch >= 3)))
}

func (c *Context) inTransaction() bool { return c.statusFlags&statusInTrans != 0 }
func (c *Context) autocommit() bool    { return c.statusFlags&statusAutocommit != 0 }
func (c *Context) moreResults() bool   { return c.statusFlags&statusMoreResultsExist != 0 }

func (c *Context) markChanged(f stateFlag) {
	c.mu.Lock()
	c.stateFlags |= f
	c.mu.Unlock()
}

func (c *Context) changed(f stateFlag) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateFlags&f != 0
}

func (c *Context) clearChanges() {
	c.mu.Lock()
	c.stateFlags = 0
	c.mu.Unlock()
}

// HostAddress is a process-wide, per-host cache of values observed during
// the last successful handshake, guarded by its own lock (spec.md §5
// "Shared resources"; SPEC_FULL.md §5, grounded on
// original_source's org.mariadb.jdbc.HostAddress).
type HostAddress struct {
	mu               sync.Mutex
	Host             string
	Port             int
	maxAllowedPacket uint32
	waitTimeout      int
}

func (h *HostAddress) MaxAllowedPacket() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxAllowedPacket
}

func (h *HostAddress) SetMaxAllowedPacket(v uint32) {
	h.mu.Lock()
	h.maxAllowedPacket = v
	h.mu.Unlock()
}

func (h *HostAddress) WaitTimeout() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitTimeout
}

func (h *HostAddress) SetWaitTimeout(v int) {
	h.mu.Lock()
	h.waitTimeout = v
	h.mu.Unlock()
}

var (
	hostAddressesMu sync.Mutex
	hostAddresses    = map[string]*HostAddress{}
)

// sharedHostAddress returns the process-wide HostAddress value for
// host:port, creating it on first use.
func sharedHostAddress(host string, port int) *HostAddress {
	key := host + ":" + strconv.Itoa(port)
	hostAddressesMu.Lock()
	defer hostAddressesMu.Unlock()
	if h, ok := hostAddresses[key]; ok {
		return h
	}
	h := &HostAddress{Host: host, Port: port}
	hostAddresses[key] = h
	return h
}
