package gomariadb

// CredentialProvider supplies the username/password pair used at
// handshake time. The default is a static pair parsed from the DSN;
// SPEC_FULL.md §6 names this as a substitution point for things like a
// short-lived token fetched from an external secrets service.
type CredentialProvider interface {
	Credentials() (user, password string, err error)
}

type staticCredentials struct{ user, password string }

func (s staticCredentials) Credentials() (string, string, error) { return s.user, s.password, nil }

// AuthPlugin computes the authentication response bytes for one exchange
// round, given the server's seed/salt and the plaintext password (spec.md
// §4.2 "Authentication plugins"). sslActive gates plugins like
// mysql_clear_password that refuse to run over an unencrypted socket.
type AuthPlugin interface {
	Name() string
	Authenticate(seed []byte, password string, sslActive bool) ([]byte, error)
}

// authRegistry maps a plugin name from the handshake/auth-switch packet to
// its implementation.
type authRegistry struct {
	byName map[string]AuthPlugin
}

func newAuthRegistry() *authRegistry {
	r := &authRegistry{byName: map[string]AuthPlugin{}}
	for _, p := range []AuthPlugin{
		&nativePasswordPlugin{},
		&cachingSha2Plugin{},
		&ed25519Plugin{},
		&clearPasswordPlugin{},
	} {
		r.byName[p.Name()] = p
	}
	return r
}

func (r *authRegistry) get(name string) (AuthPlugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}
