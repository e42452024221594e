package gomariadb

// clearPasswordPlugin implements mysql_clear_password: the password sent
// as-is, NUL-terminated. The server only offers this plugin at all over an
// already-encrypted channel, but the client still refuses to run it
// unencrypted as a second line of defense (spec.md §4.2).
type clearPasswordPlugin struct{}

func (p *clearPasswordPlugin) Name() string { return "mysql_clear_password" }

func (p *clearPasswordPlugin) Authenticate(seed []byte, password string, sslActive bool) ([]byte, error) {
	if !sslActive {
		return nil, myError(ErrAuthPlugin, p.Name())
	}
	out := make([]byte, len(password)+1)
	copy(out, password)
	return out, nil
}
