package gomariadb

import (
	"database/sql"
	"database/sql/driver"
)

// Driver adapts Session/Statement/ResultSet onto database/sql/driver, the
// way the teacher's driver.go wraps its own conn type (spec.md §4.8 "the
// call-level API is a thin adapter").
type Driver struct{}

func init() {
	sql.Register("gomariadb", &Driver{})
}

func (d Driver) Open(dsn string) (driver.Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	session, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	return &connAdapter{session: session}, nil
}
