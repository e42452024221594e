package gomariadb

import (
	"context"
	"database/sql/driver"
)

// connAdapter satisfies database/sql/driver.Conn and its optional
// context-aware interfaces over a Session.
type connAdapter struct {
	session *Session
}

func (c *connAdapter) Prepare(query string) (driver.Stmt, error) {
	st, err := c.session.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &stmtAdapter{stmt: st}, nil
}

func (c *connAdapter) Close() error { return c.session.Close() }

func (c *connAdapter) Begin() (driver.Tx, error) {
	if _, _, err := c.session.Exec("START TRANSACTION"); err != nil {
		return nil, err
	}
	return &txAdapter{session: c.session}, nil
}

func (c *connAdapter) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	sql := "START TRANSACTION"
	if opts.ReadOnly {
		sql = "START TRANSACTION READ ONLY"
	}
	if _, _, err := c.session.Exec(sql); err != nil {
		return nil, err
	}
	return &txAdapter{session: c.session}, nil
}

func (c *connAdapter) Ping(ctx context.Context) error { return c.session.Ping() }

func (c *connAdapter) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) == 0 {
		rs, err := c.session.Query(query)
		if err != nil {
			return nil, err
		}
		return &rowsAdapter{rs: rs}, nil
	}
	st, err := c.session.Prepare(query)
	if err != nil {
		return nil, err
	}
	rs, _, _, err := st.Execute(namedValuesToParams(args)...)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &rowsAdapter{rs: rs, stmt: st, closeStmt: true}, nil
}

func (c *connAdapter) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if len(args) == 0 {
		affected, lastID, err := c.session.Exec(query)
		if err != nil {
			return nil, err
		}
		return &resultAdapter{affectedRows: affected, lastInsertID: lastID}, nil
	}
	st, err := c.session.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	_, affected, lastID, err := st.Execute(namedValuesToParams(args)...)
	if err != nil {
		return nil, err
	}
	return &resultAdapter{affectedRows: affected, lastInsertID: lastID}, nil
}

func namedValuesToParams(args []driver.NamedValue) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
