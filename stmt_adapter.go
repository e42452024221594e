package gomariadb

import (
	"context"
	"database/sql/driver"
)

type stmtAdapter struct {
	stmt *Statement
}

func (s *stmtAdapter) Close() error  { return s.stmt.Close() }
func (s *stmtAdapter) NumInput() int { return s.stmt.ParamCount() }

func (s *stmtAdapter) Exec(args []driver.Value) (driver.Result, error) {
	_, affected, lastID, err := s.stmt.Execute(valuesToParams(args)...)
	if err != nil {
		return nil, err
	}
	return &resultAdapter{affectedRows: affected, lastInsertID: lastID}, nil
}

func (s *stmtAdapter) Query(args []driver.Value) (driver.Rows, error) {
	rs, _, _, err := s.stmt.Execute(valuesToParams(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rs: rs}, nil
}

func (s *stmtAdapter) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	_, affected, lastID, err := s.stmt.Execute(namedValuesToParams(args)...)
	if err != nil {
		return nil, err
	}
	return &resultAdapter{affectedRows: affected, lastInsertID: lastID}, nil
}

func (s *stmtAdapter) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rs, _, _, err := s.stmt.Execute(namedValuesToParams(args)...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rs: rs}, nil
}

func valuesToParams(args []driver.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
