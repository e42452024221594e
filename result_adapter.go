package gomariadb

type resultAdapter struct {
	affectedRows uint64
	lastInsertID uint64
}

func (r *resultAdapter) LastInsertId() (int64, error) { return int64(r.lastInsertID), nil }
func (r *resultAdapter) RowsAffected() (int64, error) { return int64(r.affectedRows), nil }
