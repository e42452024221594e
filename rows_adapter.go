package gomariadb

import (
	"database/sql/driver"
	"fmt"
	"io"
	"time"
)

type rowsAdapter struct {
	rs        *ResultSet
	stmt      *Statement
	closeStmt bool
	started   bool
}

func (r *rowsAdapter) Columns() []string {
	cols := r.rs.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return names
}

func (r *rowsAdapter) Close() error {
	err := r.rs.Close()
	if r.closeStmt && r.stmt != nil {
		r.stmt.Close()
	}
	return err
}

func (r *rowsAdapter) Next(dest []driver.Value) error {
	has, err := r.rs.Next()
	if err != nil {
		return err
	}
	if !has {
		return io.EOF
	}
	cols := r.rs.Columns()
	for i, cd := range cols {
		target := fieldTypeToDriverTarget(cd.Type)
		v, err := r.rs.GetByIndex(i, target)
		if err != nil {
			return err
		}
		dest[i] = toDriverValue(v, target)
	}
	return nil
}

// fieldTypeToDriverTarget picks the codec target whose decoded Go type is
// one database/sql/driver.Value can carry directly (int64, float64, bool,
// []byte, string, time.Time), per spec.md §4.7's codec table.
func fieldTypeToDriverTarget(t FieldType) string {
	switch t {
	case TypeTiny, TypeShort, TypeInt24, TypeLong, TypeLonglong, TypeYear:
		return "Long"
	case TypeFloat, TypeDouble:
		return "Double"
	case TypeDecimal, TypeNewDecimal:
		return "BigDecimal"
	case TypeDate, TypeNewDate:
		return "Date"
	case TypeDatetime, TypeTimestamp:
		return "Timestamp"
	case TypeTime:
		return "Time"
	case TypeBlob, TypeTinyBlob, TypeMediumBlob, TypeLongBlob, TypeGeometry, TypeBit:
		return "Bytes"
	default:
		return "String"
	}
}

func toDriverValue(v interface{}, target string) driver.Value {
	if v == nil {
		return nil
	}
	switch target {
	case "Time":
		if d, ok := v.(time.Duration); ok {
			return formatSQLDuration(d)
		}
	}
	switch tv := v.(type) {
	case int8:
		return int64(tv)
	case int16:
		return int64(tv)
	case int32:
		return int64(tv)
	case int64:
		return tv
	case float32:
		return float64(tv)
	case float64:
		return tv
	case bool, []byte, string, time.Time:
		return tv
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func formatSQLDuration(d time.Duration) string {
	neg := ""
	if d < 0 {
		neg = "-"
		d = -d
	}
	totalSec := int64(d / time.Second)
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	sec := totalSec % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", neg, h, m, sec)
}
