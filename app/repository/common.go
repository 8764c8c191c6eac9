package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// LookupKey addresses a payment row by provider reference, or by merchant
// order id when the gateway callback does not carry the reference.
type LookupKey struct {
	Reference       string
	MerchantOrderID string
}

func (k LookupKey) IsZero() bool {
	return strings.TrimSpace(k.Reference) == "" && strings.TrimSpace(k.MerchantOrderID) == ""
}

func (k LookupKey) where() (string, interface{}) {
	if ref := strings.TrimSpace(k.Reference); ref != "" {
		return "reference = ?", ref
	}
	return "merchant_order_id = ?", strings.TrimSpace(k.MerchantOrderID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullableStringValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimeValue(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtrFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
