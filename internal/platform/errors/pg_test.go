package errors

import (
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code, col, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		ColumnName:     col,
		ConstraintName: constraint,
	}
}

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeInvalidArgument},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22001", ErrorCodeInvalidArgument},
		{"22P02", ErrorCodeInvalidArgument},
		{"25006", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"42P01", ErrorCodeDB},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code, "", ""))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("plain")); ok {
		t.Fatalf("non pg errors should not map")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil in, nil out")
	}
	err := FromPostgresf(pg("23505", "", ""), "insert contribution %s", "abc")
	if !IsCode(err, ErrorCodeDuplicateKey) || !IsDuplicateKey(err) {
		t.Fatalf("duplicate key not detected: %v", err)
	}
	if !IsUndefinedTable(FromPostgres(pg("42P01", "", ""), "select")) {
		t.Fatalf("undefined table not detected")
	}
	if !IsCode(FromPostgres(stderrs.New("conn reset"), "x"), ErrorCodeDB) {
		t.Fatalf("foreign errors should become DB errors")
	}
}

func TestAttachFieldFromPg(t *testing.T) {
	cases := []struct {
		name string
		in   *pgconn.PgError
		want string
	}{
		{"column wins", pg("23502", "email", "authors_email_key"), "email"},
		{"constraint tail", pg("23505", "", "contributions_sha_key"), "sha"},
		{"nothing", pg("23505", "", ""), ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := AttachFieldFromPg(FromPostgres(c.in, "x"))
			e, ok := As(err)
			if !ok {
				t.Fatalf("expected *Error")
			}
			if e.Field() != c.want {
				t.Fatalf("field = %q, want %q", e.Field(), c.want)
			}
		})
	}
}
