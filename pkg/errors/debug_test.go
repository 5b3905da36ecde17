package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpExpandsPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "mentor_assignments_pkey", TableName: "mentor_assignments", Message: "duplicate key value"}
	err := Wrap(CodeAlreadyDecided, fmt.Errorf("insert: %w", pgErr), "mentor decision already recorded")

	d := Dump(err)
	if d.Code != CodeAlreadyDecided {
		t.Fatalf("expected code %s, got %s", CodeAlreadyDecided, d.Code)
	}
	if d.Retryable {
		t.Fatal("already decided must not be retryable")
	}
	if d.PGCode != "23505" || d.PGConstraint != "mentor_assignments_pkey" || d.PGTable != "mentor_assignments" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
}

func TestDumpExpandsPqError(t *testing.T) {
	err := fmt.Errorf("write: %w", &pq.Error{Code: "40001", Message: "could not serialize access"})
	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("untyped errors dump as internal, got %s", d.Code)
	}
	if d.PGCode != "40001" {
		t.Fatalf("unexpected pg code %q", d.PGCode)
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

func TestIsTransientStorage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "connection", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "sqlite busy", err: stdErrors.New("database is locked"), want: true},
		{name: "plain", err: stdErrors.New("boom"), want: false},
	}
	for _, tc := range cases {
		if got := IsTransientStorage(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
