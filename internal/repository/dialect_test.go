package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/AdeChrysler/szen-bi/internal/database"
)

func TestDialect_Rebind_Postgres(t *testing.T) {
	d := NewDialect(database.DriverPostgres)

	got := d.Rebind(`UPDATE users SET username = ?, is_bot = ? WHERE id = ?`)
	want := `UPDATE users SET username = $1, is_bot = $2 WHERE id = $3`
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}
}

func TestDialect_Rebind_SQLiteUnchanged(t *testing.T) {
	d := NewDialect(database.DriverSQLite)

	q := `SELECT id FROM users WHERE email = ?`
	if got := d.Rebind(q); got != q {
		t.Errorf("Rebind = %q, want unchanged %q", got, q)
	}
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	err := fmt.Errorf("failed to insert user: %w", &pq.Error{Code: "23505"})
	if !IsUniqueViolation(err) {
		t.Error("wrapped 23505 should be a unique violation")
	}

	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation should not be a unique violation")
	}
}

func TestIsUniqueViolation_OtherErrors(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Error("plain error should not be a unique violation")
	}
}
