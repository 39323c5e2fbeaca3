package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	if !IsUniqueViolation(fmt.Errorf("insert user: %w", dup), "") {
		t.Fatalf("expected wrapped unique violation to match")
	}
	if !IsUniqueViolation(dup, "users_email_key") {
		t.Fatalf("expected constraint match")
	}
	if IsUniqueViolation(dup, "tenants_slug_key") {
		t.Fatalf("expected constraint mismatch")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatalf("plain error is not a unique violation")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "phone_numbers_agent_fk"}
	if !IsForeignKeyViolation(fmt.Errorf("link: %w", fk), "phone_numbers_agent_fk") {
		t.Fatalf("expected wrapped fk violation to match")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Fatalf("unique violation is not a fk violation")
	}
}

func TestNullStringHelpers(t *testing.T) {
	if NullString("").Valid {
		t.Fatalf("empty string should be NULL")
	}
	if NullStringPtr(nil).Valid {
		t.Fatalf("nil pointer should be NULL")
	}
	v := "agent-1"
	ns := NullStringPtr(&v)
	got := StringPtr(ns)
	if got == nil || *got != v {
		t.Fatalf("expected round trip of %q, got %v", v, got)
	}
}

func TestPoolDefaults(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 8}.withDefaults()
	if c.MaxIdleConns != 8 {
		t.Fatalf("idle conns should follow open conns, got %d", c.MaxIdleConns)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout %s", c.PingTimeout)
	}
}
