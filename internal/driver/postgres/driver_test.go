package postgres

import (
	"testing"

	"github.com/mantis/gatewayd/internal/driver"
)

func TestNew(t *testing.T) {
	d := New()
	if d == nil {
		t.Fatal("New() returned nil")
	}
	if d.Name() != "postgres" {
		t.Errorf("Name() = %q, want %q", d.Name(), "postgres")
	}
}

func TestDriverImplementsInterface(t *testing.T) {
	// Compile-time check that Driver implements driver.Driver
	var _ driver.Driver = (*Driver)(nil)
}

func TestNormalizeTableType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"BASE TABLE", "TABLE"},
		{"base table", "TABLE"},
		{"VIEW", "VIEW"},
		{"FOREIGN", "FOREIGN TABLE"},
		{"OTHER", "OTHER"},
	}

	for _, tt := range tests {
		got := normalizeTableType(tt.input)
		if got != tt.want {
			t.Errorf("normalizeTableType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeRefAction(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"c", "CASCADE"},
		{"n", "SET NULL"},
		{"d", "SET DEFAULT"},
		{"r", "RESTRICT"},
		{"a", "NO ACTION"},
		{"x", "x"},
	}

	for _, tt := range tests {
		got := normalizeRefAction(tt.input)
		if got != tt.want {
			t.Errorf("normalizeRefAction(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDriverRegistration(t *testing.T) {
	// The init() function should have registered the driver.
	if !driver.Has("postgres") {
		t.Error("Postgres driver should be registered automatically")
	}

	d, err := driver.Get("postgres")
	if err != nil {
		t.Fatalf("Get(\"postgres\") error: %v", err)
	}
	if d.Name() != "postgres" {
		t.Errorf("Name() = %q, want %q", d.Name(), "postgres")
	}
}

func TestDBType(t *testing.T) {
	d := New()
	if d.DBType() != "postgres" {
		t.Errorf("DBType() = %q, want %q", d.DBType(), "postgres")
	}
}
