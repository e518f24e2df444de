package collector

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/protocol"
)

// fakeDriver stubs every driver.Driver method; only ServerVersion is
// exercised by the registry's version-matching tests.
type fakeDriver struct {
	name    string
	version string
}

func (d *fakeDriver) Name() string    { return d.name }
func (d *fakeDriver) DBType() string  { return d.name }
func (d *fakeDriver) Connect(ctx context.Context, connStr string) (*sql.DB, error) { return nil, nil }
func (d *fakeDriver) ListSchemas(ctx context.Context, db *sql.DB) (*protocol.ListSchemasResponse, error) {
	return nil, nil
}
func (d *fakeDriver) ListTables(ctx context.Context, db *sql.DB, schema string) (*protocol.ListTablesResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetTable(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetTableResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetColumns(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetColumnsResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetPrimaryKey(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetPrimaryKeyResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetForeignKeys(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetForeignKeysResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetUniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetUniqueConstraintsResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetIndexes(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetIndexesResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetRowCount(ctx context.Context, db *sql.DB, schema, table string, exact bool) (*protocol.RowCountResponse, error) {
	return nil, nil
}
func (d *fakeDriver) SampleRows(ctx context.Context, db *sql.DB, schema, table string, limit int) (*protocol.SampleRowsResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetDatabaseInfo(ctx context.Context, db *sql.DB) (*protocol.GetDatabaseInfoResponse, error) {
	return nil, nil
}
func (d *fakeDriver) GetColumnStats(ctx context.Context, db *sql.DB, schema, table, column string, sampleSize int) (*protocol.ColumnStatsResponse, error) {
	return nil, nil
}
func (d *fakeDriver) CheckValueOverlap(ctx context.Context, db *sql.DB, ls, lt, lc, rs, rt, rc string, sampleSize int) (*protocol.ValueOverlapResponse, error) {
	return nil, nil
}
func (d *fakeDriver) ExecuteQuery(ctx context.Context, db *sql.DB, sqlQuery string, args []interface{}) (*protocol.ExecuteQueryResponse, error) {
	return nil, nil
}
func (d *fakeDriver) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	return d.version, nil
}
func (d *fakeDriver) Explain(ctx context.Context, db *sql.DB, sqlQuery string, analyze bool) (*protocol.ExplainResponse, error) {
	return nil, nil
}

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRegistry_ReloadAndMatch(t *testing.T) {
	root := t.TempDir()
	pgDir := filepath.Join(root, "postgres")
	if err := os.MkdirAll(pgDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePack(t, pgDir, "core_old.yaml", `
supported_versions:
  min: "9.0"
  max: "11.9"
collectors:
  basics:
    queries:
      version:
        sql: "SELECT version()"
`)
	writePack(t, pgDir, "core_new.yaml", `
supported_versions:
  min: "12.0"
  max: "16.9"
collectors:
  basics:
    queries:
      version:
        sql: "SELECT version()"
`)

	drivers := driver.NewRegistry()
	drivers.Register(&fakeDriver{name: "postgres", version: "15.3"})

	logger := zaptest.NewLogger(t)
	reg := NewRegistry(root, drivers, logger)

	n, err := reg.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 packs loaded, got %d", n)
	}

	pack := reg.GetConfig(context.Background(), nil, "postgres")
	if pack == nil {
		t.Fatal("expected a matching pack")
	}
	if pack.SourceFile != "core_new.yaml" {
		t.Errorf("GetConfig selected %s, want core_new.yaml", pack.SourceFile)
	}
}

func TestRegistry_NoMatchReturnsNilNotError(t *testing.T) {
	root := t.TempDir()
	pgDir := filepath.Join(root, "postgres")
	if err := os.MkdirAll(pgDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePack(t, pgDir, "core.yaml", `
supported_versions:
  min: "9.0"
  max: "11.9"
collectors:
  basics:
    queries:
      version:
        sql: "SELECT version()"
`)

	drivers := driver.NewRegistry()
	drivers.Register(&fakeDriver{name: "postgres", version: "16.2"})

	reg := NewRegistry(root, drivers, zaptest.NewLogger(t))
	if _, err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if pack := reg.GetConfig(context.Background(), nil, "postgres"); pack != nil {
		t.Errorf("expected no match, got %v", pack)
	}
}

func TestRegistry_SkipsPackMissingSupportedVersions(t *testing.T) {
	root := t.TempDir()
	pgDir := filepath.Join(root, "postgres")
	if err := os.MkdirAll(pgDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writePack(t, pgDir, "incomplete.yaml", `
collectors:
  basics:
    queries:
      version:
        sql: "SELECT version()"
`)

	reg := NewRegistry(root, driver.NewRegistry(), zaptest.NewLogger(t))
	n, err := reg.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 packs loaded (missing supported_versions), got %d", n)
	}
}

func TestRegistry_ReloadIsAtomicSwap(t *testing.T) {
	root := t.TempDir()
	pgDir := filepath.Join(root, "postgres")
	os.MkdirAll(pgDir, 0o755)
	writePack(t, pgDir, "core.yaml", `
supported_versions: {min: "1.0", max: "99.0"}
collectors: {basics: {queries: {v: {sql: "SELECT 1"}}}}
`)

	reg := NewRegistry(root, driver.NewRegistry(), zaptest.NewLogger(t))
	if _, err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	before := reg.packsFor("postgres")
	if len(before) != 1 {
		t.Fatalf("expected 1 pack before reload, got %d", len(before))
	}

	writePack(t, pgDir, "extra.yaml", `
supported_versions: {min: "1.0", max: "99.0"}
collectors: {basics: {queries: {v: {sql: "SELECT 1"}}}}
`)
	if _, err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	after := reg.packsFor("postgres")
	if len(after) != 2 {
		t.Fatalf("expected 2 packs after reload, got %d", len(after))
	}
	// The slice captured before the second Reload must remain untouched.
	if len(before) != 1 {
		t.Error("pre-reload snapshot was mutated by the later Reload")
	}
}
