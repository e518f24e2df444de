package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/executor"
)

func newTestRunner(t *testing.T, yamlByFile map[string]string) (*Runner, *Registry) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "postgres")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for name, content := range yamlByFile {
		writePack(t, dir, name, content)
	}

	drivers := driver.NewRegistry()
	drivers.Register(&fakeDriver{name: "postgres", version: "15.0"})

	reg := NewRegistry(root, drivers, zaptest.NewLogger(t))
	if _, err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return NewRunner(reg, zaptest.NewLogger(t)), reg
}

const onePack = `
supported_versions: {min: "1.0", max: "99.0"}
collectors:
  basics:
    layers:
      l2:
        order: 2
        sql: "SELECT 'second' AS stage"
      l1:
        order: 1
        sql: "SELECT 'first' AS stage"
  lookups:
    queries:
      active_sessions:
        description: "count active sessions"
        sql: "SELECT count(*) AS n FROM pg_stat_activity"
`

func TestRunner_RunCollector_LayersRunInOrder(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": onePack})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 'first' AS stage").WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("first"))
	mock.ExpectQuery("SELECT 'second' AS stage").WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("second"))

	result, err := runner.RunCollector(context.Background(), executor.Conn{DB: db}, "postgres", "basics", "")
	if err != nil {
		t.Fatalf("RunCollector: %v", err)
	}
	if len(result.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(result.Layers))
	}
	if result.Layers["l1"].Order != 1 || result.Layers["l2"].Order != 2 {
		t.Errorf("layer orders = %+v", result.Layers)
	}
}

func TestRunner_RunCollector_FailingLayerDoesNotAbort(t *testing.T) {
	pack := `
supported_versions: {min: "1.0", max: "99.0"}
collectors:
  basics:
    layers:
      good:
        order: 1
        sql: "SELECT 1"
      bad:
        order: 2
        sql: "SELECT broken"
`
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": pack})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT broken").WillReturnError(errBoom)

	result, err := runner.RunCollector(context.Background(), executor.Conn{DB: db}, "postgres", "basics", "")
	if err != nil {
		t.Fatalf("RunCollector should not fail overall: %v", err)
	}
	if _, ok := result.Layers["good"]; !ok {
		t.Error("good layer should be present")
	}
	if _, ok := result.Layers["bad"]; ok {
		t.Error("bad layer should be absent, not present with an error")
	}
}

func TestRunner_ResolveCollector_AmbiguousAcrossPacks(t *testing.T) {
	packA := `
supported_versions: {min: "1.0", max: "50.0"}
collectors:
  shared:
    queries:
      q1: {sql: "SELECT 1"}
`
	packB := `
supported_versions: {min: "1.0", max: "99.0"}
collectors:
  shared:
    queries:
      q1: {sql: "SELECT 1"}
`
	runner, _ := newTestRunner(t, map[string]string{"a.yaml": packA, "b.yaml": packB})

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	_, err = runner.RunCollector(context.Background(), executor.Conn{DB: db}, "postgres", "shared", "")
	e, ok := apperr.As(err)
	if !ok || e.Code != apperr.CodeCollectorAmbiguous {
		t.Fatalf("expected CollectorAmbiguous, got %v", err)
	}
}

func TestRunner_ResolveCollector_RefResolvesExactPack(t *testing.T) {
	packA := `
supported_versions: {min: "1.0", max: "50.0"}
collectors:
  shared:
    queries:
      q1: {sql: "SELECT 'a'"}
`
	packB := `
supported_versions: {min: "1.0", max: "99.0"}
collectors:
  shared:
    queries:
      q1: {sql: "SELECT 'b'"}
`
	runner, _ := newTestRunner(t, map[string]string{"a.yaml": packA, "b.yaml": packB})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 'b'").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow("b"))

	result, err := runner.RunCollector(context.Background(), executor.Conn{DB: db}, "postgres", "", "b:shared")
	if err != nil {
		t.Fatalf("RunCollector: %v", err)
	}
	if result.SourceFile != "b.yaml" {
		t.Errorf("SourceFile = %s, want b.yaml", result.SourceFile)
	}
}

func TestRunner_ResolveCollector_NotFound(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": onePack})

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	_, err = runner.RunCollector(context.Background(), executor.Conn{DB: db}, "postgres", "nonexistent", "")
	e, ok := apperr.As(err)
	if !ok || e.Code != apperr.CodeCollectorNotFound {
		t.Fatalf("expected CollectorNotFound, got %v", err)
	}
}

func TestRunner_RunQuery_Shorthand(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": onePack})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT count\\(\\*\\) AS n FROM pg_stat_activity").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))

	result, err := runner.RunQuery(context.Background(), executor.Conn{DB: db}, "postgres", "", "", "active_sessions", nil)
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if result.CollectorID != "lookups" {
		t.Errorf("CollectorID = %s, want lookups", result.CollectorID)
	}
	if result.Result.Data.Rows[0]["n"] != int64(4) {
		t.Errorf("row n = %v", result.Result.Data.Rows[0]["n"])
	}
}

func TestRunner_RunCollector_ReadOnlyConnUsesTransaction(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": onePack})

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 'first' AS stage").WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("first"))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 'second' AS stage").WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("second"))
	mock.ExpectCommit()

	result, err := runner.RunCollector(context.Background(), executor.Conn{DB: db, ReadOnly: true}, "postgres", "basics", "")
	if err != nil {
		t.Fatalf("RunCollector: %v", err)
	}
	if len(result.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(result.Layers))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunner_RunQuery_NotFound(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{"core.yaml": onePack})

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	_, err = runner.RunQuery(context.Background(), executor.Conn{DB: db}, "postgres", "", "", "does_not_exist", nil)
	e, ok := apperr.As(err)
	if !ok || e.Code != apperr.CodeQueryNotFound {
		t.Fatalf("expected QueryNotFound, got %v", err)
	}
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errBoom = sentinelErr("boom")
