// Package executor implements the gateway's query execution primitives: the
// shared path by which both the collector runner and the ad-hoc /v1/execute
// endpoint turn a named-parameter SQL string and a live connection into
// JSON-safe results.
package executor

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/jsonsafe"
	"github.com/mantis/gatewayd/internal/protocol"
	"github.com/mantis/gatewayd/internal/sqlcompile"
)

// Conn pairs a pooled database handle with the owning session's read-only
// flag. Every execution path goes through it, so a read-only session is
// enforced uniformly for ad-hoc statements, collector layers/queries, and
// sampler ticks alike.
type Conn struct {
	DB       *sql.DB
	ReadOnly bool
}

// Options controls ExecuteAdHoc. Limit of 0 means unlimited; QueryTimeoutMs
// of 0 means no statement-level timeout. FetchSize is carried but not
// applied: ExecuteAdHoc does not read it.
type Options struct {
	Limit          int
	FetchSize      int
	QueryTimeoutMs int
}

// openRows issues the statement on conn. For a read-only connection the
// statement runs inside a read-only transaction; the returned finish func
// commits it once the rows have been consumed (a no-op otherwise). Callers
// must Close the rows before calling finish.
func openRows(ctx context.Context, conn Conn, sqlText string, args []interface{}) (*sql.Rows, func() error, error) {
	if !conn.ReadOnly {
		rows, err := conn.DB.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.CodeExecutionError, err, "query execution failed")
		}
		return rows, func() error { return nil }, nil
	}

	tx, err := conn.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeConnectionFailure, err, "failed to start read-only transaction")
	}
	rows, err := tx.QueryContext(ctx, sqlText, args...)
	if err != nil {
		tx.Rollback()
		return nil, nil, apperr.Wrap(apperr.CodeExecutionError, err, "query execution failed")
	}
	return rows, tx.Commit, nil
}

// ExecuteRows compiles sql, binds params, and materializes the result set as
// an ordered list of column-to-value row maps. If singleRow is true,
// iteration stops after the first row.
func ExecuteRows(ctx context.Context, conn Conn, sql_ string, singleRow bool, params map[string]interface{}) ([]protocol.Row, error) {
	if len(strings.TrimSpace(sql_)) == 0 {
		return nil, apperr.InvalidArgument("sql must not be blank")
	}

	compiled := sqlcompile.Compile(sql_)
	args := compiled.Bind(params)

	rows, finish, err := openRows(ctx, conn, compiled.SQL, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to read result columns")
	}

	var out []protocol.Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to scan row")
		}
		out = append(out, row)
		if singleRow {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "error iterating result set")
	}
	rows.Close()
	if err := finish(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to commit")
	}
	return out, nil
}

// ExecuteResponse runs the same statement as ExecuteRows but additionally
// captures column declared-type metadata, row count, and wall-clock
// duration, assembling the uniform ExecuteResponse shape.
func ExecuteResponse(ctx context.Context, conn Conn, sql_ string, singleRow bool, params map[string]interface{}) (*protocol.ExecuteResponse, error) {
	if len(strings.TrimSpace(sql_)) == 0 {
		return nil, apperr.InvalidArgument("sql must not be blank")
	}

	compiled := sqlcompile.Compile(sql_)
	args := compiled.Bind(params)

	start := time.Now()
	rows, finish, err := openRows(ctx, conn, compiled.SQL, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to read result columns")
	}
	names := make([]string, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
	}

	var out []protocol.Row
	for rows.Next() {
		row, err := scanRow(rows, names)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to scan row")
		}
		out = append(out, row)
		if singleRow {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "error iterating result set")
	}
	rows.Close()
	if err := finish(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to commit")
	}
	duration := time.Since(start)

	return &protocol.ExecuteResponse{
		Type: "tabular",
		Data: protocol.ExecuteResponseData{
			Columns: names,
			Rows:    out,
		},
		Metadata: protocol.ExecuteResponseMetadata{
			Truncated:  false,
			DurationMs: duration.Milliseconds(),
		},
	}, nil
}

// ExecuteAdHoc runs an operator-supplied statement with the options the
// /v1/execute endpoint exposes: a row limit, a driver fetch-size hint, and
// a statement timeout. It distinguishes a result-set statement (returns
// type="tabular") from an update/DDL statement (returns type="text" with
// RowsAffected and a human-readable summary). A read-only conn runs the
// whole statement inside a read-only transaction.
func ExecuteAdHoc(ctx context.Context, conn Conn, rawSQL string, params map[string]interface{}, opts Options) (*protocol.ExecuteResponse, error) {
	if len(strings.TrimSpace(rawSQL)) == 0 {
		return nil, apperr.InvalidArgument("sql must not be blank")
	}

	if opts.QueryTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.QueryTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	compiled := sqlcompile.Compile(rawSQL)
	args := compiled.Bind(params)

	tx, err := conn.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: conn.ReadOnly})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConnectionFailure, err, "failed to start transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	start := time.Now()
	rows, queryErr := tx.QueryContext(ctx, compiled.SQL, args...)
	if queryErr != nil {
		// Not every failure here is "no rows" - it may genuinely be a
		// statement with no result set (INSERT/UPDATE/DELETE/DDL), which
		// database/sql's QueryContext still routes through an error on
		// some drivers and not others. Retry as Exec to cover that case.
		res, execErr := tx.ExecContext(ctx, compiled.SQL, args...)
		if execErr != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionError, queryErr, "statement failed")
		}
		duration := time.Since(start)
		if err := tx.Commit(); err != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to commit")
		}
		committed = true
		return updateResponse(res, duration), nil
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to read result columns")
	}
	names := make([]string, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
	}

	var out []protocol.Row
	truncated := false
	for rows.Next() {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			truncated = true
			break
		}
		row, err := scanRow(rows, names)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to scan row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "error iterating result set")
	}
	duration := time.Since(start)
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionError, err, "failed to commit")
	}
	committed = true

	returned := int64(len(out))
	return &protocol.ExecuteResponse{
		Type: "tabular",
		Data: protocol.ExecuteResponseData{
			Columns: names,
			Rows:    out,
		},
		Metadata: protocol.ExecuteResponseMetadata{
			Truncated:    truncated,
			RowsAffected: &returned,
			DurationMs:   duration.Milliseconds(),
		},
	}, nil
}

func updateResponse(res sql.Result, duration time.Duration) *protocol.ExecuteResponse {
	affected, _ := res.RowsAffected()
	return &protocol.ExecuteResponse{
		Type: "text",
		Data: protocol.ExecuteResponseData{
			TextContent: rowsAffectedMessage(affected),
		},
		Metadata: protocol.ExecuteResponseMetadata{
			RowsAffected: &affected,
			DurationMs:   duration.Milliseconds(),
		},
	}
}

func rowsAffectedMessage(affected int64) string {
	if affected == 1 {
		return "1 row affected"
	}
	return strconv.FormatInt(affected, 10) + " rows affected"
}

// scanRow scans the current row of rows into a protocol.Row keyed by cols,
// JSON-coercing each cell via jsonsafe.Coerce.
func scanRow(rows *sql.Rows, cols []string) (protocol.Row, error) {
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(protocol.Row, len(cols))
	for i, name := range cols {
		row[name] = jsonsafe.Coerce(values[i])
	}
	return row, nil
}
