// Package oracle provides an Oracle Database driver implementation.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/sijms/go-ora/v2" // Oracle driver

	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/protocol"
)

// Driver implements the driver.Driver interface for Oracle Database.
type Driver struct {
	driver.BaseDriver
}

// New creates a new Oracle driver.
func New() *Driver {
	return &Driver{
		BaseDriver: driver.NewBaseDriver("oracle"),
	}
}

// Connect establishes a connection to Oracle.
func (d *Driver) Connect(ctx context.Context, connectionString string) (*sql.DB, error) {
	db, err := sql.Open("oracle", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ListSchemas returns all schemas (users) visible to the connection.
func (d *Driver) ListSchemas(ctx context.Context, db *sql.DB) (*protocol.ListSchemasResponse, error) {
	query := `
		SELECT username,
			CASE WHEN username = SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') THEN 1 ELSE 0 END AS is_default
		FROM all_users
		ORDER BY username
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []protocol.SchemaInfo
	for rows.Next() {
		var name string
		var isDefault int
		if err := rows.Scan(&name, &isDefault); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		schemas = append(schemas, protocol.SchemaInfo{Name: name, IsDefault: isDefault == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}

	return &protocol.ListSchemasResponse{Schemas: schemas}, nil
}

// ListTables returns all tables and views in the specified schema.
func (d *Driver) ListTables(ctx context.Context, db *sql.DB, schema string) (*protocol.ListTablesResponse, error) {
	if schema == "" {
		schema = currentSchema(ctx, db)
	}
	schema = strings.ToUpper(schema)
	if err := driver.ValidateIdentifier(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	query := `
		SELECT owner, table_name, 'TABLE' AS table_type FROM all_tables WHERE owner = :1
		UNION ALL
		SELECT owner, view_name, 'VIEW' AS table_type FROM all_views WHERE owner = :1
		ORDER BY table_name
	`
	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []protocol.TableInfo
	for rows.Next() {
		var tableSchema, tableName, tableType string
		if err := rows.Scan(&tableSchema, &tableName, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, protocol.TableInfo{Schema: tableSchema, Name: tableName, Type: tableType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return &protocol.ListTablesResponse{Tables: tables}, nil
}

// GetTable returns detailed metadata for a specific table.
func (d *Driver) GetTable(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetTableResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	var tableType string
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM all_tables WHERE owner = :1 AND table_name = :2`, schema, table).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists > 0 {
		tableType = "TABLE"
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM all_views WHERE owner = :1 AND view_name = :2`, schema, table).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check view existence: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("table not found: %s.%s", schema, table)
		}
		tableType = "VIEW"
	}

	columnsResp, err := d.GetColumns(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	pkResp, err := d.GetPrimaryKey(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	fkResp, err := d.GetForeignKeys(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	ucResp, err := d.GetUniqueConstraints(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}

	return &protocol.GetTableResponse{
		Table: protocol.TableDetailInfo{
			Schema:            schema,
			Name:              table,
			Type:              tableType,
			Columns:           columnsResp.Columns,
			PrimaryKey:        pkResp.PrimaryKey,
			ForeignKeys:       fkResp.ForeignKeys,
			UniqueConstraints: ucResp.UniqueConstraints,
		},
	}, nil
}

// GetColumns returns column metadata for a specific table.
func (d *Driver) GetColumns(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetColumnsResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			column_name,
			column_id,
			data_type,
			CASE WHEN nullable = 'Y' THEN 1 ELSE 0 END AS is_nullable,
			char_length,
			data_precision,
			data_scale,
			data_default
		FROM all_tab_columns
		WHERE owner = :1 AND table_name = :2
		ORDER BY column_id
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []protocol.ColumnInfo
	for rows.Next() {
		var name, dataType string
		var position, isNullable int
		var charLength, precision, scale sql.NullInt64
		var defaultValue sql.NullString

		if err := rows.Scan(&name, &position, &dataType, &isNullable, &charLength, &precision, &scale, &defaultValue); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := protocol.ColumnInfo{
			Name:       name,
			Position:   position,
			DataType:   dataType,
			IsNullable: isNullable == 1,
		}
		if charLength.Valid && charLength.Int64 > 0 {
			ml := int(charLength.Int64)
			col.MaxLength = &ml
		}
		if precision.Valid {
			p := int(precision.Int64)
			col.NumericPrecision = &p
		}
		if scale.Valid {
			s := int(scale.Int64)
			col.NumericScale = &s
		}
		if defaultValue.Valid {
			trimmed := strings.TrimSpace(defaultValue.String)
			if trimmed != "" {
				col.DefaultValue = &trimmed
				col.IsIdentity = strings.Contains(strings.ToUpper(trimmed), "ISEQ$$")
			}
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return &protocol.GetColumnsResponse{Columns: columns}, nil
}

// GetPrimaryKey returns the primary key constraint for a table.
func (d *Driver) GetPrimaryKey(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetPrimaryKeyResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT c.constraint_name, cc.column_name
		FROM all_constraints c
		JOIN all_cons_columns cc
			ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner
		WHERE c.owner = :1 AND c.table_name = :2 AND c.constraint_type = 'P'
		ORDER BY cc.position
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	defer rows.Close()

	var name string
	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key: %w", err)
	}
	if len(columns) == 0 {
		return &protocol.GetPrimaryKeyResponse{PrimaryKey: nil}, nil
	}

	return &protocol.GetPrimaryKeyResponse{PrimaryKey: &protocol.PrimaryKeyInfo{Name: name, Columns: columns}}, nil
}

// GetForeignKeys returns foreign key constraints for a table.
func (d *Driver) GetForeignKeys(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetForeignKeysResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			c.constraint_name,
			cc.column_name,
			cc.position,
			rc.owner AS ref_owner,
			rc.table_name AS ref_table,
			rcc.column_name AS ref_column,
			c.delete_rule
		FROM all_constraints c
		JOIN all_cons_columns cc
			ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner
		JOIN all_constraints rc
			ON c.r_constraint_name = rc.constraint_name AND c.r_owner = rc.owner
		JOIN all_cons_columns rcc
			ON rc.constraint_name = rcc.constraint_name AND rc.owner = rcc.owner AND rcc.position = cc.position
		WHERE c.owner = :1 AND c.table_name = :2 AND c.constraint_type = 'R'
		ORDER BY c.constraint_name, cc.position
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	fkMap := make(map[string]*protocol.ForeignKeyInfo)
	var order []string
	for rows.Next() {
		var name, col, refOwner, refTable, refCol, deleteRule string
		var position int
		if err := rows.Scan(&name, &col, &position, &refOwner, &refTable, &refCol, &deleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if _, ok := fkMap[name]; !ok {
			fkMap[name] = &protocol.ForeignKeyInfo{
				Name:             name,
				ReferencedSchema: refOwner,
				ReferencedTable:  refTable,
				OnDelete:         normalizeDeleteRule(deleteRule),
			}
			order = append(order, name)
		}
		fk := fkMap[name]
		fk.Columns = append(fk.Columns, col)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}

	var foreignKeys []protocol.ForeignKeyInfo
	for _, name := range order {
		foreignKeys = append(foreignKeys, *fkMap[name])
	}
	return &protocol.GetForeignKeysResponse{ForeignKeys: foreignKeys}, nil
}

// GetUniqueConstraints returns unique constraints for a table.
func (d *Driver) GetUniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetUniqueConstraintsResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT c.constraint_name, cc.column_name,
			CASE WHEN c.constraint_type = 'P' THEN 1 ELSE 0 END AS is_pk
		FROM all_constraints c
		JOIN all_cons_columns cc
			ON c.constraint_name = cc.constraint_name AND c.owner = cc.owner
		WHERE c.owner = :1 AND c.table_name = :2 AND c.constraint_type IN ('U', 'P')
		ORDER BY c.constraint_name, cc.position
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique constraints: %w", err)
	}
	defer rows.Close()

	ucMap := make(map[string]*protocol.UniqueConstraintInfo)
	var order []string
	for rows.Next() {
		var name, col string
		var isPK int
		if err := rows.Scan(&name, &col, &isPK); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint: %w", err)
		}
		if _, ok := ucMap[name]; !ok {
			ucMap[name] = &protocol.UniqueConstraintInfo{Name: name, IsPrimaryKey: isPK == 1}
			order = append(order, name)
		}
		ucMap[name].Columns = append(ucMap[name].Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unique constraints: %w", err)
	}

	var constraints []protocol.UniqueConstraintInfo
	for _, name := range order {
		constraints = append(constraints, *ucMap[name])
	}
	return &protocol.GetUniqueConstraintsResponse{UniqueConstraints: constraints}, nil
}

// GetIndexes returns index information for a table.
func (d *Driver) GetIndexes(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetIndexesResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			i.index_name,
			ic.column_name,
			ic.column_position,
			i.uniqueness,
			ic.descend
		FROM all_indexes i
		JOIN all_ind_columns ic
			ON i.index_name = ic.index_name AND i.owner = ic.index_owner
		WHERE i.table_owner = :1 AND i.table_name = :2
		ORDER BY i.index_name, ic.column_position
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	defer rows.Close()

	pkCols, err := d.pkColumnSet(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}

	idxMap := make(map[string]*protocol.IndexInfo)
	var order []string
	for rows.Next() {
		var name, col, uniqueness, descend string
		var position int
		if err := rows.Scan(&name, &col, &position, &uniqueness, &descend); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if _, ok := idxMap[name]; !ok {
			idxMap[name] = &protocol.IndexInfo{
				Name:     name,
				IsUnique: uniqueness == "UNIQUE",
				Type:     "BTREE",
			}
			order = append(order, name)
		}
		idxMap[name].Columns = append(idxMap[name].Columns, protocol.IndexColumnInfo{
			Name:         col,
			Position:     position,
			IsDescending: descend == "DESC",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}

	var indexes []protocol.IndexInfo
	for _, name := range order {
		idx := idxMap[name]
		idx.IsPrimaryKey = indexBacksPrimaryKey(idx.Columns, pkCols)
		indexes = append(indexes, *idx)
	}
	return &protocol.GetIndexesResponse{Indexes: indexes}, nil
}

func (d *Driver) pkColumnSet(ctx context.Context, db *sql.DB, schema, table string) (map[string]bool, error) {
	pk, err := d.GetPrimaryKey(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	if pk.PrimaryKey != nil {
		for _, c := range pk.PrimaryKey.Columns {
			set[c] = true
		}
	}
	return set, nil
}

func indexBacksPrimaryKey(cols []protocol.IndexColumnInfo, pkCols map[string]bool) bool {
	if len(pkCols) == 0 || len(cols) != len(pkCols) {
		return false
	}
	for _, c := range cols {
		if !pkCols[c.Name] {
			return false
		}
	}
	return true
}

// GetRowCount returns the row count for a table.
func (d *Driver) GetRowCount(ctx context.Context, db *sql.DB, schema, table string, exact bool) (*protocol.RowCountResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	if exact {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"."%s"`, schema, table)
		var count int64
		if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to get exact row count: %w", err)
		}
		return &protocol.RowCountResponse{RowCount: count, IsExact: true}, nil
	}

	var numRows sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT num_rows FROM all_tables WHERE owner = :1 AND table_name = :2`, schema, table).Scan(&numRows)
	if err != nil {
		return nil, fmt.Errorf("failed to get estimated row count: %w", err)
	}
	var estimate int64
	if numRows.Valid {
		estimate = numRows.Int64
	}
	return &protocol.RowCountResponse{RowCount: estimate, IsExact: false}, nil
}

// SampleRows returns sample rows from a table.
func (d *Driver) SampleRows(ctx context.Context, db *sql.DB, schema, table string, limit int) (*protocol.SampleRowsResponse, error) {
	schema, table = strings.ToUpper(schema), strings.ToUpper(table)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}
	limit = driver.NormalizeLimit(limit)

	columnsResp, err := d.GetColumns(ctx, db, schema, table)
	if err != nil {
		return nil, err
	}
	columnNames := make([]string, len(columnsResp.Columns))
	for i, col := range columnsResp.Columns {
		columnNames[i] = col.Name
	}

	query := fmt.Sprintf(`SELECT * FROM "%s"."%s" FETCH FIRST %d ROWS ONLY`, schema, table, limit)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sample rows: %w", err)
	}
	defer rows.Close()

	var resultRows [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columnNames))
		ptrs := make([]interface{}, len(columnNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = driver.ConvertValue(v)
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &protocol.SampleRowsResponse{Columns: columnNames, Rows: resultRows, RowCount: len(resultRows)}, nil
}

// GetDatabaseInfo returns database-level information.
func (d *Driver) GetDatabaseInfo(ctx context.Context, db *sql.DB) (*protocol.GetDatabaseInfoResponse, error) {
	var dbName, schema string
	err := db.QueryRowContext(ctx, `SELECT SYS_CONTEXT('USERENV', 'DB_NAME'), SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM dual`).Scan(&dbName, &schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get database info: %w", err)
	}
	version, err := d.ServerVersion(ctx, db)
	if err != nil {
		return nil, err
	}

	return &protocol.GetDatabaseInfoResponse{
		Database: protocol.DatabaseInfo{
			ProductName:    "Oracle Database",
			ProductVersion: version,
			DatabaseName:   dbName,
			DefaultSchema:  schema,
		},
	}, nil
}

// ServerVersion returns v$version's banner, e.g. "Oracle Database 19c
// Enterprise Edition Release 19.7.0.0.0 - Production", whose trailing
// dotted run the collector registry's version extraction treats as a
// 5-part Oracle-style tuple.
func (d *Driver) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var banner string
	err := db.QueryRowContext(ctx, `SELECT banner FROM v$version WHERE banner LIKE 'Oracle%'`).Scan(&banner)
	if err == nil {
		return banner, nil
	}
	// v$version requires privileges some connections lack; fall back to
	// PRODUCT_COMPONENT_VERSION, which is visible more broadly.
	err = db.QueryRowContext(ctx, `SELECT version FROM product_component_version WHERE product LIKE 'Oracle%'`).Scan(&banner)
	if err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return banner, nil
}

// Explain overrides BaseDriver's generic row-returning EXPLAIN: Oracle's
// plan is produced as a side effect (EXPLAIN PLAN FOR ...) and then read
// back from PLAN_TABLE, mirroring mssql.Driver.Explain's SET SHOWPLAN
// session-state override for the same reason: the dialect's plan
// mechanism isn't itself a query.
func (d *Driver) Explain(ctx context.Context, db *sql.DB, sqlQuery string, analyze bool) (*protocol.ExplainResponse, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	statementID := "gatewayd_" + strconv.FormatInt(int64(len(sqlQuery)), 10)

	if analyze {
		if _, err := conn.ExecContext(ctx, sqlQuery); err != nil {
			return nil, fmt.Errorf("failed to execute query for analyze: %w", err)
		}
	}

	explainSQL := fmt.Sprintf("EXPLAIN PLAN SET STATEMENT_ID = '%s' FOR %s", statementID, sqlQuery)
	if _, err := conn.ExecContext(ctx, explainSQL); err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	planQuery := fmt.Sprintf(`
		SELECT LPAD(' ', 2 * (level - 1)) || operation || NVL2(options, ' ' || options, '') || ' ' || object_name AS step
		FROM plan_table
		WHERE statement_id = '%s'
		START WITH id = 0
		CONNECT BY PRIOR id = parent_id AND statement_id = '%s'
		ORDER BY id
	`, statementID, statementID)
	rows, err := conn.QueryContext(ctx, planQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var step string
		if err := rows.Scan(&step); err != nil {
			return nil, fmt.Errorf("failed to scan plan step: %w", err)
		}
		plan = append(plan, strings.TrimRight(step, " "))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan: %w", err)
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM plan_table WHERE statement_id = '%s'`, statementID)); err != nil {
		return nil, fmt.Errorf("failed to clean up plan_table: %w", err)
	}

	return &protocol.ExplainResponse{Plan: plan, Analyzed: analyze}, nil
}

// GetColumnStats returns cardinality statistics for a column.
func (d *Driver) GetColumnStats(ctx context.Context, db *sql.DB, schema, table, column string, sampleSize int) (*protocol.ColumnStatsResponse, error) {
	schema, table, column = strings.ToUpper(schema), strings.ToUpper(table), strings.ToUpper(column)
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}
	if err := driver.ValidateIdentifier(column); err != nil {
		return nil, fmt.Errorf("invalid column: %w", err)
	}
	if sampleSize <= 0 {
		sampleSize = 5
	}

	statsQuery := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(DISTINCT "%s"), COUNT(*) - COUNT("%s")
		FROM "%s"."%s"
	`, column, column, schema, table)

	var totalCount, distinctCount, nullCount int64
	if err := db.QueryRowContext(ctx, statsQuery).Scan(&totalCount, &distinctCount, &nullCount); err != nil {
		return nil, fmt.Errorf("failed to get column stats: %w", err)
	}

	nonNullCount := totalCount - nullCount
	isUnique := nonNullCount > 0 && distinctCount == nonNullCount

	sampleQuery := fmt.Sprintf(`
		SELECT DISTINCT "%s" FROM "%s"."%s" WHERE "%s" IS NOT NULL FETCH FIRST %d ROWS ONLY
	`, column, schema, table, column, sampleSize)

	rows, err := db.QueryContext(ctx, sampleQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to get sample values: %w", err)
	}
	defer rows.Close()

	var sampleValues []interface{}
	for rows.Next() {
		var val interface{}
		if err := rows.Scan(&val); err != nil {
			return nil, fmt.Errorf("failed to scan sample value: %w", err)
		}
		sampleValues = append(sampleValues, driver.ConvertValue(val))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sample values: %w", err)
	}

	return &protocol.ColumnStatsResponse{
		TotalCount:    totalCount,
		DistinctCount: distinctCount,
		NullCount:     nullCount,
		IsUnique:      isUnique,
		SampleValues:  sampleValues,
	}, nil
}

// CheckValueOverlap checks how many values from the left column exist in the right column.
func (d *Driver) CheckValueOverlap(ctx context.Context, db *sql.DB, leftSchema, leftTable, leftColumn, rightSchema, rightTable, rightColumn string, sampleSize int) (*protocol.ValueOverlapResponse, error) {
	leftSchema, leftTable, leftColumn = strings.ToUpper(leftSchema), strings.ToUpper(leftTable), strings.ToUpper(leftColumn)
	rightSchema, rightTable, rightColumn = strings.ToUpper(rightSchema), strings.ToUpper(rightTable), strings.ToUpper(rightColumn)
	if err := driver.ValidateSchemaTable(leftSchema, leftTable); err != nil {
		return nil, fmt.Errorf("invalid left table: %w", err)
	}
	if err := driver.ValidateSchemaTable(rightSchema, rightTable); err != nil {
		return nil, fmt.Errorf("invalid right table: %w", err)
	}
	if err := driver.ValidateIdentifier(leftColumn); err != nil {
		return nil, fmt.Errorf("invalid left column: %w", err)
	}
	if err := driver.ValidateIdentifier(rightColumn); err != nil {
		return nil, fmt.Errorf("invalid right column: %w", err)
	}
	if sampleSize <= 0 {
		sampleSize = 1000
	}

	leftStatsQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT "%s") FROM "%s"."%s" WHERE "%s" IS NOT NULL`, leftColumn, leftSchema, leftTable, leftColumn)
	rightStatsQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT "%s") FROM "%s"."%s" WHERE "%s" IS NOT NULL`, rightColumn, rightSchema, rightTable, rightColumn)

	var leftTotalDistinct, rightTotalDistinct int64
	if err := db.QueryRowContext(ctx, leftStatsQuery).Scan(&leftTotalDistinct); err != nil {
		return nil, fmt.Errorf("failed to get left distinct count: %w", err)
	}
	if err := db.QueryRowContext(ctx, rightStatsQuery).Scan(&rightTotalDistinct); err != nil {
		return nil, fmt.Errorf("failed to get right distinct count: %w", err)
	}

	overlapQuery := fmt.Sprintf(`
		WITH left_sample AS (
			SELECT DISTINCT "%s" AS val FROM "%s"."%s" WHERE "%s" IS NOT NULL FETCH FIRST %d ROWS ONLY
		)
		SELECT
			(SELECT COUNT(*) FROM left_sample),
			(SELECT COUNT(*) FROM left_sample ls WHERE EXISTS (
				SELECT 1 FROM "%s"."%s" r WHERE r."%s" = ls.val
			))
		FROM dual
	`, leftColumn, leftSchema, leftTable, leftColumn, sampleSize, rightSchema, rightTable, rightColumn)

	var leftSampleSize, overlapCount int64
	if err := db.QueryRowContext(ctx, overlapQuery).Scan(&leftSampleSize, &overlapCount); err != nil {
		return nil, fmt.Errorf("failed to check value overlap: %w", err)
	}

	var overlapPercentage float64
	if leftSampleSize > 0 {
		overlapPercentage = float64(overlapCount) / float64(leftSampleSize) * 100.0
	}
	rightIsSuperset := leftSampleSize > 0 && overlapCount == leftSampleSize

	var leftTotalCount, rightTotalCount int64
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"."%s"`, leftSchema, leftTable)).Scan(&leftTotalCount); err != nil {
		return nil, fmt.Errorf("failed to get left count: %w", err)
	}
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"."%s"`, rightSchema, rightTable)).Scan(&rightTotalCount); err != nil {
		return nil, fmt.Errorf("failed to get right count: %w", err)
	}

	return &protocol.ValueOverlapResponse{
		LeftSampleSize:     leftSampleSize,
		LeftTotalDistinct:  leftTotalDistinct,
		RightTotalDistinct: rightTotalDistinct,
		OverlapCount:       overlapCount,
		OverlapPercentage:  overlapPercentage,
		RightIsSuperset:    rightIsSuperset,
		LeftIsUnique:       leftTotalDistinct == leftTotalCount,
		RightIsUnique:      rightTotalDistinct == rightTotalCount,
	}, nil
}

// ExecuteQuery executes a SQL query using the base driver implementation.
func (d *Driver) ExecuteQuery(ctx context.Context, db *sql.DB, sqlQuery string, args []interface{}) (*protocol.ExecuteQueryResponse, error) {
	return d.BaseDriver.ExecuteQuery(ctx, db, sqlQuery, args)
}

func currentSchema(ctx context.Context, db *sql.DB) string {
	var schema string
	if err := db.QueryRowContext(ctx, `SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM dual`).Scan(&schema); err != nil {
		return ""
	}
	return schema
}

func normalizeDeleteRule(rule string) string {
	switch strings.ToUpper(rule) {
	case "CASCADE":
		return "CASCADE"
	case "SET NULL":
		return "SET NULL"
	case "NO ACTION":
		return "NO ACTION"
	default:
		return rule
	}
}

// init registers the Oracle driver with the default registry.
func init() {
	driver.Register(New())
}
