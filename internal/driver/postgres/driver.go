// Package postgres provides a PostgreSQL driver implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/protocol"
)

// Driver implements the driver.Driver interface for PostgreSQL.
type Driver struct {
	driver.BaseDriver
}

// New creates a new PostgreSQL driver.
func New() *Driver {
	return &Driver{
		BaseDriver: driver.NewBaseDriver("postgres"),
	}
}

// Connect establishes a connection to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, connectionString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ListSchemas returns all schemas in the database.
func (d *Driver) ListSchemas(ctx context.Context, db *sql.DB) (*protocol.ListSchemasResponse, error) {
	query := `
		SELECT
			schema_name,
			CASE WHEN schema_name = current_schema() THEN true ELSE false END AS is_default
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []protocol.SchemaInfo
	for rows.Next() {
		var name string
		var isDefault bool
		if err := rows.Scan(&name, &isDefault); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		schemas = append(schemas, protocol.SchemaInfo{Name: name, IsDefault: isDefault})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}

	return &protocol.ListSchemasResponse{Schemas: schemas}, nil
}

// ListTables returns all tables in the specified schema.
func (d *Driver) ListTables(ctx context.Context, db *sql.DB, schema string) (*protocol.ListTablesResponse, error) {
	if schema == "" {
		schema = "public"
	}
	if err := driver.ValidateIdentifier(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	query := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
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
		tables = append(tables, protocol.TableInfo{
			Schema: tableSchema,
			Name:   tableName,
			Type:   normalizeTableType(tableType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return &protocol.ListTablesResponse{Tables: tables}, nil
}

// GetTable returns detailed metadata for a specific table.
func (d *Driver) GetTable(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetTableResponse, error) {
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	tableInfoQuery := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	`
	var tableSchema, tableName, tableType string
	err := db.QueryRowContext(ctx, tableInfoQuery, schema, table).Scan(&tableSchema, &tableName, &tableType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("table not found: %s.%s", schema, table)
		}
		return nil, fmt.Errorf("failed to get table info: %w", err)
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
			Schema:            tableSchema,
			Name:              tableName,
			Type:              normalizeTableType(tableType),
			Columns:           columnsResp.Columns,
			PrimaryKey:        pkResp.PrimaryKey,
			ForeignKeys:       fkResp.ForeignKeys,
			UniqueConstraints: ucResp.UniqueConstraints,
		},
	}, nil
}

// GetColumns returns column metadata for a specific table.
func (d *Driver) GetColumns(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetColumnsResponse, error) {
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			column_name,
			ordinal_position,
			data_type,
			CASE WHEN is_nullable = 'YES' THEN true ELSE false END AS is_nullable,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []protocol.ColumnInfo
	for rows.Next() {
		var col protocol.ColumnInfo
		var maxLength, precision, scale sql.NullInt64
		var defaultValue sql.NullString

		if err := rows.Scan(
			&col.Name, &col.Position, &col.DataType, &col.IsNullable,
			&maxLength, &precision, &scale, &defaultValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		if maxLength.Valid && maxLength.Int64 > 0 {
			ml := int(maxLength.Int64)
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
			col.IsIdentity = strings.Contains(defaultValue.String, "nextval(")
			col.DefaultValue = &defaultValue.String
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
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT tc.constraint_name, kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
			ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	defer rows.Close()

	var name string
	var columns []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&name, &colName); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		columns = append(columns, colName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key: %w", err)
	}
	if len(columns) == 0 {
		return &protocol.GetPrimaryKeyResponse{PrimaryKey: nil}, nil
	}

	return &protocol.GetPrimaryKeyResponse{
		PrimaryKey: &protocol.PrimaryKeyInfo{Name: name, Columns: columns},
	}, nil
}

// GetForeignKeys returns foreign key constraints for a table.
func (d *Driver) GetForeignKeys(ctx context.Context, db *sql.DB, schema, table string) (*protocol.GetForeignKeysResponse, error) {
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			con.conname,
			att.attname AS column_name,
			fnsp.nspname AS referenced_schema,
			fcl.relname AS referenced_table,
			fatt.attname AS referenced_column,
			con.confdeltype,
			con.confupdtype,
			u.ord
		FROM pg_constraint con
		JOIN pg_class cl ON con.conrelid = cl.oid
		JOIN pg_namespace nsp ON cl.relnamespace = nsp.oid
		JOIN pg_class fcl ON con.confrelid = fcl.oid
		JOIN pg_namespace fnsp ON fcl.relnamespace = fnsp.oid,
		LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS u(attnum, fattnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		JOIN pg_attribute fatt ON fatt.attrelid = con.confrelid AND fatt.attnum = u.fattnum
		WHERE nsp.nspname = $1 AND cl.relname = $2 AND con.contype = 'f'
		ORDER BY con.conname, u.ord
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	fkMap := make(map[string]*protocol.ForeignKeyInfo)
	var order []string
	for rows.Next() {
		var name, col, refSchema, refTable, refCol, delAction, updAction string
		var ord int
		if err := rows.Scan(&name, &col, &refSchema, &refTable, &refCol, &delAction, &updAction, &ord); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if _, ok := fkMap[name]; !ok {
			fkMap[name] = &protocol.ForeignKeyInfo{
				Name:             name,
				ReferencedSchema: refSchema,
				ReferencedTable:  refTable,
				OnDelete:         normalizeRefAction(delAction),
				OnUpdate:         normalizeRefAction(updAction),
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
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			tc.constraint_name,
			kc.column_name,
			CASE WHEN tc.constraint_type = 'PRIMARY KEY' THEN true ELSE false END AS is_pk
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
			ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type IN ('UNIQUE', 'PRIMARY KEY')
		ORDER BY tc.constraint_name, kc.ordinal_position
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
		var isPK bool
		if err := rows.Scan(&name, &col, &isPK); err != nil {
			return nil, fmt.Errorf("failed to scan unique constraint: %w", err)
		}
		if _, ok := ucMap[name]; !ok {
			ucMap[name] = &protocol.UniqueConstraintInfo{Name: name, IsPrimaryKey: isPK}
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
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	query := `
		SELECT
			i.relname AS index_name,
			a.attname AS column_name,
			k.ord,
			ix.indisunique,
			ix.indisprimary,
			am.amname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam,
		LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname, k.ord
	`
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	defer rows.Close()

	idxMap := make(map[string]*protocol.IndexInfo)
	var order []string
	for rows.Next() {
		var name, col, amName string
		var ord int
		var isUnique, isPK bool
		if err := rows.Scan(&name, &col, &ord, &isUnique, &isPK, &amName); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if _, ok := idxMap[name]; !ok {
			idxMap[name] = &protocol.IndexInfo{
				Name:         name,
				IsUnique:     isUnique,
				IsPrimaryKey: isPK,
				Type:         strings.ToUpper(amName),
			}
			order = append(order, name)
		}
		idxMap[name].Columns = append(idxMap[name].Columns, protocol.IndexColumnInfo{
			Name:     col,
			Position: ord,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}

	var indexes []protocol.IndexInfo
	for _, name := range order {
		indexes = append(indexes, *idxMap[name])
	}
	return &protocol.GetIndexesResponse{Indexes: indexes}, nil
}

// GetRowCount returns the row count for a table.
func (d *Driver) GetRowCount(ctx context.Context, db *sql.DB, schema, table string, exact bool) (*protocol.RowCountResponse, error) {
	if err := driver.ValidateSchemaTable(schema, table); err != nil {
		return nil, err
	}

	if exact {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %q.%q`, schema, table)
		var count int64
		if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to get exact row count: %w", err)
		}
		return &protocol.RowCountResponse{RowCount: count, IsExact: true}, nil
	}

	query := `
		SELECT reltuples::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`
	var estimate int64
	if err := db.QueryRowContext(ctx, query, schema, table).Scan(&estimate); err != nil {
		return nil, fmt.Errorf("failed to get estimated row count: %w", err)
	}
	if estimate < 0 {
		estimate = 0
	}
	return &protocol.RowCountResponse{RowCount: estimate, IsExact: false}, nil
}

// SampleRows returns sample rows from a table.
func (d *Driver) SampleRows(ctx context.Context, db *sql.DB, schema, table string, limit int) (*protocol.SampleRowsResponse, error) {
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

	query := fmt.Sprintf(`SELECT * FROM %q.%q LIMIT %d`, schema, table, limit)
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
	query := `
		SELECT version(), current_database(), current_schema()
	`
	var version, dbName, defaultSchema string
	if err := db.QueryRowContext(ctx, query).Scan(&version, &dbName, &defaultSchema); err != nil {
		return nil, fmt.Errorf("failed to get database info: %w", err)
	}

	return &protocol.GetDatabaseInfoResponse{
		Database: protocol.DatabaseInfo{
			ProductName:    "PostgreSQL",
			ProductVersion: version,
			DatabaseName:   dbName,
			DefaultSchema:  defaultSchema,
		},
	}, nil
}

// ServerVersion returns the leading token of PostgreSQL's server_version
// setting, e.g. "16.2", which the collector registry's version extraction
// parses directly as a dotted tuple.
func (d *Driver) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT split_part(current_setting('server_version'), ' ', 1)").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return version, nil
}

// GetColumnStats returns cardinality statistics for a column.
func (d *Driver) GetColumnStats(ctx context.Context, db *sql.DB, schema, table, column string, sampleSize int) (*protocol.ColumnStatsResponse, error) {
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
		SELECT
			COUNT(*) AS total_count,
			COUNT(DISTINCT %q) AS distinct_count,
			COUNT(*) - COUNT(%q) AS null_count
		FROM %q.%q
	`, column, column, schema, table)

	var totalCount, distinctCount, nullCount int64
	if err := db.QueryRowContext(ctx, statsQuery).Scan(&totalCount, &distinctCount, &nullCount); err != nil {
		return nil, fmt.Errorf("failed to get column stats: %w", err)
	}

	nonNullCount := totalCount - nullCount
	isUnique := nonNullCount > 0 && distinctCount == nonNullCount

	sampleQuery := fmt.Sprintf(`
		SELECT DISTINCT %q FROM %q.%q WHERE %q IS NOT NULL LIMIT %d
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

	leftStatsQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT %q) FROM %q.%q WHERE %q IS NOT NULL`, leftColumn, leftSchema, leftTable, leftColumn)
	rightStatsQuery := fmt.Sprintf(`SELECT COUNT(DISTINCT %q) FROM %q.%q WHERE %q IS NOT NULL`, rightColumn, rightSchema, rightTable, rightColumn)

	var leftTotalDistinct, rightTotalDistinct int64
	if err := db.QueryRowContext(ctx, leftStatsQuery).Scan(&leftTotalDistinct); err != nil {
		return nil, fmt.Errorf("failed to get left distinct count: %w", err)
	}
	if err := db.QueryRowContext(ctx, rightStatsQuery).Scan(&rightTotalDistinct); err != nil {
		return nil, fmt.Errorf("failed to get right distinct count: %w", err)
	}

	overlapQuery := fmt.Sprintf(`
		WITH left_sample AS (
			SELECT DISTINCT %q AS val FROM %q.%q WHERE %q IS NOT NULL LIMIT %d
		),
		overlap AS (
			SELECT ls.val FROM left_sample ls
			WHERE EXISTS (SELECT 1 FROM %q.%q r WHERE r.%q = ls.val)
		)
		SELECT (SELECT COUNT(*) FROM left_sample), (SELECT COUNT(*) FROM overlap)
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

	leftCountQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %q.%q`, leftSchema, leftTable)
	rightCountQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %q.%q`, rightSchema, rightTable)

	var leftTotalCount, rightTotalCount int64
	if err := db.QueryRowContext(ctx, leftCountQuery).Scan(&leftTotalCount); err != nil {
		return nil, fmt.Errorf("failed to get left count: %w", err)
	}
	if err := db.QueryRowContext(ctx, rightCountQuery).Scan(&rightTotalCount); err != nil {
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

func normalizeTableType(t string) string {
	switch strings.ToUpper(t) {
	case "BASE TABLE":
		return "TABLE"
	case "VIEW":
		return "VIEW"
	case "FOREIGN":
		return "FOREIGN TABLE"
	default:
		return t
	}
}

func normalizeRefAction(action string) string {
	switch action {
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	case "r":
		return "RESTRICT"
	case "a":
		return "NO ACTION"
	default:
		return action
	}
}

// init registers the PostgreSQL driver with the default registry.
func init() {
	driver.Register(New())
}
