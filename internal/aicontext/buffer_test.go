package aicontext

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantis/gatewayd/internal/protocol"
)

func intPtr(v int64) *int64 { return &v }

func TestRecordExecute_RedactsSensitiveColumns(t *testing.T) {
	b := New()
	resp := &protocol.ExecuteResponse{
		Type: "tabular",
		Data: protocol.ExecuteResponseData{
			Columns: []string{"user_id", "password", "api_token", "note"},
			Rows: []protocol.Row{
				{"user_id": 1, "password": "hunter2", "api_token": "abc", "note": "x"},
			},
		},
	}

	b.RecordExecute("sess1", "SELECT * FROM users", resp)
	items := b.GetRecent("sess1", 10)
	require.Len(t, items, 1)

	row := items[0].SampleRows[0]
	assert.Equal(t, 1, row["user_id"])
	assert.Equal(t, "***", row["password"])
	assert.Equal(t, "***", row["api_token"])
	assert.Equal(t, "x", row["note"])
}

func TestRecordExecute_TruncatesLongCells(t *testing.T) {
	b := New()
	long := strings.Repeat("a", 100)
	resp := &protocol.ExecuteResponse{
		Data: protocol.ExecuteResponseData{
			Columns: []string{"note"},
			Rows:    []protocol.Row{{"note": long}},
		},
	}

	b.RecordExecute("sess1", "SELECT note FROM t", resp)
	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.Len(t, items[0].SampleRows[0]["note"], MaxCellLength)
}

func TestRecordExecute_CapsSampleRowsAtThree(t *testing.T) {
	b := New()
	rows := make([]protocol.Row, 5)
	for i := range rows {
		rows[i] = protocol.Row{"id": i}
	}
	resp := &protocol.ExecuteResponse{
		Data: protocol.ExecuteResponseData{Columns: []string{"id"}, Rows: rows},
	}

	b.RecordExecute("sess1", "SELECT id FROM t", resp)
	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.Len(t, items[0].SampleRows, MaxSampleRows)
}

func TestRecordExecute_CapsColumnsPerRow(t *testing.T) {
	b := New()
	cols := make([]string, 50)
	row := protocol.Row{}
	for i := range cols {
		cols[i] = fmt.Sprintf("col_%02d", i)
		row[cols[i]] = i
	}
	// A sensitive column past the cap must be dropped entirely, not stored.
	cols[49] = "password"
	delete(row, "col_49")
	row["password"] = "hunter2"

	resp := &protocol.ExecuteResponse{
		Data: protocol.ExecuteResponseData{Columns: cols, Rows: []protocol.Row{row}},
	}

	b.RecordExecute("sess1", "SELECT * FROM wide", resp)
	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.Len(t, items[0].Columns, MaxColumnsPerRow)
	assert.Len(t, items[0].SampleRows[0], MaxColumnsPerRow)
	assert.NotContains(t, items[0].SampleRows[0], "password")
}

func TestRecordExecute_UsesRowsAffectedWhenSet(t *testing.T) {
	b := New()
	resp := &protocol.ExecuteResponse{
		Metadata: protocol.ExecuteResponseMetadata{RowsAffected: intPtr(42)},
	}

	b.RecordExecute("sess1", "UPDATE t SET x=1", resp)
	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.Equal(t, 42, items[0].RowsAffected)
}

func TestBuffer_EvictsOldestPastTenItems(t *testing.T) {
	b := New()
	for i := 0; i < 15; i++ {
		b.RecordExecute("sess1", "SELECT "+strings.Repeat("x", i), &protocol.ExecuteResponse{})
	}

	items := b.GetRecent("sess1", 20)
	assert.Len(t, items, MaxItems)
	// Most recent first: the last recorded query had 14 x's.
	assert.Equal(t, "SELECT "+strings.Repeat("x", 14), items[0].SQL)
}

func TestRecordExecuteError_SanitizesAndCaps(t *testing.T) {
	b := New()
	err := errors.New("error: error: connection failed password=hunter2 token=abc123")
	b.RecordExecuteError("sess1", "SELECT 1", err)

	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.Equal(t, "ERROR", items[0].Type)
	assert.NotContains(t, items[0].Error, "hunter2")
	assert.NotContains(t, items[0].Error, "abc123")
	assert.False(t, strings.HasPrefix(items[0].Error, "error:"))
}

func TestRecordExecuteError_CapsLength(t *testing.T) {
	b := New()
	err := errors.New(strings.Repeat("z", 1000))
	b.RecordExecuteError("sess1", "SELECT 1", err)

	items := b.GetRecent("sess1", 1)
	require.Len(t, items, 1)
	assert.LessOrEqual(t, len(items[0].Error), MaxErrorLength)
}

func TestGetRecent_UnknownSessionReturnsNil(t *testing.T) {
	b := New()
	assert.Nil(t, b.GetRecent("nope", 10))
}

func TestGetRecent_LimitClampedToMax(t *testing.T) {
	b := New()
	for i := 0; i < 10; i++ {
		b.RecordExecute("sess1", "q", &protocol.ExecuteResponse{})
	}
	items := b.GetRecent("sess1", 1000)
	assert.Len(t, items, MaxItems)
}

func TestClear(t *testing.T) {
	b := New()
	b.RecordExecute("sess1", "SELECT 1", &protocol.ExecuteResponse{})
	require.Len(t, b.GetRecent("sess1", 10), 1)

	b.Clear("sess1")
	assert.Nil(t, b.GetRecent("sess1", 10))
}

func TestIsSensitiveColumn(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWD", true},
		{"access_token", true},
		{"api_secret", true},
		{"secret_key", true},
		{"credential_id", true},
		{"user_id", false},
		{"note", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isSensitiveColumn(tt.name), tt.name)
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"connection failed", "connection failed"},
		{"error: connection failed", "connection failed"},
		{"error: error: error: timeout", "timeout"},
		{"password=hunter2 in dsn", "password=*** in dsn"},
		{"Token=abc123;host=x", "Token=***;host=x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeError(tt.input), tt.input)
	}
}
