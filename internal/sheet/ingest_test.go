package sheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook creates an in-memory xlsx with the given rows on the
// default worksheet and returns its bytes.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func previewService() *Service {
	return &Service{sampleSize: 10, batchSize: 200}
}

func TestAnalyzeWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Product", "Q1", "Q2", "Revenue__sum(Q1,Q2)"},
		{"Widget", 100, 200, nil},
		{"Gadget", 50, 75, nil},
	})

	a, err := analyzeWorkbook(data, "")
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", a.worksheet)
	require.Len(t, a.columns, 4)
	assert.Equal(t, ColumnSpec{Name: "product", Type: TypeString}, a.columns[0])
	assert.Equal(t, ColumnSpec{Name: "q1", Type: TypeInteger}, a.columns[1])
	assert.Equal(t, ColumnSpec{Name: "revenue", Type: TypeFloat, SumOf: []string{"q1", "q2"}}, a.columns[3])
	assert.Len(t, a.dataRows, 2)
}

func TestAnalyzeWorkbook_BlankRowsDropped(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"", "", ""},
		{"name", "score"},
		{"", ""},
		{"alice", 5},
	})

	a, err := analyzeWorkbook(data, "")
	require.NoError(t, err)
	assert.Equal(t, "name", a.columns[0].Name)
	assert.Len(t, a.dataRows, 1)
}

func TestAnalyzeWorkbook_EmptyWorksheet(t *testing.T) {
	data := buildWorkbook(t, nil)
	_, err := analyzeWorkbook(data, "")
	assert.ErrorIs(t, err, ErrEmptyWorksheet)
}

func TestAnalyzeWorkbook_WorksheetNotFound(t *testing.T) {
	data := buildWorkbook(t, [][]any{{"a"}, {1}})
	_, err := analyzeWorkbook(data, "Missing")
	var notFound *WorksheetNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Missing", notFound.Worksheet)
}

func TestAnalyzeWorkbook_InvalidFile(t *testing.T) {
	_, err := analyzeWorkbook([]byte("not a workbook"), "")
	assert.Error(t, err)
}

func TestPreviewWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Product", "Q1", "Q2", "Revenue__sum(Q1,Q2)"},
		{"Widget", 100, 200, nil},
		{"Gadget", 50, 75, nil},
		{"Doohickey", 10, 20, nil},
	})

	result, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{
		SheetName:  "budget",
		SampleSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "budget", result.SheetName)
	assert.Equal(t, 3, result.DetectedRows)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.SampleRows, 2)

	first := result.SampleRows[0]
	assert.Equal(t, "Widget", first["product"])
	assert.Equal(t, int64(100), first["q1"])
	assert.Equal(t, 300.0, first["revenue"])
	assert.Equal(t, 125.0, result.SampleRows[1]["revenue"])
}

func TestPreviewWorkbook_DefaultSheetName(t *testing.T) {
	data := buildWorkbook(t, [][]any{{"a"}, {1}})
	result, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{})
	require.NoError(t, err)
	assert.Regexp(t, `^import_\d+$`, result.SheetName)
}

func TestPreviewWorkbook_SampleClamped(t *testing.T) {
	rows := [][]any{{"n"}}
	for i := 0; i < 150; i++ {
		rows = append(rows, []any{i})
	}
	data := buildWorkbook(t, rows)

	result, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{SampleSize: 500})
	require.NoError(t, err)
	assert.Len(t, result.SampleRows, maxSampleSize)
	assert.Equal(t, 150, result.DetectedRows)
}

func TestPreviewWorkbook_NonNumericSumWarns(t *testing.T) {
	// Mixed column: inference falls back to string, so the sum over it
	// fails on the non-numeric row. Preview keeps the row, nulls the
	// derived value and records a warning.
	data := buildWorkbook(t, [][]any{
		{"label", "amount", "total__sum(amount)"},
		{"ok", "5", nil},
		{"bad", "n/a", nil},
	})

	result, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{SampleSize: 10})
	require.NoError(t, err)
	require.Len(t, result.SampleRows, 2)

	assert.Equal(t, 5.0, result.SampleRows[0]["total"])
	assert.Nil(t, result.SampleRows[1]["total"])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "total")
	assert.Contains(t, result.Warnings[0], "row 3")
}

func TestPreviewWorkbook_DuplicateHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Revenue", "revenue"},
		{1, 2},
	})

	result, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{})
	require.NoError(t, err)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "revenue", result.Columns[0].Name)
	assert.Equal(t, "revenue_2", result.Columns[1].Name)
}

func TestPreviewWorkbook_UnknownSumSource(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"a", "total__sum(x,y)"},
		{1, nil},
	})

	_, err := previewService().PreviewWorkbook(context.Background(), data, UploadOptions{})
	var unknown *UnknownSumSourceError
	require.ErrorAs(t, err, &unknown)
}
