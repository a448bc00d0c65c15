package extractor

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dusk-indust/pdferret/internal/doc"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	require.NoError(t, book.SetSheetName("Sheet1", "Expenses"))
	require.NoError(t, book.SetCellValue("Expenses", "A1", "Item"))
	require.NoError(t, book.SetCellValue("Expenses", "B1", "Cost"))
	require.NoError(t, book.SetCellValue("Expenses", "A2", "Coffee"))
	require.NoError(t, book.SetCellValue("Expenses", "B2", 3.5))

	_, err := book.NewSheet("Empty")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))
	return buf.Bytes()
}

func TestSpreadsheetExtractor_NativeWorkbook(t *testing.T) {
	e := NewSpreadsheetExtractor(&stubTika{}, nil)

	d, err := e.Process(context.Background(), "budget.xlsx", newTestDoc("budget.xlsx", buildWorkbook(t)))

	require.NoError(t, err)
	texts := d.ChunksOfType(doc.ChunkText)
	require.Len(t, texts, 1, "sheets without content produce no chunk")
	assert.Equal(t, "Expenses", texts[0].Section)
	assert.Contains(t, texts[0].Text, "| Item | Cost |")
	assert.Contains(t, texts[0].Text, "| --- | --- |")
	assert.Contains(t, texts[0].Text, "| Coffee | 3.5 |")
}

func TestSpreadsheetExtractor_LegacyFormatsGoThroughTika(t *testing.T) {
	stub := &stubTika{parseFn: func(_ string, _ []byte, strategy OCRStrategy) (string, error) {
		assert.Equal(t, OCRNone, strategy)
		return `<html><body>
<table><tr><th>Region</th><th>Total</th></tr><tr><td>North</td><td>120</td></tr></table>
<h1>Q2</h1>
<table><tr><th>Region</th><th>Total</th></tr><tr><td>South</td><td>95</td></tr></table>
</body></html>`, nil
	}}
	e := NewSpreadsheetExtractor(stub, nil)

	d, err := e.Process(context.Background(), "legacy.xls", newTestDoc("legacy.xls", []byte("xls payload")))

	require.NoError(t, err)
	texts := d.ChunksOfType(doc.ChunkText)
	require.Len(t, texts, 2)
	assert.Equal(t, "Sheet 1", texts[0].Section, "tables without a heading get a positional name")
	assert.Contains(t, texts[0].Text, "| North | 120 |")
	assert.Equal(t, "Q2", texts[1].Section, "the nearest preceding heading names the sheet")
	assert.Contains(t, texts[1].Text, "| South | 95 |")
}

func TestRowsToMarkdown_PadsRaggedRows(t *testing.T) {
	md := rowsToMarkdown([][]string{
		{"Name", "Role", "Team"},
		{"", "", ""},
		{"Ada"},
		{"Grace", "Rear | Admiral"},
	})

	assert.Equal(t,
		"| Name | Role | Team |\n"+
			"| --- | --- | --- |\n"+
			"| Ada |  |  |\n"+
			`| Grace | Rear \| Admiral |  |`,
		md)
}

func TestRowsToMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", rowsToMarkdown(nil))
	assert.Equal(t, "", rowsToMarkdown([][]string{{"", ""}, {" "}}))
}
