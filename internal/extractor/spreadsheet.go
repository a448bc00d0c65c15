package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// SpreadsheetExtractor renders workbook sheets as markdown tables, one TEXT
// chunk per sheet with the sheet name as section. XLSX files are read
// natively; legacy XLS and OpenDocument sheets go through the Tika HTML
// rendition.
type SpreadsheetExtractor struct {
	tika tikaAPI
	log  *logrus.Logger
}

// NewSpreadsheetExtractor creates the stage. The Tika client handles the
// formats the native reader cannot.
func NewSpreadsheetExtractor(tika tikaAPI, log *logrus.Logger) *SpreadsheetExtractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SpreadsheetExtractor{tika: tika, log: log}
}

func (e *SpreadsheetExtractor) Name() string { return "spreadsheet_extractor" }

func (e *SpreadsheetExtractor) Mode() batch.Mode { return batch.Threads }

func (e *SpreadsheetExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	if f.Ext() == "xlsx" {
		return e.processNative(d, data)
	}
	return e.processTika(ctx, d, data)
}

// processNative reads the workbook directly.
func (e *SpreadsheetExtractor) processNative(d *doc.Document, data []byte) (*doc.Document, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindParse, e.Name(), err)
	}
	defer book.Close()

	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			e.log.WithError(err).WithField("sheet", sheet).Warn("sheet skipped")
			continue
		}
		md := rowsToMarkdown(rows)
		if md == "" {
			continue
		}
		d.Chunks = append(d.Chunks, doc.Chunk{Section: sheet, Text: md, Type: doc.ChunkText})
	}
	return d, nil
}

// processTika renders the workbook as HTML and rebuilds each sheet table.
func (e *SpreadsheetExtractor) processTika(ctx context.Context, d *doc.Document, data []byte) (*doc.Document, error) {
	html, err := e.tika.Parse(ctx, d.Filename(), data, OCRNone)
	if err != nil {
		return nil, err
	}
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindParse, e.Name(), err)
	}
	page.Find("table").Each(func(i int, table *goquery.Selection) {
		md := rowsToMarkdown(tableRows(table))
		if md == "" {
			return
		}
		// Tika emits the sheet name as a heading before each table.
		section := strings.TrimSpace(table.PrevAllFiltered("h1").First().Text())
		if section == "" {
			section = fmt.Sprintf("Sheet %d", i+1)
		}
		d.Chunks = append(d.Chunks, doc.Chunk{Section: section, Text: md, Type: doc.ChunkText})
	})
	return d, nil
}

// tableRows flattens an HTML table into cell text.
func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return rows
}

// rowsToMarkdown renders rows as a markdown table. Ragged rows are padded to
// the widest row, fully empty rows are dropped, and the first kept row
// serves as the header.
func rowsToMarkdown(rows [][]string) string {
	width := 0
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		kept = append(kept, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(kept) == 0 || width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = markdownCell(cells[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(kept[0])
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range kept[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

// markdownCell makes a cell value safe inside a table row.
func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.TrimSpace(s)
}
