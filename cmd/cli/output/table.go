package output

import (
	"encoding/json"
	"io"

	"github.com/crucial707/hci-inventory/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable prints a pretty table to w
func RenderTable(w io.Writer, headers []string, rows [][]interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := table.Row{}
	for _, h := range headers {
		headerRow = append(headerRow, h)
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	t.Render()
}

// RenderRecords prints inventory records as a table with a count footer.
func RenderRecords(w io.Writer, records []models.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, c := range models.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for _, r := range records {
		row := table.Row{}
		for _, v := range r.Values() {
			row = append(row, v)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"total", len(records)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "ip", Align: text.AlignLeft},
		{Name: "os", WidthMax: 30},
		{Name: "model", WidthMax: 40},
	})
	t.Render()
}

// RenderJSON prints v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
