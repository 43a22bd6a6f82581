package render

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chenjiandongx/gitv/internal/query"
)

// RenderTable prints a materialized query result as a text table.
func RenderTable(w io.Writer, result *query.Result) {
	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(result.Columns))
	for _, column := range result.Columns {
		header = append(header, column)
	}

	writer.AppendHeader(header)

	for _, row := range result.Rows {
		cells := make(table.Row, 0, len(row))
		cells = append(cells, row...)
		writer.AppendRow(cells)
	}

	writer.Render()
}
