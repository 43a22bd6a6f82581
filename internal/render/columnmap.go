// Package render executes render-config queries and turns their results
// into text tables, self-contained chart HTML files, or rasterized images.
package render

import "github.com/chenjiandongx/gitv/internal/query"

// ColumnMap is one query result keyed by column name, holding
// JSON-compatible value sequences.
type ColumnMap map[string][]any

// NewColumnMap reshapes a materialized query result column-wise.
func NewColumnMap(result *query.Result) ColumnMap {
	cm := make(ColumnMap, len(result.Columns))

	for idx, column := range result.Columns {
		values := make([]any, 0, len(result.Rows))
		for _, row := range result.Rows {
			values = append(values, row[idx])
		}

		cm[column] = values
	}

	return cm
}

// Get returns the value sequence of a column.
func (c ColumnMap) Get(column string) ([]any, bool) {
	values, ok := c[column]

	return values, ok
}
