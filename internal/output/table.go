package output

// Table is a pre-rendered table for commands that compute their own
// columns instead of relying on reflection, such as task listings with
// derived duration columns.
type Table struct {
	Headers []string   `json:"headers" yaml:"headers"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// NewTable builds a Table from a header row and data rows.
func NewTable(headers []string, rows ...[]string) *Table {
	return &Table{Headers: headers, Rows: rows}
}
