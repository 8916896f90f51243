package export

import (
	"errors"
	"strings"
)

// ErrNoHeaders is returned when a dataset has no columns to render.
var ErrNoHeaders = errors.New("dataset requires at least one header")

// Dataset is tabular export content. Rows are keyed by header; a missing key
// renders as an empty cell.
type Dataset struct {
	Title   string              `json:"title"`
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return ErrNoHeaders
	}
	return nil
}

// record returns row's cells in header order, each passed through cell.
func (d Dataset) record(row map[string]string, cell func(string) string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = cell(row[header])
	}
	return out
}

// neutralise keeps spreadsheet applications from evaluating user-supplied
// text such as project titles as a formula.
func neutralise(value string) string {
	if value == "" {
		return value
	}
	if strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return "'" + value
	}
	return value
}
