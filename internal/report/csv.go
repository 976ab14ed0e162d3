// internal/report/csv.go
package report

import (
	"encoding/csv"
	"io"

	"github.com/dalemusser/mailcheck/isemail"
)

func writeCSV(w io.Writer, results []isemail.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range results {
		cells := row(r)
		for i, c := range cells {
			cells[i] = neutralize(c)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// neutralize prefixes cells that spreadsheet programs would evaluate as a
// formula ("=", "+", "-", "@", tab, CR) with a single quote.
func neutralize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
