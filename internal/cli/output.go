// internal/cli/output.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dalemusser/mailcheck/internal/report"
	"github.com/dalemusser/mailcheck/isemail"
	"gopkg.in/yaml.v3"
)

type printer func(w io.Writer, results []isemail.Result) error

// document is the json and yaml output.
type document struct {
	Results []isemail.Result `json:"results" yaml:"results"`
	Summary report.Summary   `json:"summary" yaml:"summary"`
}

func newPrinter(format string) (printer, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return printText, nil
	case "json":
		return printJSON, nil
	case "yaml", "yml":
		return printYAML, nil
	}
	return nil, fmt.Errorf("unknown --format %q (want text, json or yaml)", format)
}

// printText writes one tab-aligned line per address:
//
//	valid    DEPREC_CFWS_NEAR_AT  example((example))@fakedfake.co.uk  CFWS_COMMENT,DEPREC_CFWS_NEAR_AT
func printText(w io.Writer, results []isemail.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		verdict := "valid"
		if !r.Valid {
			verdict = "invalid"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", verdict, r.Status, printable(r.Address), codeList(r.Warnings))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, results []isemail.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Results: results, Summary: report.Summarize(results)})
}

func printYAML(w io.Writer, results []isemail.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Results: results, Summary: report.Summarize(results)}); err != nil {
		return err
	}
	return enc.Close()
}

func codeList(codes []isemail.Code) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

// printable quotes addresses containing control characters or spaces so
// each stays on its own line.
func printable(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] == 0x7f {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}
