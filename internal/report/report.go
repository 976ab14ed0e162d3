// internal/report/report.go
package report

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dalemusser/mailcheck/isemail"
)

// Format is a report file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for formats other than csv and xlsx.
var ErrUnknownFormat = errors.New("report: unknown format")

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Summary counts a batch of results.
type Summary struct {
	Total   int            `json:"total" yaml:"total"`
	Valid   int            `json:"valid" yaml:"valid"`
	Invalid int            `json:"invalid" yaml:"invalid"`
	ByBand  map[string]int `json:"by_band" yaml:"by_band"`
}

// Summarize counts results per verdict and per status band.
func Summarize(results []isemail.Result) Summary {
	s := Summary{Total: len(results), ByBand: make(map[string]int)}
	for _, r := range results {
		if r.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		s.ByBand[r.Band.String()]++
	}
	return s
}

var columns = []string{"email", "valid", "status", "status_code", "band", "errors", "warnings", "local_part", "domain"}

// row flattens a result into report cells; code lists are joined with spaces.
func row(r isemail.Result) []string {
	return []string{
		r.Address,
		strconv.FormatBool(r.Valid),
		r.Status.String(),
		strconv.Itoa(int(r.Status)),
		r.Band.String(),
		joinCodes(r.Errors),
		joinCodes(r.Warnings),
		r.LocalPart,
		r.Domain,
	}
}

func joinCodes(codes []isemail.Code) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = c.String()
	}
	return strings.Join(names, " ")
}

// Write renders results in format f.
func Write(w io.Writer, f Format, results []isemail.Result) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, results)
	case FormatXLSX:
		return writeXLSX(w, results)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// Save writes the report to path, choosing the format from its extension.
func Save(path string, results []isemail.Result) (err error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: %w", cerr)
		}
	}()
	return Write(file, f, results)
}

// Serve sends the report as an attachment named "mailcheck.<format>".
func Serve(w http.ResponseWriter, f Format, results []isemail.Result) error {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mailcheck.%s"`, f))
	return Write(w, f, results)
}
