package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fakeResolver map[string][]string

func (f fakeResolver) LookupMX(_ context.Context, domain string) ([]string, error) {
	return f[domain], nil
}

func (fakeResolver) LookupAOrCNAME(context.Context, string) ([]string, error) {
	return nil, nil
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run("mailcheck", args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"valid", []string{"fabien@symfony.com"}, ExitValid},
		{"one invalid", []string{"fabien@symfony.com", "@example.co.uk"}, ExitInvalid},
		{"strict rejects warnings", []string{"--strict", `"john"@example.com`}, ExitInvalid},
		{"threshold rejects comments", []string{"--threshold", "CFWS_FWS", "john(x)@example.com"}, ExitInvalid},
		{"threshold by number", []string{"--threshold", "63", "john(x)@example.com"}, ExitValid},
		{"no addresses", nil, ExitUsage},
		{"bad threshold", []string{"--threshold", "lenient", "a@b.c"}, ExitUsage},
		{"bad format", []string{"--format", "xml", "a@b.c"}, ExitUsage},
		{"bad report", []string{"--report", "out.pdf", "a@b.c"}, ExitUsage},
		{"unknown flag", []string{"--nope"}, ExitUsage},
		{"help", []string{"--help"}, ExitValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := run(t, "", tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRunTextOutput(t *testing.T) {
	code, out, _ := run(t, "", "fabien@symfony.com", "example((example))@fakedfake.co.uk", "example@")
	assert.Equal(t, ExitInvalid, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"valid", "VALID", "fabien@symfony.com"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"valid", "DEPREC_CFWS_NEAR_AT", "example((example))@fakedfake.co.uk", "CFWS_COMMENT,DEPREC_CFWS_NEAR_AT"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"invalid", "ERR_NODOMAIN", "example@"}, strings.Fields(lines[2]))
}

func TestRunQuotesControlCharacters(t *testing.T) {
	_, out, _ := run(t, "", "exampl\ne@example.co.uk")
	assert.Contains(t, out, `"exampl\ne@example.co.uk"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestRunJSONOutput(t *testing.T) {
	code, out, _ := run(t, "", "--format", "json", "fabien@symfony.com", "a..b@example.com")
	assert.Equal(t, ExitInvalid, code)

	var doc struct {
		Results []struct {
			Email  string   `json:"email"`
			Valid  bool     `json:"valid"`
			Status string   `json:"status"`
			Errors []string `json:"errors"`
		} `json:"results"`
		Summary struct {
			Total   int `json:"total"`
			Invalid int `json:"invalid"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "ERR_CONSECUTIVEDOTS", doc.Results[1].Status)
	assert.Equal(t, []string{"ERR_CONSECUTIVEDOTS"}, doc.Results[1].Errors)
	assert.Equal(t, 2, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.Invalid)
}

func TestRunYAMLOutput(t *testing.T) {
	code, out, _ := run(t, "", "-o", "yaml", "example@[IPv6:::1]")
	assert.Equal(t, ExitValid, code)

	var doc struct {
		Results []struct {
			Email    string   `yaml:"email"`
			Band     string   `yaml:"band"`
			Warnings []string `yaml:"warnings"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "RFC5321", doc.Results[0].Band)
	assert.Equal(t, []string{"RFC5321_ADDRESSLITERAL"}, doc.Results[0].Warnings)
}

func TestRunReadsFileAndStdin(t *testing.T) {
	code, out, _ := run(t, "fabien@symfony.com\r\n\nuser@example.com\n", "--file", "-")
	assert.Equal(t, ExitValid, code)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	path := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(path, []byte("@example.co.uk\n"), 0o600))
	code, out, _ = run(t, "", "-f", path, "fabien@symfony.com")
	assert.Equal(t, ExitInvalid, code)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	code, _, errOut := run(t, "", "-f", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "missing.txt")
}

func TestRunWritesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	code, _, _ := run(t, "", "--report", path, "fabien@symfony.com", "example@")
	assert.Equal(t, ExitInvalid, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "example@,false,ERR_NODOMAIN"))
}

func TestRunDNS(t *testing.T) {
	orig := newResolver
	t.Cleanup(func() { newResolver = orig })
	newResolver = func(options, *zap.Logger) (isemail.Resolver, func()) {
		return fakeResolver{"example.com": {"mx.example.com."}}, func() {}
	}

	code, out, _ := run(t, "", "--dns", "user@example.com", "user@nowhere.test")
	assert.Equal(t, ExitValid, code, "DNS warnings stay below the default threshold")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"valid", "VALID", "user@example.com"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "DNSWARN_NO_MX_RECORD,DNSWARN_NO_RECORD")

	code, _, _ = run(t, "", "--dns", "--strict", "user@nowhere.test")
	assert.Equal(t, ExitInvalid, code)
}

func TestRunVersion(t *testing.T) {
	code, out, _ := run(t, "", "--version")
	assert.Equal(t, ExitValid, code)
	assert.True(t, strings.HasPrefix(out, "mailcheck dev"))
}
