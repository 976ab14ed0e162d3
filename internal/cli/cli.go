// internal/cli/cli.go
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/mailcheck/dnscheck"
	"github.com/dalemusser/mailcheck/internal/report"
	"github.com/dalemusser/mailcheck/isemail"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/pantry/version"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes.
const (
	ExitValid   = 0
	ExitInvalid = 1
	ExitUsage   = 2
)

// maxLine bounds one address line in --file input.
const maxLine = 64 * 1024

type options struct {
	file       string
	dns        bool
	strict     bool
	threshold  string
	format     string
	report     string
	nameserver string
	timeout    time.Duration
	verbose    bool
	version    bool
}

// newResolver builds the DNS collaborator for --dns. Tests replace it.
var newResolver = func(o options, logger *zap.Logger) (isemail.Resolver, func()) {
	r := dnscheck.New(dnscheck.Config{
		Timeout:    o.timeout,
		Nameserver: o.nameserver,
		Cache:      dnscheck.NewMemoryCache(0),
		CacheTTL:   time.Hour,
		Logger:     logger,
	})
	return r, func() { _ = r.Close() }
}

// Run is the mailcheck command. args exclude the program name. It returns
// the process exit code.
func Run(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var o options
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.file, "file", "f", "", "read addresses from file, one per line (- for stdin)")
	fs.BoolVar(&o.dns, "dns", false, "look up MX and address records for the domain")
	fs.BoolVar(&o.strict, "strict", false, "accept only addresses without any diagnosis")
	fs.StringVar(&o.threshold, "threshold", strconv.Itoa(int(isemail.DefaultThreshold)), "accept statuses below this (name or number)")
	fs.StringVarP(&o.format, "format", "o", "text", "output format: text, json or yaml")
	fs.StringVar(&o.report, "report", "", "also write a report to this .csv or .xlsx file")
	fs.StringVar(&o.nameserver, "nameserver", "", "DNS server host[:port] for --dns")
	fs.DurationVar(&o.timeout, "dns-timeout", 5*time.Second, "timeout per DNS query")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log DNS activity to stderr")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [address ...]\n\n", name)
		fmt.Fprintln(stderr, "Grades email addresses against RFC 5321 and RFC 5322.")
		fmt.Fprintln(stderr, "Exit status is 0 when every address is valid, 1 otherwise, 2 on errors.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitValid
		}
		return ExitUsage
	}
	if o.version {
		fmt.Fprintf(stdout, "%s %s\n", name, version.Get())
		return ExitValid
	}

	threshold, err := isemail.ParseCode(o.threshold)
	if err != nil {
		fmt.Fprintf(stderr, "%s: --threshold: %v\n", name, err)
		return ExitUsage
	}
	out, err := newPrinter(o.format)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return ExitUsage
	}
	if o.report != "" {
		if _, err := report.FormatFromPath(o.report); err != nil {
			fmt.Fprintf(stderr, "%s: --report: %v\n", name, err)
			return ExitUsage
		}
	}

	addrs := fs.Args()
	if o.file != "" {
		lines, err := readAddresses(o.file, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitUsage
		}
		addrs = append(addrs, lines...)
	}
	if len(addrs) == 0 {
		fs.Usage()
		return ExitUsage
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = logging.BuildLogger("debug", "dev"); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitUsage
		}
		defer func() { _ = logger.Sync() }()
	}

	vopts := []isemail.Option{isemail.WithLogger(logger)}
	if o.dns {
		r, closeFn := newResolver(o, logger)
		defer closeFn()
		vopts = append(vopts, isemail.WithResolver(r))
	}
	v := isemail.New(vopts...)
	opts := isemail.Options{CheckDNS: o.dns, Strict: o.strict, Threshold: threshold}

	ctx := context.Background()
	results := make([]isemail.Result, len(addrs))
	for i, a := range addrs {
		results[i] = v.Validate(ctx, a, opts)
	}

	if err := out(stdout, results); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return ExitUsage
	}
	if o.report != "" {
		if err := report.Save(o.report, results); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitUsage
		}
	}

	for _, r := range results {
		if !r.Valid {
			return ExitInvalid
		}
	}
	return ExitValid
}

// readAddresses returns the non-empty lines of path, or of stdin for "-".
// Lines are not trimmed beyond a trailing CR.
func readAddresses(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}
