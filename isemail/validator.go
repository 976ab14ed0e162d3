// isemail/validator.go
// Package isemail checks email addresses against RFC 5321 and RFC 5322.
//
// Instead of a yes/no answer every address is graded: the scanner records a
// Code for each unusual construct it meets (comments, quoted strings,
// obsolete forms, address literals) and the highest code becomes the status.
// Callers pick how much they are willing to accept with a threshold, or ask
// for strict mode where only a plain RFC 5321 mailbox passes.
//
// Basic usage:
//
//	if !isemail.IsValid(addr) {
//	    return errors.New("bad address")
//	}
//
//	res := isemail.Validate(`"john smith"@example.com`)
//	fmt.Println(res.Status) // RFC5321_QUOTEDSTRING
//
// DNS checks need a Resolver:
//
//	v := isemail.New(isemail.WithResolver(r), isemail.WithLogger(logger))
//	res := v.Validate(ctx, addr, isemail.Options{CheckDNS: true})
package isemail

import (
	"context"

	"go.uber.org/zap"
)

// Options control a single validation.
type Options struct {
	// CheckDNS looks the domain up once the syntax is known to be sound.
	CheckDNS bool `json:"check_dns" yaml:"check_dns"`
	// Strict accepts only addresses with no diagnosis at all.
	Strict bool `json:"strict" yaml:"strict"`
	// Threshold bounds what passes outside strict mode: statuses below it
	// are accepted. Zero means DefaultThreshold.
	Threshold Code `json:"threshold" yaml:"threshold"`
}

// Result is the graded verdict on an address.
type Result struct {
	Address   string `json:"email" yaml:"email"`
	Valid     bool   `json:"valid" yaml:"valid"`
	Status    Code   `json:"status" yaml:"status"`
	Band      Band   `json:"band" yaml:"band"`
	Errors    []Code `json:"errors" yaml:"errors"`
	Warnings  []Code `json:"warnings" yaml:"warnings"`
	LocalPart string `json:"local_part" yaml:"local_part"`
	Domain    string `json:"domain" yaml:"domain"`
}

// Validator combines the syntax scan with an optional DNS check. It is safe
// for concurrent use.
type Validator struct {
	resolver Resolver
	logger   *zap.Logger
	defaults Options
	observer func(Result)
}

// Option configures a Validator.
type Option func(*Validator)

// WithResolver sets the DNS collaborator used when Options.CheckDNS is set.
func WithResolver(r Resolver) Option {
	return func(v *Validator) {
		v.resolver = r
	}
}

// WithLogger sets the logger. Only DNS failures are logged.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithDefaults sets the options used by Check and IsValid.
func WithDefaults(opts Options) Option {
	return func(v *Validator) {
		v.defaults = opts
	}
}

// WithObserver registers a function called with every result, e.g. to
// record metrics.
func WithObserver(fn func(Result)) Option {
	return func(v *Validator) {
		v.observer = fn
	}
}

// New creates a validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Defaults returns the options Check and IsValid use.
func (v *Validator) Defaults() Options {
	return v.defaults
}

// Validate grades address with the given options.
func (v *Validator) Validate(ctx context.Context, address string, opts Options) Result {
	out := Parse(address)
	diag := out.Diagnosis

	if opts.CheckDNS && !diag.HasErrors() {
		v.checkDNS(ctx, out, &diag)
	}

	res := Result{
		Address:   address,
		Valid:     diag.Accepts(opts.Threshold, opts.Strict),
		Status:    diag.Status(),
		Errors:    diag.Errors(),
		Warnings:  diag.Warnings(),
		LocalPart: out.LocalPart,
		Domain:    out.Domain,
	}
	res.Band = res.Status.Band()

	if v.observer != nil {
		v.observer(res)
	}
	return res
}

// Check grades address with the validator's default options.
func (v *Validator) Check(ctx context.Context, address string) Result {
	return v.Validate(ctx, address, v.defaults)
}

// IsValid reports whether address passes with the default options.
func (v *Validator) IsValid(ctx context.Context, address string) bool {
	return v.Check(ctx, address).Valid
}

var std = New()

// Validate grades address with default options and no DNS check.
func Validate(address string) Result {
	return std.Validate(context.Background(), address, Options{})
}

// IsValid reports whether address is acceptable under the default threshold.
func IsValid(address string) bool {
	return Validate(address).Valid
}
