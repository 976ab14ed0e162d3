// isemail/dns.go
package isemail

import (
	"context"

	"go.uber.org/zap"
)

// Resolver answers the DNS questions the validator asks. Implementations
// own their timeouts and retries; an error is treated as "no record".
type Resolver interface {
	// LookupMX returns the mail exchangers for domain.
	LookupMX(ctx context.Context, domain string) ([]string, error)
	// LookupAOrCNAME returns the addresses or canonical name for domain.
	LookupAOrCNAME(ctx context.Context, domain string) ([]string, error)
}

// checkDNS follows RFC 5321 section 5.1: look for MX records first, then
// fall back to the implicit MX of an address record. When no MX record
// settles the question, a top level domain used on its own is flagged.
func (v *Validator) checkDNS(ctx context.Context, out Outcome, diag *Diagnosis) {
	if out.IsLiteral() {
		return
	}

	domain := out.Domain
	single := len(out.Labels) == 1
	if single {
		// Top level domains only resolve when asked from the root.
		domain += "."
	}

	if v.lookup(ctx, domain, diag) {
		return
	}

	if single {
		diag.add(RFC5321TLD)
	}
	if len(out.Labels) > 0 && isDigits(out.Labels[len(out.Labels)-1]) {
		diag.add(RFC5321TLDNumeric)
	}
}

// lookup records DNS warnings and reports whether an MX record was found.
func (v *Validator) lookup(ctx context.Context, domain string, diag *Diagnosis) bool {
	if v.resolver == nil {
		return false
	}

	mx, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		v.logger.Debug("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		diag.add(DNSWarnNoRecord)
		return false
	}
	if len(mx) > 0 {
		return true
	}

	diag.add(DNSWarnNoMXRecord)
	hosts, err := v.resolver.LookupAOrCNAME(ctx, domain)
	if err != nil {
		v.logger.Debug("address lookup failed", zap.String("domain", domain), zap.Error(err))
	}
	if err != nil || len(hosts) == 0 {
		diag.add(DNSWarnNoRecord)
	}
	return false
}
