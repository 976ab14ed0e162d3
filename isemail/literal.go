// isemail/literal.go
package isemail

import (
	"regexp"
	"strings"
)

var (
	ipv4Tail = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	ipv6Hex  = regexp.MustCompile(`^[0-9A-Fa-f]{0,4}$`)
)

const (
	ipv6Tag       = "IPv6:"
	ipv6MaxGroups = 8
)

// checkAddressLiteral grades the contents of a domain literal against the
// RFC 5321 address-literal grammar (section 4.1.3) and the RFC 4291 text
// form of IPv6 addresses. It never produces a fatal code.
func checkAddressLiteral(lit string) []Code {
	if loc := ipv4Tail.FindStringIndex(lit); loc != nil {
		if loc[0] == 0 {
			return []Code{RFC5321AddressLiteral}
		}
		// An embedded IPv4 tail stands for the last two IPv6 groups.
		lit = lit[:loc[0]] + "0:0"
	}

	if len(lit) < len(ipv6Tag) || !strings.EqualFold(lit[:len(ipv6Tag)], ipv6Tag) {
		return []Code{RFC5322DomainLiteral}
	}

	addr := lit[len(ipv6Tag):]
	groups := strings.Split(addr, ":")
	var codes []Code

	if idx := strings.Index(addr, "::"); idx < 0 {
		if len(groups) != ipv6MaxGroups {
			codes = append(codes, RFC5322IPv6GroupCount)
		}
	} else if idx != strings.LastIndex(addr, "::") {
		codes = append(codes, RFC5322IPv62x2xColon)
	} else {
		maxGroups := ipv6MaxGroups
		// A leading or trailing :: splits off an extra empty group.
		if idx == 0 || idx == len(addr)-2 {
			maxGroups++
		}
		switch {
		case len(groups) > maxGroups:
			codes = append(codes, RFC5322IPv6MaxGroups)
		case len(groups) == maxGroups:
			codes = append(codes, RFC5321IPv6Deprecated)
		}
	}

	switch {
	case strings.HasPrefix(addr, ":") && !strings.HasPrefix(addr, "::"):
		codes = append(codes, RFC5322IPv6ColonStart)
	case strings.HasSuffix(addr, ":") && !strings.HasSuffix(addr, "::"):
		codes = append(codes, RFC5322IPv6ColonEnd)
	case !allHexGroups(groups):
		codes = append(codes, RFC5322IPv6BadChar)
	}

	if len(codes) == 0 {
		codes = append(codes, RFC5321AddressLiteral)
	}
	return codes
}

func allHexGroups(groups []string) bool {
	for _, g := range groups {
		if !ipv6Hex.MatchString(g) {
			return false
		}
	}
	return true
}
