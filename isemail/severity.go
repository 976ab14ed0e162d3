// isemail/severity.go
package isemail

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a graded diagnosis for an address. Codes are totally ordered: the
// status of an address is the highest code recorded while checking it, and
// the band a code falls into says how far from a plain RFC 5321 mailbox the
// address is.
type Code int

// Valid and DNS warnings.
const (
	Valid             Code = 0
	DNSWarnNoMXRecord Code = 5
	DNSWarnNoRecord   Code = 6
)

// Valid by RFC 5321 but unusual.
const (
	RFC5321TLD            Code = 9
	RFC5321TLDNumeric     Code = 10
	RFC5321QuotedString   Code = 11
	RFC5321AddressLiteral Code = 12
	RFC5321IPv6Deprecated Code = 13
)

// Comments and folding white space, valid in RFC 5322 headers.
const (
	CFWSComment Code = 17
	CFWSFWS     Code = 18
)

// Deprecated (obs-*) forms.
const (
	DeprecLocalPart  Code = 33
	DeprecFWS        Code = 34
	DeprecQText      Code = 35
	DeprecQP         Code = 36
	DeprecComment    Code = 37
	DeprecCText      Code = 38
	DeprecCFWSNearAt Code = 49
)

// Valid addr-spec by RFC 5322 only, not deliverable by RFC 5321.
const (
	RFC5322Domain         Code = 65
	RFC5322TooLong        Code = 66
	RFC5322LocalTooLong   Code = 67
	RFC5322DomainTooLong  Code = 68
	RFC5322LabelTooLong   Code = 69
	RFC5322DomainLiteral  Code = 70
	RFC5322DomLitObsDText Code = 71
	RFC5322IPv6GroupCount Code = 72
	RFC5322IPv62x2xColon  Code = 73
	RFC5322IPv6BadChar    Code = 74
	RFC5322IPv6MaxGroups  Code = 75
	RFC5322IPv6ColonStart Code = 76
	RFC5322IPv6ColonEnd   Code = 77
)

// Fatal errors. Any of these makes the address invalid.
const (
	ErrConsecutiveAts    Code = 128
	ErrExpectingDText    Code = 129
	ErrNoLocalPart       Code = 130
	ErrNoDomain          Code = 131
	ErrConsecutiveDots   Code = 132
	ErrATextAfterCFWS    Code = 133
	ErrATextAfterQS      Code = 134
	ErrATextAfterDomLit  Code = 135
	ErrExpectingQPair    Code = 136
	ErrExpectingAText    Code = 137
	ErrExpectingQText    Code = 138
	ErrExpectingCText    Code = 139
	ErrBackslashEnd      Code = 140
	ErrDotStart          Code = 141
	ErrDotEnd            Code = 142
	ErrDomainHyphenStart Code = 143
	ErrDomainHyphenEnd   Code = 144
	ErrUnclosedQuotedStr Code = 145
	ErrUnclosedComment   Code = 146
	ErrUnclosedDomLit    Code = 147
	ErrFWSCRLFx2         Code = 148
	ErrFWSCRLFEnd        Code = 149
	ErrCRNoLF            Code = 150
)

// Upper bound of each band.
const (
	MaxDNSWarn Code = 7
	MaxRFC5321 Code = 15
	MaxCFWS    Code = 31
	MaxDeprec  Code = 63
	MaxRFC5322 Code = 127
	MaxError   Code = 255
)

// DefaultThreshold accepts everything short of a fatal error.
const DefaultThreshold = MaxRFC5322

// Band groups codes of comparable significance.
type Band int

const (
	BandValid Band = iota
	BandDNSWarn
	BandRFC5321
	BandCFWS
	BandDeprec
	BandRFC5322
	BandError
)

var bandNames = [...]string{
	BandValid:   "VALID",
	BandDNSWarn: "DNSWARN",
	BandRFC5321: "RFC5321",
	BandCFWS:    "CFWS",
	BandDeprec:  "DEPREC",
	BandRFC5322: "RFC5322",
	BandError:   "ERR",
}

func (b Band) String() string {
	if b < 0 || int(b) >= len(bandNames) {
		return "Band(" + strconv.Itoa(int(b)) + ")"
	}
	return bandNames[b]
}

// Max returns the highest code belonging to the band.
func (b Band) Max() Code {
	switch b {
	case BandValid:
		return Valid
	case BandDNSWarn:
		return MaxDNSWarn
	case BandRFC5321:
		return MaxRFC5321
	case BandCFWS:
		return MaxCFWS
	case BandDeprec:
		return MaxDeprec
	case BandRFC5322:
		return MaxRFC5322
	default:
		return MaxError
	}
}

// MarshalText encodes the band by name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Band reports which band the code falls into.
func (c Code) Band() Band {
	switch {
	case c <= Valid:
		return BandValid
	case c <= MaxDNSWarn:
		return BandDNSWarn
	case c <= MaxRFC5321:
		return BandRFC5321
	case c <= MaxCFWS:
		return BandCFWS
	case c <= MaxDeprec:
		return BandDeprec
	case c <= MaxRFC5322:
		return BandRFC5322
	default:
		return BandError
	}
}

// IsFatal reports whether the code is in the error band.
func (c Code) IsFatal() bool {
	return c > MaxRFC5322
}

type codeInfo struct {
	name string
	desc string
}

var codeTable = map[Code]codeInfo{
	Valid:             {"VALID", "Address is valid"},
	DNSWarnNoMXRecord: {"DNSWARN_NO_MX_RECORD", "Couldn't find an MX record for this domain but an A-record does exist"},
	DNSWarnNoRecord:   {"DNSWARN_NO_RECORD", "Couldn't find an MX record or an A-record for this domain"},

	RFC5321TLD:            {"RFC5321_TLD", "Address is valid but at a Top Level Domain"},
	RFC5321TLDNumeric:     {"RFC5321_TLDNUMERIC", "Address is valid but the Top Level Domain is numeric"},
	RFC5321QuotedString:   {"RFC5321_QUOTEDSTRING", "Address is valid but contains a quoted string"},
	RFC5321AddressLiteral: {"RFC5321_ADDRESSLITERAL", "Address is valid but at a literal address not a domain"},
	RFC5321IPv6Deprecated: {"RFC5321_IPV6DEPRECATED", "Address is valid but contains a :: that only elides one zero group"},

	CFWSComment: {"CFWS_COMMENT", "Address contains comments"},
	CFWSFWS:     {"CFWS_FWS", "Address contains Folding White Space"},

	DeprecLocalPart:  {"DEPREC_LOCALPART", "The local part is in a deprecated form"},
	DeprecFWS:        {"DEPREC_FWS", "Address contains an obsolete form of Folding White Space"},
	DeprecQText:      {"DEPREC_QTEXT", "A quoted string contains a deprecated character"},
	DeprecQP:         {"DEPREC_QP", "A quoted pair contains a deprecated character"},
	DeprecComment:    {"DEPREC_COMMENT", "Address contains a comment in a position that is deprecated"},
	DeprecCText:      {"DEPREC_CTEXT", "A comment contains a deprecated character"},
	DeprecCFWSNearAt: {"DEPREC_CFWS_NEAR_AT", "Address contains a comment or Folding White Space around the @ sign"},

	RFC5322Domain:         {"RFC5322_DOMAIN", "Address is RFC 5322 compliant but contains domain characters that are not allowed by DNS"},
	RFC5322TooLong:        {"RFC5322_TOOLONG", "Address is too long"},
	RFC5322LocalTooLong:   {"RFC5322_LOCAL_TOOLONG", "The local part of the address is too long"},
	RFC5322DomainTooLong:  {"RFC5322_DOMAIN_TOOLONG", "The domain part is too long"},
	RFC5322LabelTooLong:   {"RFC5322_LABEL_TOOLONG", "The domain part contains an element that is too long"},
	RFC5322DomainLiteral:  {"RFC5322_DOMAINLITERAL", "The domain literal is not a valid RFC 5321 address literal"},
	RFC5322DomLitObsDText: {"RFC5322_DOMLIT_OBSDTEXT", "The domain literal is not a valid RFC 5321 address literal and it contains obsolete characters"},
	RFC5322IPv6GroupCount: {"RFC5322_IPV6_GRPCOUNT", "The IPv6 literal address contains the wrong number of groups"},
	RFC5322IPv62x2xColon:  {"RFC5322_IPV6_2X2XCOLON", "The IPv6 literal address contains too many :: sequences"},
	RFC5322IPv6BadChar:    {"RFC5322_IPV6_BADCHAR", "The IPv6 address contains an illegal group of characters"},
	RFC5322IPv6MaxGroups:  {"RFC5322_IPV6_MAXGRPS", "The IPv6 address has too many groups"},
	RFC5322IPv6ColonStart: {"RFC5322_IPV6_COLONSTRT", "IPv6 address starts with a single colon"},
	RFC5322IPv6ColonEnd:   {"RFC5322_IPV6_COLONEND", "IPv6 address ends with a single colon"},

	ErrConsecutiveAts:    {"ERR_CONSECUTIVEATS", "Address does not contain exactly one @ sign"},
	ErrExpectingDText:    {"ERR_EXPECTING_DTEXT", "A domain literal contains a character that is not allowed"},
	ErrNoLocalPart:       {"ERR_NOLOCALPART", "Address has no local part"},
	ErrNoDomain:          {"ERR_NODOMAIN", "Address has no domain part"},
	ErrConsecutiveDots:   {"ERR_CONSECUTIVEDOTS", "The address may not contain consecutive dots"},
	ErrATextAfterCFWS:    {"ERR_ATEXT_AFTER_CFWS", "Address contains text after a comment or Folding White Space"},
	ErrATextAfterQS:      {"ERR_ATEXT_AFTER_QS", "Address contains text after a quoted string"},
	ErrATextAfterDomLit:  {"ERR_ATEXT_AFTER_DOMLIT", "Extra characters were found after the end of the domain literal"},
	ErrExpectingQPair:    {"ERR_EXPECTING_QPAIR", "The address contains a character that is not allowed in a quoted pair"},
	ErrExpectingAText:    {"ERR_EXPECTING_ATEXT", "Address contains a character that is not allowed"},
	ErrExpectingQText:    {"ERR_EXPECTING_QTEXT", "A quoted string contains a character that is not allowed"},
	ErrExpectingCText:    {"ERR_EXPECTING_CTEXT", "A comment contains a character that is not allowed"},
	ErrBackslashEnd:      {"ERR_BACKSLASHEND", "The address can't end with a backslash"},
	ErrDotStart:          {"ERR_DOT_START", "Neither part of the address may begin with a dot"},
	ErrDotEnd:            {"ERR_DOT_END", "Neither part of the address may end with a dot"},
	ErrDomainHyphenStart: {"ERR_DOMAINHYPHENSTART", "A domain or subdomain cannot begin with a hyphen"},
	ErrDomainHyphenEnd:   {"ERR_DOMAINHYPHENEND", "A domain or subdomain cannot end with a hyphen"},
	ErrUnclosedQuotedStr: {"ERR_UNCLOSEDQUOTEDSTR", "Unclosed quoted string"},
	ErrUnclosedComment:   {"ERR_UNCLOSEDCOMMENT", "Unclosed comment"},
	ErrUnclosedDomLit:    {"ERR_UNCLOSEDDOMLIT", "Domain literal is missing its closing bracket"},
	ErrFWSCRLFx2:         {"ERR_FWS_CRLF_X2", "Folding White Space contains consecutive CRLF sequences"},
	ErrFWSCRLFEnd:        {"ERR_FWS_CRLF_END", "Folding White Space ends with a CRLF sequence"},
	ErrCRNoLF:            {"ERR_CR_NO_LF", "Address contains a carriage return that is not followed by a line feed"},
}

var codesByName = func() map[string]Code {
	m := make(map[string]Code, len(codeTable))
	for c, info := range codeTable {
		m[info.name] = c
	}
	return m
}()

// String returns the canonical name, e.g. "ERR_NOLOCALPART".
func (c Code) String() string {
	if info, ok := codeTable[c]; ok {
		return info.name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Description returns a human readable explanation of the code.
func (c Code) Description() string {
	if info, ok := codeTable[c]; ok {
		return info.desc
	}
	return "Unknown diagnosis"
}

// Known reports whether c is one of the defined codes.
func (c Code) Known() bool {
	_, ok := codeTable[c]
	return ok
}

// MarshalText encodes the code by its canonical name. Values without a
// name, which only occur as thresholds, are written as numbers.
func (c Code) MarshalText() ([]byte, error) {
	if !c.Known() {
		return []byte(strconv.Itoa(int(c))), nil
	}
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts either a name or a bare number.
func (c *Code) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	return c.UnmarshalText([]byte(strings.Trim(s, `"`)))
}

// UnmarshalText accepts a canonical name (case-insensitive) or a decimal value.
func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCode resolves a code from its canonical name or its numeric value.
// Numeric values only need to fall inside the scale; they are used as
// thresholds as often as they name a specific code.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Valid, fmt.Errorf("isemail: empty code")
	}
	if c, ok := codesByName[strings.ToUpper(s)]; ok {
		return c, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Valid, fmt.Errorf("isemail: unknown code %q", s)
	}
	if n < 0 || Code(n) > MaxError {
		return Valid, fmt.Errorf("isemail: code %d out of range", n)
	}
	return Code(n), nil
}

// AllCodes lists every defined code in ascending order.
func AllCodes() []Code {
	out := make([]Code, 0, len(codeTable))
	for c := Valid; c <= MaxError; c++ {
		if c.Known() {
			out = append(out, c)
		}
	}
	return out
}
