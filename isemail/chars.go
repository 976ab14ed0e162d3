// isemail/chars.go
package isemail

const (
	cr   = '\r'
	lf   = '\n'
	sp   = ' '
	htab = '\t'
)

// isSpecial reports whether c is one of the RFC 5322 specials.
func isSpecial(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', ':', ';', '@', '\\', ',', '.', '"':
		return true
	}
	return false
}

// isPrintable reports visible US-ASCII (33-126).
func isPrintable(c byte) bool {
	return c >= 33 && c <= 126
}

func isWSP(c byte) bool {
	return c == sp || c == htab
}

// isObsNoWSCtl matches obs-NO-WS-CTL: US-ASCII control characters that do
// not include CR, LF or white space.
func isObsNoWSCtl(c byte) bool {
	return (c >= 1 && c <= 8) || c == 11 || c == 12 || (c >= 14 && c <= 31) || c == 127
}

func isAtext(c byte) bool {
	return isPrintable(c) && !isSpecial(c)
}

func isQtext(c byte) bool {
	if isPrintable(c) {
		return c != '\\' && c != '"'
	}
	return isObsNoWSCtl(c)
}

func isCtext(c byte) bool {
	if isPrintable(c) {
		return c != '(' && c != ')' && c != '\\'
	}
	return isObsNoWSCtl(c)
}

func isDtext(c byte) bool {
	if isPrintable(c) {
		return c != '[' && c != ']' && c != '\\'
	}
	return isObsNoWSCtl(c)
}

// isLetDig matches the characters a DNS label is built from.
func isLetDig(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
