// isemail/parser.go
package isemail

import "strings"

// RFC 5321 section 4.5.3.1 size limits.
const (
	maxLocalPart = 64
	maxLabel     = 63
	maxDomain    = 255
	maxAddress   = 254
)

// Outcome is the syntax-only verdict on an address: the components as they
// were scanned and every code recorded on the way.
type Outcome struct {
	LocalPart string
	Domain    string
	// Labels are the dot separated elements of the domain.
	Labels []string
	// Literal holds the contents of a domain literal, brackets excluded.
	Literal   string
	Diagnosis Diagnosis
}

// IsLiteral reports whether the domain is a bracketed domain literal.
func (o Outcome) IsLiteral() bool {
	return strings.HasPrefix(o.Domain, "[")
}

// Parse scans an address one byte at a time and grades it. It performs no
// I/O and keeps no state between calls.
func Parse(address string) Outcome {
	var d Diagnosis
	switch {
	case address == "":
		d.add(ErrNoLocalPart)
		return Outcome{Diagnosis: d}
	case strings.Count(address, "@") != 1:
		d.add(ErrConsecutiveAts)
		return Outcome{Diagnosis: d}
	case strings.Count(address, "(") != strings.Count(address, ")"):
		d.add(ErrUnclosedComment)
		return Outcome{Diagnosis: d}
	}

	st := newParseState(address)
	st.scan()
	return st.outcome()
}

func (st *parseState) scan() {
	for st.pos = 0; st.pos < len(st.in); st.pos++ {
		tok := st.in[st.pos]
		st.last = tok

		switch st.ctx {
		case ctxLocalPart:
			st.scanLocalPart(tok)
		case ctxDomain:
			st.scanDomain(tok)
		case ctxDomainLiteral:
			st.scanDomainLiteral(tok)
		case ctxQuotedString:
			st.scanQuotedString(tok)
		case ctxQuotedPair:
			st.scanQuotedPair(tok)
		case ctxComment:
			st.scanComment(tok)
		case ctxFWS:
			st.scanFWS(tok)
		}

		if st.failed() {
			return
		}
	}
	st.finish()
}

func (st *parseState) scanLocalPart(tok byte) {
	local := &st.local

	switch tok {
	case '(':
		if local.length == 0 {
			if local.first() {
				st.emit(CFWSComment)
			} else {
				st.emit(DeprecComment)
			}
		} else {
			st.emit(CFWSComment)
			st.endOfElement = true
		}
		st.enter(ctxComment)

	case '.':
		if local.length == 0 {
			if local.first() {
				st.emit(ErrDotStart)
			} else {
				st.emit(ErrConsecutiveDots)
			}
			return
		}
		// A quoted string or CFWS before the dot is obs-local-part.
		if st.endOfElement {
			st.emit(DeprecLocalPart)
		}
		local.next()
		st.endOfElement = false

	case '"':
		if local.length != 0 {
			st.emit(ErrExpectingAText)
			return
		}
		if local.first() {
			st.emit(RFC5321QuotedString)
		} else {
			st.emit(DeprecLocalPart)
		}
		local.writeByte(tok)
		st.endOfElement = true
		st.enter(ctxQuotedString)

	case cr, sp, htab:
		if tok == cr && !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
		if local.length == 0 {
			if local.first() {
				st.emit(CFWSFWS)
			} else {
				st.emit(DeprecFWS)
			}
		} else {
			st.endOfElement = true
		}
		st.enter(ctxFWS)
		st.tokenPrev = tok

	case lf:
		st.bareLF(local)

	case '@':
		if local.empty() {
			st.emit(ErrNoLocalPart)
			return
		}
		if local.length == 0 {
			st.emit(ErrDotEnd)
			return
		}
		if local.text.Len() > maxLocalPart {
			st.emit(RFC5322LocalTooLong)
		}
		if st.prev == ctxComment || st.prev == ctxFWS {
			st.emit(DeprecCFWSNearAt)
		}
		st.ctx = ctxDomain
		st.prev = ctxLocalPart
		st.stack.reset(ctxDomain)
		st.endOfElement = false
		st.hyphen = false

	default:
		if st.endOfElement {
			st.atextAfterElement()
			return
		}
		if !isAtext(tok) {
			st.emit(ErrExpectingAText)
			return
		}
		st.prev = ctxLocalPart
		local.writeByte(tok)
	}
}

func (st *parseState) scanDomain(tok byte) {
	domain := &st.domain

	switch tok {
	case '(':
		if domain.length == 0 {
			if domain.first() {
				st.emit(DeprecCFWSNearAt)
			} else {
				st.emit(DeprecComment)
			}
		} else {
			st.emit(CFWSComment)
			st.endOfElement = true
		}
		st.enter(ctxComment)

	case '.':
		switch {
		case domain.length == 0 && domain.first():
			st.emit(ErrDotStart)
			return
		case domain.length == 0:
			st.emit(ErrConsecutiveDots)
			return
		case st.literalClosed:
			// A domain literal is the whole domain.
			st.emit(ErrATextAfterDomLit)
			return
		case st.hyphen:
			st.emit(ErrDomainHyphenEnd)
			return
		case domain.length > maxLabel:
			st.emit(RFC5322LabelTooLong)
		}
		domain.next()
		st.endOfElement = false

	case '[':
		if !domain.empty() {
			st.emit(ErrExpectingAText)
			return
		}
		domain.writeByte(tok)
		st.endOfElement = true
		st.enter(ctxDomainLiteral)

	case cr, sp, htab:
		if tok == cr && !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
		if domain.length == 0 {
			if domain.first() {
				st.emit(DeprecCFWSNearAt)
			} else {
				st.emit(DeprecFWS)
			}
		} else {
			st.emit(CFWSFWS)
			st.endOfElement = true
		}
		st.enter(ctxFWS)
		st.tokenPrev = tok

	case lf:
		st.bareLF(domain)

	default:
		if st.endOfElement {
			st.atextAfterElement()
			return
		}
		st.hyphen = false
		if !isPrintable(tok) || isSpecial(tok) {
			st.emit(ErrExpectingAText)
			return
		}
		if tok == '-' {
			if domain.length == 0 {
				st.emit(ErrDomainHyphenStart)
				return
			}
			st.hyphen = true
		} else if !isLetDig(tok) {
			st.emit(RFC5322Domain)
		}
		st.prev = ctxDomain
		domain.writeByte(tok)
	}
}

// atextAfterElement reports text that follows a closed element: CFWS, a
// quoted string or a domain literal may only be followed by a dot or the @.
func (st *parseState) atextAfterElement() {
	switch st.prev {
	case ctxQuotedString:
		st.emit(ErrATextAfterQS)
	case ctxDomainLiteral:
		st.emit(ErrATextAfterDomLit)
	default:
		st.emit(ErrATextAfterCFWS)
	}
}

// bareLF handles a line feed that is not part of a CRLF fold. Inside an
// element it breaks the element the way unfolded white space would.
func (st *parseState) bareLF(t *elementTracker) {
	if t.length > 0 || st.endOfElement {
		st.emit(ErrATextAfterCFWS)
		return
	}
	st.emit(ErrExpectingAText)
}

// finish runs the end-of-input checks. Only the first applicable error is
// reported; the length warnings are independent of each other. Input that
// ends in folding white space is judged by the context holding the fold.
func (st *parseState) finish() {
	open := st.ctx
	if open == ctxFWS {
		open = st.stack.top()
	}
	switch {
	case open == ctxQuotedString:
		st.emit(ErrUnclosedQuotedStr)
	case open == ctxQuotedPair:
		st.emit(ErrBackslashEnd)
	case open == ctxComment:
		st.emit(ErrUnclosedComment)
	case open == ctxDomainLiteral:
		st.emit(ErrUnclosedDomLit)
	case st.last == cr:
		st.emit(ErrFWSCRLFEnd)
	case st.domain.empty():
		st.emit(ErrNoDomain)
	case st.domain.length == 0:
		st.emit(ErrDotEnd)
	case st.hyphen:
		st.emit(ErrDomainHyphenEnd)
	}
	if st.failed() {
		return
	}

	if st.domain.text.Len() > maxDomain {
		st.emit(RFC5322DomainTooLong)
	}
	if st.local.text.Len()+1+st.domain.text.Len() > maxAddress {
		st.emit(RFC5322TooLong)
	}
	if st.domain.length > maxLabel {
		st.emit(RFC5322LabelTooLong)
	}
}

func (st *parseState) outcome() Outcome {
	labels := make([]string, len(st.domain.elements))
	copy(labels, st.domain.elements)
	return Outcome{
		LocalPart: st.local.String(),
		Domain:    st.domain.String(),
		Labels:    labels,
		Literal:   st.literal.String(),
		Diagnosis: st.diag,
	}
}
