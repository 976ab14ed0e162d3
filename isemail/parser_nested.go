// isemail/parser_nested.go
package isemail

func (st *parseState) scanDomainLiteral(tok byte) {
	domain := &st.domain

	switch tok {
	case ']':
		// Once the address is already RFC 5322 only there is no point
		// grading the literal as an RFC 5321 address literal.
		if st.diag.maxWarning() < MaxDeprec {
			for _, c := range checkAddressLiteral(st.literal.String()) {
				st.emit(c)
			}
		} else {
			st.emit(RFC5322DomainLiteral)
		}
		st.leave()
		domain.writeByte(tok)
		st.literalClosed = true

	case '\\':
		st.emit(RFC5322DomLitObsDText)
		st.enter(ctxQuotedPair)

	case cr, sp, htab:
		if tok == cr && !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
		st.emit(CFWSFWS)
		st.enter(ctxFWS)
		st.tokenPrev = tok

	default:
		if tok > 127 || tok == 0 || tok == '[' {
			st.emit(ErrExpectingDText)
			return
		}
		if tok < 33 || tok == 127 {
			st.emit(RFC5322DomLitObsDText)
		}
		st.literal.WriteByte(tok)
		domain.writeByte(tok)
	}
}

func (st *parseState) scanQuotedString(tok byte) {
	local := &st.local

	switch tok {
	case '\\':
		st.enter(ctxQuotedPair)

	case cr, htab:
		if tok == cr && !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
		// Folded white space inside quotes is kept as a single space.
		st.emit(CFWSFWS)
		st.enter(ctxFWS)
		st.tokenPrev = tok
		local.writeByte(sp)

	case '"':
		st.leave()
		local.writeByte(tok)

	default:
		if tok > 127 || tok == 0 || tok == lf {
			st.emit(ErrExpectingQText)
			return
		}
		if tok < 32 || tok == 127 {
			st.emit(DeprecQText)
		}
		local.writeByte(tok)
	}
}

func (st *parseState) scanQuotedPair(tok byte) {
	if tok > 127 {
		st.emit(ErrExpectingQPair)
		return
	}
	if (tok < 32 && tok != htab) || tok == 127 {
		st.emit(DeprecQP)
	}

	st.leave()
	pair := string([]byte{'\\', tok})
	switch st.ctx {
	case ctxQuotedString:
		st.local.write(pair)
		st.local.length += 2
	case ctxDomainLiteral:
		// The pair is kept in the domain but not in the literal text, so
		// the literal is graded as a plain RFC 5322 literal.
		st.domain.write(pair)
		st.domain.length += 2
	}
}

func (st *parseState) scanComment(tok byte) {
	switch tok {
	case '(':
		st.enter(ctxComment)

	case ')':
		st.leave()

	case '\\':
		st.enter(ctxQuotedPair)

	case cr, sp, htab:
		if tok == cr && !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
		st.emit(CFWSFWS)
		st.enter(ctxFWS)
		st.tokenPrev = tok

	default:
		if tok > 127 || tok == 0 || tok == lf {
			st.emit(ErrExpectingCText)
			return
		}
		if tok < 32 || tok == 127 {
			st.emit(DeprecCText)
		}
	}
}

// scanFWS consumes folding white space. The first byte that is not part of
// the fold is scanned again in the enclosing context.
func (st *parseState) scanFWS(tok byte) {
	if st.tokenPrev == cr {
		if tok == cr {
			st.emit(ErrFWSCRLFx2)
			return
		}
		st.crlfCount++
		if st.crlfCount > 1 {
			st.emit(DeprecFWS)
		}
	}

	switch tok {
	case cr:
		if !st.takeLF() {
			st.emit(ErrCRNoLF)
			return
		}
	case sp, htab:
	default:
		if st.tokenPrev == cr {
			st.emit(ErrFWSCRLFEnd)
			return
		}
		st.crlfCount = 0
		st.leave()
		st.pos--
	}

	st.tokenPrev = tok
}
