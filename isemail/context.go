// isemail/context.go
package isemail

// lexContext is where the scanner currently is inside an address.
type lexContext int

const (
	ctxLocalPart lexContext = iota
	ctxDomain
	ctxDomainLiteral
	ctxQuotedString
	ctxQuotedPair
	ctxComment
	ctxFWS
)

func (c lexContext) String() string {
	switch c {
	case ctxLocalPart:
		return "local-part"
	case ctxDomain:
		return "domain"
	case ctxDomainLiteral:
		return "domain-literal"
	case ctxQuotedString:
		return "quoted-string"
	case ctxQuotedPair:
		return "quoted-pair"
	case ctxComment:
		return "comment"
	default:
		return "fws"
	}
}

// contextStack records where to resume after a nested context closes. The
// component being scanned (local part or domain) sits at the bottom and is
// returned whenever the stack runs dry.
type contextStack struct {
	base   lexContext
	frames []lexContext
}

func (s *contextStack) push(c lexContext) {
	s.frames = append(s.frames, c)
}

func (s *contextStack) pop() lexContext {
	if len(s.frames) == 0 {
		return s.base
	}
	c := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return c
}

// top is the context a close would return to.
func (s *contextStack) top() lexContext {
	if len(s.frames) == 0 {
		return s.base
	}
	return s.frames[len(s.frames)-1]
}

// reset drops every frame and rebases the stack on a new component.
func (s *contextStack) reset(base lexContext) {
	s.base = base
	s.frames = s.frames[:0]
}
