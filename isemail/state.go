// isemail/state.go
package isemail

import "strings"

// elementTracker follows one component of the address. Elements are the
// dot separated pieces of the component; length counts octets in the
// current element only.
type elementTracker struct {
	text     strings.Builder
	elements []string
	length   int
}

func newElementTracker() elementTracker {
	return elementTracker{elements: []string{""}}
}

func (t *elementTracker) write(s string) {
	t.text.WriteString(s)
	t.elements[len(t.elements)-1] += s
}

// writeByte appends c and counts it against the current element.
func (t *elementTracker) writeByte(c byte) {
	t.write(string(c))
	t.length++
}

// next closes the current element after a dot.
func (t *elementTracker) next() {
	t.text.WriteByte('.')
	t.elements = append(t.elements, "")
	t.length = 0
}

func (t *elementTracker) first() bool {
	return len(t.elements) == 1
}

func (t *elementTracker) empty() bool {
	return t.text.Len() == 0
}

func (t *elementTracker) String() string {
	return t.text.String()
}

// parseState is everything one scan mutates. It is created per call and
// thrown away afterwards.
type parseState struct {
	in   string
	pos  int
	last byte
	diag Diagnosis

	ctx   lexContext
	prev  lexContext
	stack contextStack

	local   elementTracker
	domain  elementTracker
	literal strings.Builder

	// endOfElement is set once CFWS or a quoted string closes an element;
	// only a dot or the @ may follow.
	endOfElement  bool
	hyphen        bool
	literalClosed bool
	crlfCount     int
	tokenPrev     byte
}

func newParseState(in string) *parseState {
	return &parseState{
		in:     in,
		ctx:    ctxLocalPart,
		prev:   ctxLocalPart,
		stack:  contextStack{base: ctxLocalPart},
		local:  newElementTracker(),
		domain: newElementTracker(),
	}
}

func (st *parseState) emit(c Code) {
	st.diag.add(c)
}

func (st *parseState) failed() bool {
	return st.diag.HasErrors()
}

// enter pushes the current context and switches to c.
func (st *parseState) enter(c lexContext) {
	st.stack.push(st.ctx)
	st.ctx = c
}

// leave returns to the enclosing context, remembering where we came from.
func (st *parseState) leave() {
	st.prev = st.ctx
	st.ctx = st.stack.pop()
}

// takeLF consumes the LF that must follow a CR. It reports false when the
// CR is bare.
func (st *parseState) takeLF() bool {
	st.pos++
	return st.pos < len(st.in) && st.in[st.pos] == lf
}

// component returns the tracker for the part of the address being scanned.
func (st *parseState) component() *elementTracker {
	if st.stack.base == ctxDomain {
		return &st.domain
	}
	return &st.local
}
