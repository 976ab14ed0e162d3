package isemail

import "testing"

func TestCharacterClasses(t *testing.T) {
	for c := 0; c < 256; c++ {
		b := byte(c)
		if isAtext(b) && (isSpecial(b) || b <= 32 || b >= 127) {
			t.Errorf("isAtext(%d) accepts a special or control byte", c)
		}
		if isQtext(b) && (b == '"' || b == '\\' || b == 0 || b == '\n' || b == '\r' || b > 127) {
			t.Errorf("isQtext(%d) accepts a forbidden byte", c)
		}
		if isCtext(b) && (b == '(' || b == ')' || b == '\\') {
			t.Errorf("isCtext(%d) accepts a delimiter", c)
		}
		if isDtext(b) && (b == '[' || b == ']' || b == '\\') {
			t.Errorf("isDtext(%d) accepts a bracket", c)
		}
	}

	for _, c := range []byte("!#$%&'*+-/=?^_`{|}~aZ09") {
		if !isAtext(c) {
			t.Errorf("isAtext(%q) = false", c)
		}
	}
	for _, c := range []byte("()<>[]:;@\\,.\"") {
		if !isSpecial(c) {
			t.Errorf("isSpecial(%q) = false", c)
		}
	}
	if !isQtext(1) || !isCtext(127) || !isDtext(31) {
		t.Error("obsolete controls should be accepted")
	}
	if isDigits("") || !isDigits("123") || isDigits("12a") {
		t.Error("isDigits")
	}
}
