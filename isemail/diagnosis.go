// isemail/diagnosis.go
package isemail

// Diagnosis is the ordered list of codes recorded while checking one
// address. Duplicates are kept; the status is the highest code recorded.
type Diagnosis struct {
	codes []Code
}

func (d *Diagnosis) add(c Code) {
	d.codes = append(d.codes, c)
}

// Codes returns every recorded code in emission order.
func (d Diagnosis) Codes() []Code {
	out := make([]Code, len(d.codes))
	copy(out, d.codes)
	return out
}

// Status is the highest recorded code, or Valid when nothing was recorded.
func (d Diagnosis) Status() Code {
	status := Valid
	for _, c := range d.codes {
		if c > status {
			status = c
		}
	}
	return status
}

// HasErrors reports whether a fatal code was recorded.
func (d Diagnosis) HasErrors() bool {
	_, ok := d.Fatal()
	return ok
}

// HasWarnings reports whether any non-fatal code was recorded.
func (d Diagnosis) HasWarnings() bool {
	for _, c := range d.codes {
		if !c.IsFatal() {
			return true
		}
	}
	return false
}

// Fatal returns the first fatal code recorded. Scanning stops at the first
// one, so in practice there is at most one.
func (d Diagnosis) Fatal() (Code, bool) {
	for _, c := range d.codes {
		if c.IsFatal() {
			return c, true
		}
	}
	return Valid, false
}

// Errors returns the fatal codes in emission order.
func (d Diagnosis) Errors() []Code {
	return d.filter(true)
}

// Warnings returns the non-fatal codes in emission order.
func (d Diagnosis) Warnings() []Code {
	return d.filter(false)
}

func (d Diagnosis) filter(fatal bool) []Code {
	out := []Code{}
	for _, c := range d.codes {
		if c.IsFatal() == fatal {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether c was recorded at least once.
func (d Diagnosis) Contains(c Code) bool {
	for _, got := range d.codes {
		if got == c {
			return true
		}
	}
	return false
}

func (d Diagnosis) maxWarning() Code {
	highest := Valid
	for _, c := range d.codes {
		if !c.IsFatal() && c > highest {
			highest = c
		}
	}
	return highest
}

// Accepts applies the decision rule. A fatal code always rejects. In strict
// mode nothing but Valid passes; otherwise the status must be below the
// threshold. A zero threshold means DefaultThreshold and thresholds are
// capped at MaxRFC5322.
func (d Diagnosis) Accepts(threshold Code, strict bool) bool {
	if d.HasErrors() {
		return false
	}
	status := d.Status()
	if strict {
		return status == Valid
	}
	return status < normalizeThreshold(threshold)
}

func normalizeThreshold(t Code) Code {
	switch {
	case t <= Valid:
		return DefaultThreshold
	case t > MaxRFC5322:
		return MaxRFC5322
	default:
		return t
	}
}
