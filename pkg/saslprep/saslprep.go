// Package saslprep prepares user names and passwords for SCRAM: the
// SASLprep profile of stringprep (RFC 4013, RFC 3454) followed by the
// protocol's own escaping of reserved characters.
//
// Strings are treated as queries, so unassigned code points are allowed.
package saslprep

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xdg-go/stringprep"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidUTF8 = errors.New("saslprep: invalid UTF-8")

// ProhibitedError reports a character the profile does not allow.  Index
// is the byte offset in the mapped and normalized string.
type ProhibitedError struct {
	Rune  rune
	Index int
	Table string
}

func (e *ProhibitedError) Error() string {
	return fmt.Sprintf("saslprep: prohibited character %U at offset %d (%s)", e.Rune, e.Index, e.Table)
}

// BidiError reports a string that breaks the RFC 3454 section 6 rules
type BidiError struct {
	Reason string
}

func (e *BidiError) Error() string {
	return "saslprep: " + e.Reason
}

// Escaper returns the replacement for a character that the protocol
// reserves, or false to leave it as is.
type Escaper func(r rune) (string, bool)

// EscapeSaslName escapes the two characters a SCRAM saslname reserves
func EscapeSaslName(r rune) (string, bool) {
	switch r {
	case ',':
		return "=2C", true
	case '=':
		return "=3D", true
	}

	return "", false
}

type prohibition struct {
	name string
	set  stringprep.Set
}

var prohibited = []prohibition{
	{"C.1.2", stringprep.TableC1_2},
	{"C.2.1", stringprep.TableC2_1},
	{"C.2.2", stringprep.TableC2_2},
	{"C.3", stringprep.TableC3},
	{"C.4", stringprep.TableC4},
	{"C.5", stringprep.TableC5},
	{"C.6", stringprep.TableC6},
	{"C.7", stringprep.TableC7},
	{"C.8", stringprep.TableC8},
	{"C.9", stringprep.TableC9},
}

// mapRune returns the replacement for r and whether r is mapped at all.
// B.1 characters vanish and non-ASCII spaces become U+0020.
func mapRune(r rune) (string, bool) {
	if r < utf8.RuneSelf {
		return "", false
	}
	if _, ok := stringprep.TableB1.Map(r); ok {
		return "", true
	}
	if stringprep.TableC1_2.Contains(r) {
		return " ", true
	}

	return "", false
}

// mapString applies mapRune, returning s itself when nothing is mapped
func mapString(s string) string {
	var b strings.Builder
	start := 0

	for i, r := range s {
		rep, ok := mapRune(r)
		if !ok {
			continue
		}
		if b.Cap() == 0 {
			b.Grow(len(s))
		}
		b.WriteString(s[start:i])
		b.WriteString(rep)
		start = i + utf8.RuneLen(r)
	}

	if b.Cap() == 0 {
		return s
	}

	b.WriteString(s[start:])
	return b.String()
}

func checkProhibited(s string) error {
	for i, r := range s {
		if r < utf8.RuneSelf {
			if r < 0x20 || r == 0x7f {
				return &ProhibitedError{Rune: r, Index: i, Table: "C.2.1"}
			}
			continue
		}
		for _, p := range prohibited {
			if p.set.Contains(r) {
				return &ProhibitedError{Rune: r, Index: i, Table: p.name}
			}
		}
	}

	return nil
}

func checkBidi(s string) error {
	var hasRandAL, hasL bool
	for _, r := range s {
		if stringprep.TableD1.Contains(r) {
			hasRandAL = true
		} else if stringprep.TableD2.Contains(r) {
			hasL = true
		}
	}

	if !hasRandAL {
		return nil
	}
	if hasL {
		return &BidiError{Reason: "string mixes left-to-right and right-to-left characters"}
	}

	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if !stringprep.TableD1.Contains(first) || !stringprep.TableD1.Contains(last) {
		return &BidiError{Reason: "right-to-left string must start and end with a right-to-left character"}
	}

	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}

// Prepare maps, normalizes (NFKC) and checks s.  The result is s itself,
// without allocation, when s is already prepared.
func Prepare(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	p := mapString(s)
	// ASCII is already in NFKC
	if !isASCII(p) && !norm.NFKC.IsNormalString(p) {
		p = norm.NFKC.String(p)
	}

	if err := checkProhibited(p); err != nil {
		return "", err
	}
	if err := checkBidi(p); err != nil {
		return "", err
	}

	return p, nil
}

// CheckString validates s and returns the byte offset of the first
// character that preparation or esc would change, or -1 if s can be sent
// verbatim.
func CheckString(s string, esc Escaper) (int, error) {
	if _, err := Prepare(s); err != nil {
		return -1, err
	}

	first := -1
	for i, r := range s {
		if _, ok := mapRune(r); ok {
			first = i
			break
		}
		if esc != nil {
			if _, ok := esc(r); ok {
				first = i
				break
			}
		}
	}

	if n := norm.NFKC.QuickSpanString(s); n < len(s) && (first < 0 || n < first) {
		first = n
	}

	return first, nil
}

// WriteString prepares s, escapes it with esc and writes the result to w.
// Runs of unchanged characters are written with a single call.
func WriteString(w io.StringWriter, s string, esc Escaper) (int, error) {
	p, err := Prepare(s)
	if err != nil {
		return 0, err
	}

	if esc == nil {
		return w.WriteString(p)
	}

	total, start := 0, 0
	for i, r := range p {
		rep, ok := esc(r)
		if !ok {
			continue
		}

		n, err := w.WriteString(p[start:i])
		total += n
		if err != nil {
			return total, err
		}
		n, err = w.WriteString(rep)
		total += n
		if err != nil {
			return total, err
		}
		start = i + utf8.RuneLen(r)
	}

	n, err := w.WriteString(p[start:])
	return total + n, err
}
