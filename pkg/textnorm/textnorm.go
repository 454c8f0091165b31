// Package textnorm normalises comparison input so that the oracle, the span
// reconciler and the caller all index the same sequence of characters.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/ContextDiff/pkg/errors"
)

// DefaultMaxLength is the per-text character limit used when none is configured.
const DefaultMaxLength = 20000

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	printer         = message.NewPrinter(language.English)
)

// Sanitize returns text in the canonical form used throughout the engine:
// NFKC-normalised, with control, format, private-use and unassigned
// characters removed (tab and line breaks excepted), CRLF and CR converted to
// LF, runs of spaces and tabs collapsed to one space, three or more newlines
// collapsed to two, and surrounding whitespace trimmed.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	text = norm.NFKC.String(text)
	text = strings.Map(keepRune, text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func keepRune(r rune) rune {
	switch r {
	case '\t', '\n', '\r':
		return r
	}
	if unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs) || !assigned(r) {
		return -1
	}
	return r
}

func assigned(r rune) bool {
	return r != utf8.RuneError && unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z, unicode.C)
}

// ValidateLength fails with ErrCodeTextTooLong when the named text has more
// than max characters. A non-positive max disables the check.
func ValidateLength(field, text string, max int) error {
	if max <= 0 {
		return nil
	}
	n := utf8.RuneCountInString(text)
	if n <= max {
		return nil
	}
	return errors.New(errors.ErrCodeTextTooLong, printer.Sprintf(
		"%s length (%d characters) exceeds maximum limit of %d characters, please shorten the text", field, n, max)).
		WithDetail(printer.Sprintf("length=%d", n))
}

//Personal.AI order the ending
