package ttl

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// literalEscaper applies Turtle ECHAR escaping inside "..." string literals.
var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
)

// escapeLiteral escapes s for use between the quotes of a Turtle string literal.
func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// collapseSpace replaces every run of whitespace in s with a single '_'.
func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// localName turns an arbitrary JSON key into the local part of a Turtle
// prefixed name. Whitespace runs become '_' and anything that is not a letter,
// digit, '_', '-' or an inner '.' is percent-encoded, so distinct inputs only
// meet when they differ in whitespace alone.
func localName(s string) string {
	s = collapseSpace(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for i, r := range s {
		first := i == 0
		last := i+utf8.RuneLen(r) == len(s)
		switch {
		case r == '-' && first, r == '.' && (first || last):
			percentEncode(&sb, r)
		case isLocalRune(r):
			sb.WriteRune(r)
		default:
			percentEncode(&sb, r)
		}
	}
	return sb.String()
}

func isLocalRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	case r == utf8.RuneError:
		return false
	case r >= 0xC0 && r != 0xD7 && r != 0xF7:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	default:
		return false
	}
}

func percentEncode(sb *strings.Builder, r rune) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	for _, b := range buf[:n] {
		fmt.Fprintf(sb, "%%%02X", b)
	}
}

// formatNumber renders a JSON number literal the way JavaScript's
// Number.prototype.toString does, which is also a valid Turtle numeric token.
// Values outside the float64 range keep their source form.
func formatNumber(lexical string) string {
	f, err := strconv.ParseFloat(lexical, 64)
	if err != nil {
		return lexical
	}
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// iriExcluded lists the characters that may not appear in a Turtle IRIREF.
const iriExcluded = "<>\"{}|^`\\"

func validateBaseURI(baseURI string) error {
	if baseURI == "" {
		return fmt.Errorf("%w: empty", ErrUnsupportedBaseURI)
	}
	for _, r := range baseURI {
		if r <= 0x20 || strings.ContainsRune(iriExcluded, r) {
			return fmt.Errorf("%w: %q contains %q", ErrUnsupportedBaseURI, baseURI, r)
		}
	}
	u, err := url.Parse(baseURI)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedBaseURI, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("%w: %q is not absolute", ErrUnsupportedBaseURI, baseURI)
	}
	return nil
}

func validateNamespace(ns string) error {
	switch ns {
	case PrefixRDF, PrefixRDFS, PrefixXSD:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidNamespace, ns)
	case "":
		return nil
	}

	for i, r := range ns {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= 0xC0 && unicode.IsLetter(r))
		switch {
		case i == 0 && !letter:
			return fmt.Errorf("%w: %q must start with a letter", ErrInvalidNamespace, ns)
		case letter, r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidNamespace, ns, r)
		}
	}
	if strings.HasSuffix(ns, ".") {
		return fmt.Errorf("%w: %q ends with '.'", ErrInvalidNamespace, ns)
	}
	return nil
}
