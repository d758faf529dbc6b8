package remarkable

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a display name for matching: non-breaking
// spaces become regular spaces, surrounding whitespace is trimmed, and
// the result is Unicode NFC. Names on the device come from several
// writers that disagree on composition form.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	name = strings.ReplaceAll(name, " ", " ")
	name = strings.TrimSpace(name)

	return norm.NFC.String(name)
}
