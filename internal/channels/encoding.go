package channels

import (
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// mojibakeThreshold is the replacement-rune share above which a payload is
// assumed to have been decoded with the wrong charset.
const mojibakeThreshold = 0.002

// DecodeText decodes an upstream payload. UTF-8 is attempted first; when the
// result is invalid or carries replacement-character markers, the payload is
// re-decoded as Windows-1252. The detection is best-effort and logged apart
// from parse failures so miscoded payloads remain discoverable.
func DecodeText(raw []byte, op string) string {
	if utf8.Valid(raw) && !looksMojibake(string(raw)) {
		return string(raw)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		// Windows-1252 decoding cannot actually fail, but keep the guard
		logrus.WithFields(logrus.Fields{
			"op":     op,
			"reason": "fallback_decode_failed",
		}).Warn("Payload could not be re-decoded, keeping primary encoding")
		return string(raw)
	}

	logrus.WithFields(logrus.Fields{
		"op":     op,
		"reason": "mojibake",
	}).Warn("Payload failed UTF-8 validation, fell back to Windows-1252")
	return string(decoded)
}

// looksMojibake reports whether a decoded string carries enough replacement
// characters to suggest a wrong-charset decode
func looksMojibake(s string) bool {
	if s == "" {
		return false
	}
	bad := strings.Count(s, string(utf8.RuneError))
	if bad == 0 {
		return false
	}
	return float64(bad)/float64(utf8.RuneCountInString(s)) >= mojibakeThreshold
}
