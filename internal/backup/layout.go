package backup

import (
	"fmt"
	"strings"
)

const DefaultFormat = "yyyy-MM-dd-HH-mm-ss"

var tokens = map[string]string{
	"yyyy": "2006",
	"yy":   "06",
	"MM":   "01",
	"M":    "1",
	"dd":   "02",
	"d":    "2",
	"HH":   "15",
	"hh":   "03",
	"h":    "3",
	"mm":   "04",
	"m":    "4",
	"ss":   "05",
	"s":    "5",
	"fff":  "000",
	"ff":   "00",
	"f":    "0",
	"tt":   "PM",
}

// Layout converts a .NET style date format ("yyyy-MM-dd-HH-mm-ss") into a
// Go time layout. Only filesystem-safe punctuation may appear between tokens.
func Layout(format string) (string, error) {
	if format == "" {
		format = DefaultFormat
	}

	var b strings.Builder
	for i := 0; i < len(format); {
		c := format[i]

		if isLetter(c) {
			j := i
			for j < len(format) && format[j] == c {
				j++
			}
			run := format[i:j]
			layout, ok := tokens[run]
			if !ok {
				return "", fmt.Errorf("unsupported timestamp token %q in %q", run, format)
			}
			// Go only reads zeros as fractional seconds right after a dot and
			// when no digit follows.
			if c == 'f' && (i == 0 || format[i-1] != '.' || (j < len(format) && isLetter(format[j]))) {
				return "", fmt.Errorf("fraction token %q in %q must follow a '.' and be followed by punctuation or the end", run, format)
			}
			b.WriteString(layout)
			i = j
			continue
		}

		if !isSafePunct(c) {
			return "", fmt.Errorf("character %q not allowed in timestamp format %q", c, format)
		}
		b.WriteByte(c)
		i++
	}

	return b.String(), nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSafePunct(c byte) bool {
	switch c {
	case '-', '_', '.', '+', '~', '@':
		return true
	}
	return false
}
