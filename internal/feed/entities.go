package feed

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var entityPattern = regexp.MustCompile(`&(#[0-9]+|#[xX][0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

var namedEntities = map[string]string{
	"amp":   "&",
	"lt":    "<",
	"gt":    ">",
	"quot":  `"`,
	"apos":  "'",
	"nbsp":  " ",
	"copy":  "©",
	"reg":   "®",
	"trade": "™",
	"euro":  "€",
	"pound": "£",
	"yen":   "¥",
	"cent":  "¢",
}

// DecodeHTMLEntities replaces the supported named entities and decimal or
// hexadecimal numeric references in a single left-to-right pass. Output of a
// replacement is never rescanned, so "&amp;lt;" becomes "&lt;". Unknown names
// and invalid code points are left untouched.
func DecodeHTMLEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityPattern.ReplaceAllStringFunc(s, func(match string) string {
		body := match[1 : len(match)-1]
		if body[0] != '#' {
			if v, ok := namedEntities[body]; ok {
				return v
			}
			return match
		}

		var (
			code int64
			err  error
		)
		if body[1] == 'x' || body[1] == 'X' {
			code, err = strconv.ParseInt(body[2:], 16, 32)
		} else {
			code, err = strconv.ParseInt(body[1:], 10, 32)
		}
		if err != nil || code == 0 || !utf8.ValidRune(rune(code)) {
			return match
		}
		return string(rune(code))
	})
}
