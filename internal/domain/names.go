package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var separators = regexp.MustCompile(`[-_]+`)

// NormalizeDeviceName lowercases name and turns every run of '-' or '_' into one space,
// so "My-Device_1" and "my device 1" compare equal.
func NormalizeDeviceName(name string) string {
	if name == "" {
		return ""
	}
	return separators.ReplaceAllString(strings.ToLower(name), " ")
}

// NormalizeFunctionName camel-cases a spoken function or variable name:
// "toggle led" becomes "toggleLed". The first word is kept as spoken.
func NormalizeFunctionName(name string) string {
	words := strings.Fields(name)
	var sb strings.Builder
	for i, w := range words {
		if i == 0 {
			sb.WriteString(w)
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		sb.WriteRune(unicode.ToUpper(r))
		sb.WriteString(w[size:])
	}
	return sb.String()
}

// SpokenName turns a cloud identifier such as "toggleLed" or "temp_c" into
// lowercase words suitable for speech.
func SpokenName(name string) string {
	var sb strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			sb.WriteRune(' ')
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			sb.WriteRune(' ')
		}
		sb.WriteRune(unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
