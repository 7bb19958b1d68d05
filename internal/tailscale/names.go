package tailscale

import (
	"strings"
	"unicode"
)

// maxLabelLength is the DNS label length limit.
const maxLabelLength = 63

// hostNameSeparators are replaced with '-' when they appear inside a host name.
var hostNameSeparators = map[rune]bool{
	' ': true,
	'.': true,
	'@': true,
	'_': true,
}

// HasSuffix reports whether name ends with suffix on a DNS label boundary.
// Trailing dots on name and surrounding dots on suffix are ignored, so
// "foo.bar.com." has suffix "bar.com" but "foobar.com" does not.
func HasSuffix(name, suffix string) bool {
	name = strings.TrimRight(name, ".")
	suffix = strings.Trim(suffix, ".")
	base := strings.TrimSuffix(name, suffix)
	return len(base) < len(name) && strings.HasSuffix(base, ".")
}

// TrimSuffix removes suffix from name when HasSuffix holds, then drops any
// trailing dots. Names that don't carry the suffix only lose their trailing dots.
func TrimSuffix(name, suffix string) string {
	if HasSuffix(name, suffix) {
		name = strings.TrimRight(name, ".")
		name = strings.TrimSuffix(name, strings.Trim(suffix, "."))
	}
	return strings.TrimRight(name, ".")
}

// SanitizeHostName turns an OS host name into something usable as a DNS label.
func SanitizeHostName(hostName string) string {
	for _, local := range []string{".local", ".localdomain", ".lan"} {
		if trimmed, ok := strings.CutSuffix(hostName, local); ok {
			hostName = trimmed
			break
		}
	}

	runes := []rune(hostName)
	start, end := -1, -1
	for i, r := range runes {
		if isAlphanumeric(r) {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 {
		return ""
	}

	span := runes[start : end+1]
	var sb strings.Builder
	sb.Grow(len(span))
	for i, r := range span {
		boundary := i == 0 || i == len(span)-1
		switch {
		case !boundary && hostNameSeparators[r]:
			sb.WriteRune('-')
		case isAlphanumeric(r) || r == '-':
			sb.WriteRune(toASCIILower(r))
		default:
			sb.WriteRune(r)
		}
	}

	sanitized := []rune(sb.String())
	if len(sanitized) > maxLabelLength {
		sanitized = sanitized[:maxLabelLength]
	}
	return string(sanitized)
}

// ResolveDisplayName picks the label shown for a machine in the given tailnet.
func ResolveDisplayName(dnsName, hostName, magicDNSSuffix string) DisplayName {
	if short := TrimSuffix(dnsName, magicDNSSuffix); short != "" {
		return DisplayName{Kind: ShortLabel, Value: short}
	}
	return DisplayName{Kind: SanitizedHostName, Value: SanitizeHostName(hostName)}
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func toASCIILower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
