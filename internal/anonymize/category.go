package anonymize

import "strings"

// Category is the kind of sensitive data a raw string carries.
type Category int

const (
	CategoryOther Category = iota
	CategoryIPAddress
	CategoryDomain
	CategoryEmail
	CategoryURL
	CategoryFileHash
)

func (c Category) String() string {
	switch c {
	case CategoryIPAddress:
		return "ip_address"
	case CategoryDomain:
		return "domain"
	case CategoryEmail:
		return "email"
	case CategoryURL:
		return "url"
	case CategoryFileHash:
		return "file_hash"
	case CategoryOther:
		return "other"
	}
	return "unknown"
}

// Detect classifies value into exactly one category. The checks run in a
// fixed order and the first match wins:
//
//  1. four all-numeric dot-separated segments  → IP address
//  2. colon-separated hex groups              → IP address
//  3. local@domain                            → email
//  4. http:// or https:// prefix              → URL
//  5. 32, 40 or 64 hex characters             → file hash
//  6. anything else containing a dot          → domain
//  7. everything else                         → other (left untouched)
//
// A token with too few segments to be an IPv4 address, such as "10.0.0",
// falls through to domain. Four numeric segments with an octet above 255 are
// still classified as an IP address so that the IP strategy replaces them
// with a placeholder instead of passing them through.
func Detect(value string) Category {
	if value == "" {
		return CategoryOther
	}
	switch {
	case hasIPv4Shape(value):
		return CategoryIPAddress
	case hasIPv6Shape(value):
		return CategoryIPAddress
	case looksLikeEmail(value):
		return CategoryEmail
	case hasHTTPScheme(value):
		return CategoryURL
	case isHexDigest(value):
		return CategoryFileHash
	case strings.Contains(value, ".") && !strings.Contains(value, "@") && !strings.Contains(value, "://"):
		return CategoryDomain
	}
	return CategoryOther
}

func hasIPv4Shape(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || !allDigits(p) {
			return false
		}
	}
	return true
}

func hasIPv6Shape(s string) bool {
	if strings.Count(s, ":") < 2 {
		return false
	}
	for _, r := range s {
		if !isHexRune(r) && r != ':' && r != '.' {
			return false
		}
	}
	return true
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n") || hasHTTPScheme(s) {
		return false
	}
	return isDomainName(s[at+1:])
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isHexDigest(s string) bool {
	switch len(s) {
	case 32, 40, 64:
	default:
		return false
	}
	for _, r := range s {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
