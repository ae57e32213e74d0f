package anonymize

import (
	"net/netip"
	"net/url"
	"strings"
)

// pathRemoved stands in for a URL path at the low level.
const pathRemoved = "/[path-removed]"

// domainStrategy generalizes domain names towards their TLD.
//
//	low     *.example.com
//	medium  *.com
//	high    *.commercial (TLD category)
//	full    anon-domain-<hash>.example
type domainStrategy struct {
	tlds TLDTable
}

func (domainStrategy) Category() Category { return CategoryDomain }

func (domainStrategy) Validate(value string) bool {
	_, ok := normalizeDomain(value)
	return ok
}

func (s domainStrategy) Anonymize(value string, level Level) string {
	if level == LevelNone {
		return value
	}
	d, ok := normalizeDomain(value)
	if !ok {
		return "invalid-domain-" + digest8(value) + ".example"
	}
	if level >= LevelFull {
		return "anon-domain-" + digest8(value) + ".example"
	}
	return "*." + s.generalize(d, level)
}

// generalize returns the retained suffix of a normalized domain for the
// masking levels.
func (s domainStrategy) generalize(d string, level Level) string {
	switch level {
	case LevelLow:
		return lastLabels(d, 2)
	case LevelMedium:
		return lastLabels(d, 1)
	default:
		return s.tlds.Category(d)
	}
}

// emailStrategy replaces the local part with a hash token and generalizes
// the domain.
//
//	low     user-<hash>@example.com
//	medium  user-<hash>@*.example.com
//	high    user@*.commercial
//	full    anon-user-<hash>@example.com
type emailStrategy struct {
	domain domainStrategy
}

func (emailStrategy) Category() Category { return CategoryEmail }

func (s emailStrategy) Validate(value string) bool {
	_, _, ok := splitEmail(value)
	return ok
}

func (s emailStrategy) Anonymize(value string, level Level) string {
	if level == LevelNone {
		return value
	}
	_, d, ok := splitEmail(value)
	if !ok {
		return "invalid-email-" + digest8(value) + "@example.com"
	}
	token := digest8(value)
	switch level {
	case LevelLow:
		return "user-" + token + "@" + d
	case LevelMedium:
		return "user-" + token + "@*." + lastLabels(d, 2)
	case LevelHigh:
		return "user@*." + s.domain.tlds.Category(d)
	}
	return "anon-user-" + token + "@example.com"
}

func splitEmail(value string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(value, '@')
	if at <= 0 || at == len(value)-1 {
		return "", "", false
	}
	local = value[:at]
	if strings.ContainsAny(local, " \t\r\n@") {
		return "", "", false
	}
	domain, ok = normalizeDomain(value[at+1:])
	return local, domain, ok
}

// urlStrategy keeps the scheme and generalizes the host. Paths, queries and
// fragments are always dropped.
//
//	low     https://*.example.com/[path-removed]
//	medium  https://*.com
//	high    https://*.commercial
//	full    https://anon-url-<hash>.example
type urlStrategy struct {
	domain domainStrategy
	ip     ipStrategy
}

func (urlStrategy) Category() Category { return CategoryURL }

func (s urlStrategy) Validate(value string) bool {
	_, _, ok := s.parse(value)
	return ok
}

func (s urlStrategy) Anonymize(value string, level Level) string {
	if level == LevelNone {
		return value
	}
	u, host, ok := s.parse(value)
	if !ok {
		return "https://invalid-url-" + digest8(value) + ".example"
	}
	if level >= LevelFull {
		return "https://anon-url-" + digest8(value) + ".example"
	}

	var masked string
	if addr, err := netip.ParseAddr(host); err == nil {
		masked = s.ip.Anonymize(addr.String(), level)
		if addr.Is6() {
			masked = "[" + masked + "]"
		}
	} else {
		masked = "*." + s.domain.generalize(host, level)
	}

	out := strings.ToLower(u.Scheme) + "://" + masked
	if level == LevelLow && hasPath(u) {
		out += pathRemoved
	}
	return out
}

func (s urlStrategy) parse(value string) (*url.URL, string, bool) {
	if !hasHTTPScheme(value) {
		return nil, "", false
	}
	u, err := url.Parse(value)
	if err != nil {
		return nil, "", false
	}
	host := u.Hostname()
	if host == "" {
		return nil, "", false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return u, host, true
	}
	d, ok := normalizeDomain(host)
	if !ok {
		return nil, "", false
	}
	return u, d, true
}

func hasPath(u *url.URL) bool {
	return (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != ""
}
