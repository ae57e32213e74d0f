package anonymize

import (
	"net/netip"
	"regexp"
	"strings"
)

// textPattern finds candidate sensitive substrings in free text. The
// alternatives are tried left to right at each position, so a URL wins over
// the domain it contains, an email wins over its domain part and an
// IPv4-embedded IPv6 address wins over its IPv4 tail.
//
// IPv4 carries no word boundaries: addresses glued to letters such as
// host10.0.0.1 must still match. A bare host may carry a path, which is
// split off and removed.
var textPattern = regexp.MustCompile(strings.Join([]string{
	`(?i:https?://[^\s'"<>()\[\]{}]+)`,
	`[A-Za-z0-9._%+\-]+@(?:[A-Za-z0-9](?:[A-Za-z0-9\-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,63}\b`,
	`(?:[0-9A-Fa-f]{0,4}:){2,6}(?:\d{1,3}\.){3}\d{1,3}`,
	`(?:\d{1,3}\.){3}\d{1,3}`,
	`(?:[0-9A-Fa-f]{0,4}:){2,7}[0-9A-Fa-f]{1,4}\b`,
	`\b(?:[0-9A-Fa-f]{1,4}:){1,7}:`,
	`\b(?:[A-Za-z0-9](?:[A-Za-z0-9\-]{0,61}[A-Za-z0-9])?\.)+[A-Za-z]{2,63}\b(?:/[^\s'"<>()\[\]{}]*)?`,
}, "|"))

// defangedScheme matches hxxp:// and hxxps:// in any case.
var defangedScheme = regexp.MustCompile(`(?i)\bhxxp(s?)://`)

// defangedSeparators are the bracketed forms analysts use to keep
// indicators from being clickable.
var defangedSeparators = strings.NewReplacer(
	"[.]", ".",
	"(.)", ".",
	"{.}", ".",
	"[dot]", ".",
	"[:]", ":",
	"[@]", "@",
	"[at]", "@",
)

// trailingPunct is stripped from URL and path matches before
// transformation; it is almost always sentence punctuation.
const trailingPunct = ".,;:!?"

// refang restores defanged indicators so the scanner sees them.
func refang(text string) string {
	text = defangedSeparators.Replace(text)
	return defangedScheme.ReplaceAllString(text, "http${1}://")
}

// scanText replaces every IP address, domain, email address and URL
// embedded in text. Defanged indicators are refanged first; other content
// is preserved byte for byte.
func (t *Table) scanText(text string, level Level) string {
	if level == LevelNone || text == "" {
		return text
	}
	return textPattern.ReplaceAllStringFunc(refang(text), func(match string) string {
		return t.scanMatch(match, level)
	})
}

func (t *Table) scanMatch(match string, level Level) string {
	core := match
	path := ""
	suffix := ""
	if !hasHTTPScheme(core) {
		if i := strings.IndexByte(core, '/'); i >= 0 {
			core, path = core[:i], core[i:]
		}
	}
	if hasHTTPScheme(core) || path != "" {
		whole := core + path
		trimmed := strings.TrimRight(whole, trailingPunct)
		suffix = whole[len(trimmed):]
		if path != "" {
			path = trimmed[len(core):]
		} else {
			core = trimmed
		}
	}

	c := Detect(core)
	switch c {
	case CategoryOther, CategoryFileHash:
		return match
	case CategoryIPAddress:
		if strings.Contains(core, ":") {
			if _, err := netip.ParseAddr(core); err != nil {
				return t.scanColonRun(core, level)
			}
		}
	}
	out, err := t.Anonymize(c, core, level)
	if err != nil {
		return match
	}
	if level == LevelLow && len(path) > 1 {
		out += pathRemoved
	}
	return out + suffix
}

// scanColonRun handles a hex-and-colon run that is not an address as a
// whole: an address followed by stray colons, or a clock time running into
// an IPv4 address.
func (t *Table) scanColonRun(run string, level Level) string {
	if trimmed := strings.TrimRight(run, ":"); trimmed != run {
		if _, err := netip.ParseAddr(trimmed); err == nil {
			if out, err := t.Anonymize(CategoryIPAddress, trimmed, level); err == nil {
				return out + run[len(trimmed):]
			}
		}
	}
	i := strings.LastIndexByte(run, ':')
	return run[:i+1] + t.scanText(run[i+1:], level)
}
