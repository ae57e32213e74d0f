package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Strategy transforms values of one category. Implementations are pure:
// the same value and level always produce the same output.
//
// Anonymize must return value unchanged at LevelNone and must never return a
// malformed input verbatim at any other level; invalid values are replaced by
// a category-tagged placeholder derived from the value.
type Strategy interface {
	Category() Category
	Validate(value string) bool
	Anonymize(value string, level Level) string
}

// Table is the immutable set of strategies, one per category.
type Table struct {
	ip     ipStrategy
	domain domainStrategy
	email  emailStrategy
	url    urlStrategy
	hash   hashStrategy
}

// NewTable builds the strategy table. The TLD table drives the category
// names used at LevelHigh.
func NewTable(tlds TLDTable) *Table {
	if tlds.categories == nil {
		tlds = DefaultTLDTable()
	}
	d := domainStrategy{tlds: tlds}
	ip := ipStrategy{}
	return &Table{
		ip:     ip,
		domain: d,
		email:  emailStrategy{domain: d},
		url:    urlStrategy{domain: d, ip: ip},
		hash:   hashStrategy{},
	}
}

// Strategy returns the strategy registered for c.
func (t *Table) Strategy(c Category) (Strategy, error) {
	switch c {
	case CategoryIPAddress:
		return t.ip, nil
	case CategoryDomain:
		return t.domain, nil
	case CategoryEmail:
		return t.email, nil
	case CategoryURL:
		return t.url, nil
	case CategoryFileHash:
		return t.hash, nil
	case CategoryOther:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, c)
	}
	return nil, fmt.Errorf("%w: category %d", ErrUnsupportedDataType, int(c))
}

// Anonymize transforms value as a member of category c.
func (t *Table) Anonymize(c Category, value string, level Level) (string, error) {
	if !level.IsBase() {
		return "", fmt.Errorf("%w: %s", ErrInvalidLevel, level)
	}
	s, err := t.Strategy(c)
	if err != nil {
		return "", err
	}
	return s.Anonymize(value, level), nil
}

// AnonymizeValue detects the category of value and transforms it. Values of
// CategoryOther are returned unchanged.
func (t *Table) AnonymizeValue(value string, level Level) (string, Category, error) {
	c := Detect(value)
	if c == CategoryOther {
		if !level.IsBase() {
			return "", c, fmt.Errorf("%w: %s", ErrInvalidLevel, level)
		}
		return value, c, nil
	}
	out, err := t.Anonymize(c, value, level)
	return out, c, err
}

// digest8 returns the first 8 hex characters of the SHA-256 of value.
func digest8(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:4])
}

// lastLabels returns the last n dot-separated labels of a domain.
func lastLabels(domain string, n int) string {
	labels := strings.Split(domain, ".")
	if len(labels) <= n {
		return domain
	}
	return strings.Join(labels[len(labels)-n:], ".")
}
