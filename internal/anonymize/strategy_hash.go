package anonymize

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// hashPrefixLen is the number of leading characters kept by the masking levels.
const hashPrefixLen = 8

// hashStrategy masks file digests. Low, medium and high are identical: the
// first eight characters survive and the rest become 'X'. Full replaces the
// digest with a fresh one of the same length.
type hashStrategy struct{}

func (hashStrategy) Category() Category { return CategoryFileHash }

func (hashStrategy) Validate(value string) bool {
	switch len(value) {
	case 32, 40, 64, 128:
	default:
		return false
	}
	for _, r := range value {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

func (s hashStrategy) Anonymize(value string, level Level) string {
	if level == LevelNone {
		return value
	}
	if !s.Validate(value) {
		return "invalid-hash-" + digest8(value)
	}
	if level >= LevelFull {
		return rehash(value)
	}
	return value[:hashPrefixLen] + strings.Repeat("X", len(value)-hashPrefixLen)
}

func rehash(value string) string {
	if len(value) > sha256.Size*2 {
		sum := sha512.Sum512([]byte(value))
		return hex.EncodeToString(sum[:])[:len(value)]
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:len(value)]
}
