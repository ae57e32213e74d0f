// Package anonymize implements trust-indexed anonymization of STIX objects.
//
// A Level selects how aggressively sensitive values are transformed. Values
// are classified into a Category by Detect, and each category has one
// Strategy implementing the per-level transformation table. The Anonymizer
// applies those strategies to a whole object: the indicator pattern, the
// free-text properties and the cyber-observable values, while leaving
// identifiers and reference properties byte-for-byte intact.
package anonymize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is an anonymization strength. The base levels are totally ordered:
// LevelNone < LevelLow < LevelMedium < LevelHigh < LevelFull.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelFull

	// LevelCustom tags organization-defined rule sets layered on top of the
	// base table. The base engine does not transform at this level.
	LevelCustom
)

var levelNames = map[Level]string{
	LevelNone:   "none",
	LevelLow:    "low",
	LevelMedium: "medium",
	LevelHigh:   "high",
	LevelFull:   "full",
	LevelCustom: "custom",
}

// Levels lists the base levels in increasing strength.
func Levels() []Level {
	return []Level{LevelNone, LevelLow, LevelMedium, LevelHigh, LevelFull}
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// IsBase reports whether l is one of the ordered base levels handled by the
// strategy table.
func (l Level) IsBase() bool {
	return l >= LevelNone && l <= LevelFull
}

// ParseLevel converts the text form of a level ("none", "LOW", ...).
func ParseLevel(s string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if _, ok := levelNames[l]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalJSON encodes the level as its text form.
func (l Level) MarshalJSON() ([]byte, error) {
	b, err := l.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(b))
}
