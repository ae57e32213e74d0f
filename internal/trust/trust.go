// Package trust resolves the trust relationship between a publishing and a
// requesting organization into a score and the anonymization level that
// score implies.
//
// Resolution never fails open: any lookup error, unknown organization or
// malformed relationship yields a score of 0 and anonymize.LevelFull.
package trust

import (
	"math"

	"github.com/jmerrifield20/intelshare/internal/anonymize"
)

// Score thresholds for LevelForScore.
const (
	thresholdNone   = 0.9
	thresholdLow    = 0.7
	thresholdMedium = 0.5
	thresholdHigh   = 0.3
)

// LevelForScore maps a trust score to an anonymization level:
//
//	score >= 0.9        → none
//	0.7 <= score < 0.9  → low
//	0.5 <= score < 0.7  → medium
//	0.3 <= score < 0.5  → high
//	score < 0.3         → full
//
// NaN maps to full.
func LevelForScore(score float64) anonymize.Level {
	switch {
	case math.IsNaN(score):
		return anonymize.LevelFull
	case score >= thresholdNone:
		return anonymize.LevelNone
	case score >= thresholdLow:
		return anonymize.LevelLow
	case score >= thresholdMedium:
		return anonymize.LevelMedium
	case score >= thresholdHigh:
		return anonymize.LevelHigh
	default:
		return anonymize.LevelFull
	}
}

// Basis records where a resolved score came from.
type Basis string

const (
	BasisSameOrg  Basis = "same_org"
	BasisExplicit Basis = "explicit"
	BasisDefault  Basis = "default"
	BasisFallback Basis = "fallback" // lookup failed; most restrictive level
)

// Resolution is the outcome of resolving one (source, target) pair.
type Resolution struct {
	Score float64         `json:"trust_score"`
	Level anonymize.Level `json:"anonymization_level"`
	Basis Basis           `json:"basis"`

	// Err is the lookup failure behind a BasisFallback resolution.
	Err error `json:"-"`
}

func sameOrg() Resolution {
	return Resolution{Score: 1.0, Level: anonymize.LevelNone, Basis: BasisSameOrg}
}

func fallback(err error) Resolution {
	return Resolution{Score: 0.0, Level: anonymize.LevelFull, Basis: BasisFallback, Err: err}
}

func resolved(score float64, basis Basis) Resolution {
	return Resolution{Score: score, Level: LevelForScore(score), Basis: basis}
}

// validScore reports whether s is a usable trust score.
func validScore(s float64) bool {
	return !math.IsNaN(s) && s >= 0 && s <= 1
}
