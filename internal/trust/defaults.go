package trust

// DefaultTable supplies scores for pairs with no explicit relationship.
// Peer applies when both organizations share a kind, Cross when they differ
// and Unknown when either kind is empty. Pairs listed in Kinds override the
// peer/cross split; keys are "sourceKind/targetKind".
type DefaultTable struct {
	Peer    float64            `mapstructure:"peer"`
	Cross   float64            `mapstructure:"cross"`
	Unknown float64            `mapstructure:"unknown"`
	Kinds   map[string]float64 `mapstructure:"kinds"`
}

// StandardDefaults returns the built-in default table.
func StandardDefaults() DefaultTable {
	return DefaultTable{
		Peer:    0.6,
		Cross:   0.4,
		Unknown: 0.2,
	}
}

// DefaultScore returns the score for an unrelated pair of organization kinds.
func (d DefaultTable) DefaultScore(sourceKind, targetKind string) float64 {
	if sourceKind == "" || targetKind == "" {
		return d.Unknown
	}
	if s, ok := d.Kinds[sourceKind+"/"+targetKind]; ok {
		return s
	}
	if sourceKind == targetKind {
		return d.Peer
	}
	return d.Cross
}

// Validate reports ErrMalformedRelationship if any score is outside [0, 1].
func (d DefaultTable) Validate() error {
	for _, s := range []float64{d.Peer, d.Cross, d.Unknown} {
		if !validScore(s) {
			return ErrMalformedRelationship
		}
	}
	for _, s := range d.Kinds {
		if !validScore(s) {
			return ErrMalformedRelationship
		}
	}
	return nil
}
