package rating

import (
	"math"

	"rating-ledger/internal/domain"
)

const deviation = 400

const (
	DefaultFloor              = 5
	DefaultProvisionalMatches = 30
	DefaultKProvisional       = 32
	DefaultKEstablished       = 16
)

// Policy is the canonical rating function: Elo expected score, a higher K
// during the provisional period, an optional margin-of-victory multiplier and
// a minimum gain per win. Gains are never capped.
type Policy struct {
	Floor              int
	ProvisionalMatches int
	KProvisional       float64
	KEstablished       float64
}

func DefaultPolicy() Policy {
	return Policy{
		Floor:              DefaultFloor,
		ProvisionalMatches: DefaultProvisionalMatches,
		KProvisional:       DefaultKProvisional,
		KEstablished:       DefaultKEstablished,
	}
}

// Expected returns the winner's expected score against the loser.
func Expected(ratingWinner, ratingLoser int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingLoser-ratingWinner)/deviation))
}

func (p Policy) K(matchesPlayedWinner int) float64 {
	if matchesPlayedWinner < p.ProvisionalMatches {
		return p.KProvisional
	}
	return p.KEstablished
}

// MarginMultiplier scales the gain by how decisively the match was won.
// Without margin data the gain is left unchanged.
func MarginMultiplier(margin *domain.MarginData) float64 {
	if margin == nil {
		return 1.0
	}
	switch d := margin.Differential(); {
	case d >= 3:
		return 1.2
	case d == 2:
		return 1.0
	default:
		return 0.8
	}
}

// ComputeDelta returns the rating to move from the loser to the winner. It is
// pure so replaying the same inputs always gives the same delta.
func (p Policy) ComputeDelta(ratingWinner, ratingLoser, matchesPlayedWinner int, margin *domain.MarginData) int {
	gain := p.K(matchesPlayedWinner) * (1 - Expected(ratingWinner, ratingLoser))
	gain *= MarginMultiplier(margin)

	delta := int(math.Round(gain))
	if delta < p.Floor {
		delta = p.Floor
	}
	return delta
}
