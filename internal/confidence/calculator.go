package confidence

import (
	"math"

	"github.com/shopspring/decimal"
)

// Neutral is returned for strategy ids without a profile.
const Neutral = 0.5

// MaxBonus caps any single bonus.
const MaxBonus = 0.2

// Op compares a factor against a threshold.
type Op int

const (
	Below   Op = iota // factor < threshold
	Above             // factor > threshold
	AtLeast           // factor >= threshold
	AtMost            // factor <= threshold
)

// Bonus adds Amount when Factor satisfies Op against Threshold.
// A missing or non-finite factor never qualifies.
type Bonus struct {
	Factor    string
	Op        Op
	Threshold float64
	Amount    float64
}

func (b Bonus) applies(factors map[string]float64) bool {
	v, ok := factors[b.Factor]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch b.Op {
	case Below:
		return v < b.Threshold
	case Above:
		return v > b.Threshold
	case AtLeast:
		return v >= b.Threshold
	case AtMost:
		return v <= b.Threshold
	default:
		return false
	}
}

// Profile is the scoring rule of one strategy: its family base plus bonuses.
type Profile struct {
	Family  string
	Base    float64
	Bonuses []Bonus
}

// Calculator maps (strategy id, factors) to a confidence in [0,1].
// It is pure and safe for concurrent use.
type Calculator struct {
	profiles map[string]Profile
}

// NewCalculator returns a Calculator over the given profiles. With no
// argument the built-in profiles are used.
func NewCalculator(profiles ...map[string]Profile) *Calculator {
	p := DefaultProfiles()
	if len(profiles) > 0 && profiles[0] != nil {
		p = profiles[0]
	}
	return &Calculator{profiles: p}
}

// Score returns base(family) plus every qualifying bonus, clipped to [0,1]
// and rounded to 4 decimals. Unknown ids score Neutral.
func (c *Calculator) Score(strategyID string, factors map[string]float64) float64 {
	profile, ok := c.profiles[strategyID]
	if !ok {
		return Neutral
	}
	score := profile.Base
	for _, b := range profile.Bonuses {
		if b.applies(factors) {
			score += clamp(b.Amount, -MaxBonus, MaxBonus)
		}
	}
	score = clamp(score, 0, 1)
	return decimal.NewFromFloat(score).Round(4).InexactFloat64()
}

// Profile returns the profile registered for strategyID.
func (c *Calculator) Profile(strategyID string) (Profile, bool) {
	p, ok := c.profiles[strategyID]
	return p, ok
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
