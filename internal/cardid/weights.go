package cardid

import (
	"fmt"
	"sort"
	"strings"
)

// Weight keys accepted by [Validator.SetWeights].
const (
	WeightLuhn        = "LUHN"
	WeightTestNumbers = "TEST_NUMBERS"
	WeightProviders   = "PROVIDERS"
	WeightLength      = "LENGTH"
)

// DefaultThreshold is the score a number must exceed to be considered surely
// a card number when no threshold is given.
const DefaultThreshold = 85

// Weights are the contributions of each signal to the total score.
// Providers and Length are scaled by the signal score over 100.
type Weights struct {
	Luhn        float64 `json:"LUHN"`
	TestNumbers float64 `json:"TEST_NUMBERS"`
	Providers   float64 `json:"PROVIDERS"`
	Length      float64 `json:"LENGTH"`
}

// DefaultWeights returns the built-in signal weights.
func DefaultWeights() Weights {
	return Weights{
		Luhn:        60,
		TestNumbers: 100,
		Providers:   15,
		Length:      15,
	}
}

// UnknownWeightError is returned when a weight update names keys outside
// the fixed set.
type UnknownWeightError struct {
	Keys []string
}

func (e *UnknownWeightError) Error() string {
	return fmt.Sprintf("unknown weight key(s): %s", strings.Join(e.Keys, ", "))
}

// With returns a copy of w with updates applied. If any key is unknown, w is
// returned unchanged together with an *UnknownWeightError.
func (w Weights) With(updates map[string]float64) (Weights, error) {
	var unknown []string
	for k := range updates {
		switch k {
		case WeightLuhn, WeightTestNumbers, WeightProviders, WeightLength:
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return w, &UnknownWeightError{Keys: unknown}
	}

	next := w
	for k, v := range updates {
		switch k {
		case WeightLuhn:
			next.Luhn = v
		case WeightTestNumbers:
			next.TestNumbers = v
		case WeightProviders:
			next.Providers = v
		case WeightLength:
			next.Length = v
		}
	}
	return next, nil
}

// Map returns the weights keyed by their names.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		WeightLuhn:        w.Luhn,
		WeightTestNumbers: w.TestNumbers,
		WeightProviders:   w.Providers,
		WeightLength:      w.Length,
	}
}

// Threshold is an optional score threshold. The zero value is unset, which
// is distinct from a threshold of 0.
type Threshold struct {
	value float64
	set   bool
}

// At returns a threshold set to v.
func At(v float64) Threshold {
	return Threshold{value: v, set: true}
}

// ThresholdFrom converts an optional value, as read from configuration.
func ThresholdFrom(v *float64) Threshold {
	if v == nil {
		return Threshold{}
	}
	return At(*v)
}

// Value returns the threshold and whether it is set.
func (t Threshold) Value() (float64, bool) {
	return t.value, t.set
}

// IsSet reports whether the threshold has a value.
func (t Threshold) IsSet() bool {
	return t.set
}

// Exceeded reports whether score is strictly above the threshold.
// An unset threshold is always exceeded.
func (t Threshold) Exceeded(score float64) bool {
	return !t.set || score > t.value
}

// Or returns t if set, otherwise a threshold at fallback.
func (t Threshold) Or(fallback float64) Threshold {
	if t.set {
		return t
	}
	return At(fallback)
}

func (t Threshold) String() string {
	if !t.set {
		return "unset"
	}
	return fmt.Sprintf("%g", t.value)
}
