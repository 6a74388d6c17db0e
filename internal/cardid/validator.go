package cardid

import "sync"

// Evaluation is the per-signal breakdown behind a score.
type Evaluation struct {
	Number          string  `json:"-"`
	KnownTestNumber bool    `json:"knownTestNumber"`
	Luhn            bool    `json:"luhn"`
	Provider        string  `json:"provider,omitempty"`
	ProviderScore   int     `json:"providerScore"`
	LengthScore     int     `json:"lengthScore"`
	Score           float64 `json:"score"`
}

// Validator scores candidate numbers against a constants table.
// It is safe for concurrent use; weight updates take a write lock.
type Validator struct {
	constants *Constants

	mu      sync.RWMutex
	weights Weights
}

// NewValidator returns a Validator. A nil weights or constants selects the
// defaults.
func NewValidator(weights *Weights, constants *Constants) *Validator {
	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}
	if constants == nil {
		constants = DefaultConstants()
	}
	return &Validator{constants: constants, weights: w}
}

// Constants returns the table the validator evaluates against.
func (v *Validator) Constants() *Constants {
	return v.constants
}

// Weights returns a snapshot of the current weights.
func (v *Validator) Weights() Weights {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.weights
}

// IsPossible reports whether number could be a card number. Scoring a number
// that is not possible is meaningless.
func (v *Validator) IsPossible(number string) bool {
	return v.constants.Possible(number)
}

// Evaluate computes every signal for number and the resulting score.
func (v *Validator) Evaluate(number string) Evaluation {
	w := v.Weights()
	e := Evaluation{
		Number:          number,
		KnownTestNumber: v.constants.KnownTestNumber(number),
		Luhn:            Luhn(number),
		LengthScore:     v.constants.LengthScore(number),
	}
	if p, ok := v.constants.MatchProvider(number); ok {
		e.Provider = p.Name
		e.ProviderScore = p.Score
	}

	if e.KnownTestNumber {
		e.Score += w.TestNumbers
	}
	if e.Luhn {
		e.Score += w.Luhn
	}
	// Multiply before dividing so integral weights give exact sums.
	e.Score += w.Providers * float64(e.ProviderScore) / 100
	e.Score += w.Length * float64(e.LengthScore) / 100
	return e
}

// Score returns the aggregate score of number. It is a sum of signal
// contributions, not a normalized probability, and can exceed 100.
func (v *Validator) Score(number string) float64 {
	return v.Evaluate(number).Score
}

// IsSurely reports whether the score of number is strictly above
// DefaultThreshold.
func (v *Validator) IsSurely(number string) bool {
	return v.IsSurelyAbove(number, DefaultThreshold)
}

// IsSurelyAbove reports whether the score of number is strictly above
// threshold.
func (v *Validator) IsSurelyAbove(number string, threshold float64) bool {
	return v.Score(number) > threshold
}

// UpdateWeights applies updates atomically. If any key is unknown nothing
// changes and an *UnknownWeightError is returned.
func (v *Validator) UpdateWeights(updates map[string]float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	next, err := v.weights.With(updates)
	if err != nil {
		return err
	}
	v.weights = next
	return nil
}

// SetWeights is UpdateWeights reporting success as a bool.
func (v *Validator) SetWeights(updates map[string]float64) bool {
	return v.UpdateWeights(updates) == nil
}
