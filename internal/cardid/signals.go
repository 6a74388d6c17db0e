package cardid

// The signal functions expect a digits-only candidate; callers gate on
// Possible before scoring anything else.

// Possible reports whether number could be a card number at all: ASCII
// digits only, with a length inside [MinPossibleLength, MaxPossibleLength].
func (c *Constants) Possible(number string) bool {
	if !isDigits(number) {
		return false
	}
	return len(number) >= c.MinPossibleLength && len(number) <= c.MaxPossibleLength
}

// KnownTestNumber reports whether number is one of the published test
// numbers. Comparison is on the exact string, so leading zeros matter.
func (c *Constants) KnownTestNumber(number string) bool {
	_, ok := c.KnownTestNumbers[number]
	return ok
}

// MatchProvider returns the first provider pattern matching number.
func (c *Constants) MatchProvider(number string) (ProviderPattern, bool) {
	for _, p := range c.Providers {
		if p.Pattern.MatchString(number) {
			return p, true
		}
	}
	return ProviderPattern{}, false
}

// ProviderScore returns the score of the first matching provider, or 0.
func (c *Constants) ProviderScore(number string) int {
	p, ok := c.MatchProvider(number)
	if !ok {
		return 0
	}
	return p.Score
}

// LengthScore returns the plausibility score for the digit count of number,
// or 0 when the length is not listed.
func (c *Constants) LengthScore(number string) int {
	return c.LengthScores[len(number)]
}

// Luhn reports whether number passes the mod 10 checksum. The rightmost
// digit is the check digit; every second digit to its left is doubled.
func Luhn(number string) bool {
	if !isDigits(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
