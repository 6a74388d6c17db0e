package cardid

import (
	"fmt"
	"maps"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ProviderPattern identifies a card network by its leading digits and length.
// Score is the confidence (0-100) assigned to a match; short, loose patterns
// produce more false positives and carry lower scores.
type ProviderPattern struct {
	Name    string
	Pattern *regexp.Regexp
	Score   int
}

// Constants is the static data the signals are evaluated against.
// A Constants value is read-only once handed to a Validator.
type Constants struct {
	MinPossibleLength int
	MaxPossibleLength int
	// LengthScores maps an exact digit count to its plausibility score.
	LengthScores map[int]int
	// Providers are tried in order; the first match wins.
	Providers        []ProviderPattern
	KnownTestNumbers map[string]struct{}
}

var defaultProviders = []ProviderPattern{
	{Name: "mastercard", Pattern: regexp.MustCompile(`^(5[1-5][0-9]{5,}|222[1-9][0-9]{3,}|22[3-9][0-9]{4,}|2[3-6][0-9]{5,}|27[01][0-9]{4,}|2720[0-9]{3,})$`), Score: 100},
	{Name: "amex", Pattern: regexp.MustCompile(`^(3[47][0-9]{5,})$`), Score: 70},
	{Name: "visa", Pattern: regexp.MustCompile(`^(4[0-9]{6,})$`), Score: 50},
	{Name: "diners", Pattern: regexp.MustCompile(`^(3(?:0[0-5]|[68][0-9])[0-9]{4,})$`), Score: 85},
	{Name: "discover", Pattern: regexp.MustCompile(`^(6(?:011|5[0-9]{2})[0-9]{3,})$`), Score: 80},
	{Name: "jcb", Pattern: regexp.MustCompile(`^((?:2131|1800|35[0-9]{3})[0-9]{3,})$`), Score: 85},
}

// Test numbers published by the card networks and payment processors.
var defaultTestNumbers = []string{
	// American Express
	"378282246310005", "371449635398431", "345436849253786", "344343597098739",
	"348195053148184", "346761128958196", "379983963916986", "376749501879009",
	"349204254634213", "376432510463566", "378734493671000",
	// Australian BankCard
	"5610591081018250",
	// Diners Club
	"30569309025904", "38520000023237", "30467323783394", "30389589049437",
	"30213469782901", "36197365718891", "36823785024749", "36251701871102",
	"5485157059278227", "5418199988362484", "5402093870675764",
	// Discover
	"6011111111111117", "6011000990139424", "6011540018341759", "6011052057723921",
	"6011277618211484585", "6011861286835722", "6011890376173660", "6011464247892518",
	"6011244758428047", "6011469345729306",
	// InstaPayment
	"6382961806046593", "6373413397497463", "6375275217437369",
	// JCB
	"3530111333300000", "3566002020360505", "3566111111111113", "3529844470994754",
	"3535754231437369", "3541031337467299722",
	// Maestro
	"6762678941084830", "5018131548158304", "6304521934333993", "50339619890917",
	"586824160825533338", "6759411100000008", "6759560045005727054", "5641821111166669",
	// MasterCard
	"5555555555554444", "5105105105105100", "2222420000001113", "2222630000001125",
	"5246772059242294", "5365643412360922", "5310506475502852", "5192310560826646",
	"5174224924081487", "5353732311938484", "5203246075883952", "5186682476306626",
	// VISA
	"4111111111111111", "4012888888881881", "4222222222222", "4330954187429262",
	"4916861873042626", "4024007176658892119", "4485992558886887", "4556556689853209",
	"4532379342751077", "4024007153524987", "4485643204102613", "4508138079686538",
	"4026207140510119", "4508608593847550",
	// PBS, Paymentech, UATP
	"5019717010103742", "6331101999990016", "135412345678911",
}

// DefaultConstants returns a fresh copy of the built-in constants table.
func DefaultConstants() *Constants {
	known := make(map[string]struct{}, len(defaultTestNumbers))
	for _, n := range defaultTestNumbers {
		known[n] = struct{}{}
	}
	return &Constants{
		MinPossibleLength: 7,
		MaxPossibleLength: 19,
		LengthScores: map[int]int{
			16: 100, // most common
			15: 100, // American Express
			13: 80,  // older VISA
		},
		Providers:        append([]ProviderPattern(nil), defaultProviders...),
		KnownTestNumbers: known,
	}
}

// constantsFile is the on-disk shape of a constants override.
type constantsFile struct {
	MinPossibleLength *int                  `yaml:"minPossibleLength"`
	MaxPossibleLength *int                  `yaml:"maxPossibleLength"`
	LengthScores      map[int]int           `yaml:"lengthScores"`
	Providers         []providerPatternFile `yaml:"providers"`
	KnownTestNumbers  []string              `yaml:"knownTestNumbers"`
}

type providerPatternFile struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Score   int    `yaml:"score"`
}

// LoadConstants reads a YAML constants override from path and applies it on
// top of the defaults. Sections present in the file replace the matching
// default section wholesale; absent sections keep their defaults.
// Returns the defaults and nil error if path is empty.
func LoadConstants(path string) (*Constants, error) {
	if path == "" {
		return DefaultConstants(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading constants file: %w", err)
	}
	return ParseConstants(data)
}

// ParseConstants parses a YAML constants override. See [LoadConstants].
func ParseConstants(data []byte) (*Constants, error) {
	var f constantsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing constants file: %w", err)
	}

	c := DefaultConstants()
	if f.MinPossibleLength != nil {
		c.MinPossibleLength = *f.MinPossibleLength
	}
	if f.MaxPossibleLength != nil {
		c.MaxPossibleLength = *f.MaxPossibleLength
	}
	if c.MinPossibleLength > c.MaxPossibleLength {
		return nil, fmt.Errorf("minPossibleLength %d exceeds maxPossibleLength %d",
			c.MinPossibleLength, c.MaxPossibleLength)
	}
	if f.LengthScores != nil {
		c.LengthScores = maps.Clone(f.LengthScores)
	}
	if f.Providers != nil {
		providers := make([]ProviderPattern, 0, len(f.Providers))
		for i, p := range f.Providers {
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return nil, fmt.Errorf("provider %d (%s): %w", i, p.Name, err)
			}
			providers = append(providers, ProviderPattern{Name: p.Name, Pattern: re, Score: p.Score})
		}
		c.Providers = providers
	}
	if f.KnownTestNumbers != nil {
		known := make(map[string]struct{}, len(f.KnownTestNumbers))
		for _, n := range f.KnownTestNumbers {
			known[n] = struct{}{}
		}
		c.KnownTestNumbers = known
	}
	return c, nil
}
