package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/scan"
)

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *scan.Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string                 `json:"ruleId"`
	Level      string                 `json:"level"`
	Message    sarifMessage           `json:"message"`
	Locations  []sarifLocation        `json:"locations,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

var sarifRules = map[cardid.Tier]sarifRule{
	cardid.TierAlert: {
		ID:               "cardmark/alert",
		Name:             "CardNumber",
		ShortDescription: sarifMessage{Text: "Text contains a likely payment card number"},
		DefaultConfig:    sarifDefaultConfig{Level: "error"},
	},
	cardid.TierNotice: {
		ID:               "cardmark/notice",
		Name:             "PossibleCardNumber",
		ShortDescription: sarifMessage{Text: "Text contains a possible payment card number"},
		DefaultConfig:    sarifDefaultConfig{Level: "note"},
	},
}

func buildSARIF(report *scan.Report) sarifLog {
	results := []sarifResult{}
	var rules []sarifRule
	seen := make(map[cardid.Tier]bool)

	for _, f := range report.Findings {
		rule, ok := sarifRules[f.Tier]
		if !ok {
			continue
		}
		if !seen[f.Tier] {
			seen[f.Tier] = true
			rules = append(rules, rule)
		}

		results = append(results, sarifResult{
			RuleID: rule.ID,
			Level:  tierToLevel(f.Tier),
			Message: sarifMessage{
				Text: fmt.Sprintf("Possible card number %s (score %s)", f.Masked, formatScore(f.Score)),
			},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.Path},
					Region: sarifRegion{
						StartLine:   f.Line,
						StartColumn: f.Column,
					},
				},
			}},
			Properties: map[string]interface{}{
				"provider": f.Provider,
				"score":    f.Score,
				"luhn":     f.Luhn,
			},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "cardmark",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/cardmark",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// tierToLevel maps a detection tier to a SARIF level.
func tierToLevel(t cardid.Tier) string {
	if t == cardid.TierAlert {
		return "error"
	}
	return "note"
}
