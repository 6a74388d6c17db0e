package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/cardmark/internal/cardid"
	"github.com/dshills/cardmark/internal/config"
	"github.com/dshills/cardmark/internal/redact"
)

var (
	flagScoreJSON    bool
	flagScoreWeights map[string]string
)

// scoreLine is one row of `cardmark score` output.
type scoreLine struct {
	Number   string            `json:"number"`
	Possible bool              `json:"possible"`
	Surely   bool              `json:"surely"`
	Eval     cardid.Evaluation `json:"evaluation"`
}

// parseWeights converts KEY=VALUE flag pairs to weight overrides.
func parseWeights(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %s must be a number: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

var scoreCmd = &cobra.Command{
	Use:   "score <number>...",
	Short: "Print the score breakdown of candidate numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		opts, err := cfg.IdentifierOptions()
		if err != nil {
			return err
		}
		opts.Logger = logger
		id := cardid.New(opts)

		if len(flagScoreWeights) > 0 {
			updates, err := parseWeights(flagScoreWeights)
			if err != nil {
				return err
			}
			if err := id.Validator().UpdateWeights(updates); err != nil {
				return err
			}
		}

		threshold := id.Options().ThresholdAlert.Or(cardid.DefaultThreshold)
		lines := make([]scoreLine, 0, len(args))
		for _, arg := range args {
			number, ok := cardid.ExtractNumber(arg)
			if !ok {
				number = arg
			}
			eval := id.Validator().Evaluate(number)
			possible := id.IsPossible(number)
			lines = append(lines, scoreLine{
				Number:   redact.Digits(number, cfg.MaskDigits()),
				Possible: possible,
				Surely:   possible && threshold.Exceeded(eval.Score),
				Eval:     eval,
			})
		}

		if flagScoreJSON {
			data, err := json.MarshalIndent(lines, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMBER\tPOSSIBLE\tTEST\tLUHN\tPROVIDER\tLENGTH\tSCORE\tSURELY")
		for _, l := range lines {
			provider := "-"
			if l.Eval.Provider != "" {
				provider = fmt.Sprintf("%s(%d)", l.Eval.Provider, l.Eval.ProviderScore)
			}
			fmt.Fprintf(tw, "%s\t%t\t%t\t%t\t%s\t%d\t%s\t%t\n",
				l.Number, l.Possible, l.Eval.KnownTestNumber, l.Eval.Luhn, provider,
				l.Eval.LengthScore, strconv.FormatFloat(l.Eval.Score, 'f', -1, 64), l.Surely)
		}
		return tw.Flush()
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&flagScoreJSON, "json", false, "Print the breakdown as JSON")
	scoreCmd.Flags().StringToStringVar(&flagScoreWeights, "weight", nil, "Weight override KEY=VALUE (LUHN, TEST_NUMBERS, PROVIDERS, LENGTH)")
	scoreCmd.Flags().StringVar(&flagThresholdAlert, "threshold-alert", "", "Alert threshold, or \"none\"")
	scoreCmd.Flags().StringVar(&flagConstants, "constants", "", "YAML file overriding the detection constants")
}
