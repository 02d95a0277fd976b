package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/aidiscovery-cli/internal/competitor"
	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/schema"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
	"github.com/sells-group/aidiscovery-cli/internal/visual"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a business from a signal file",
	Long: `Runs the scoring engine over a signal bundle without calling any external
service. The input is YAML or JSON with the keys business, competitors,
ai_mentions, ai_perception, sentiment, visual and skip_competitive. Only
business is required. Without visual the photo coverage is derived from the
business's photo count.

Examples:
  score --input signals.yaml
  cat signals.json | score --input - --json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("input", "", "signal file (YAML or JSON), - for stdin")
	f.Bool("json", false, "print the result as JSON")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}

// scoreResult is the engine output for one signal bundle.
type scoreResult struct {
	Score           int                        `json:"score"`
	Interpretation  scoring.Interpretation     `json:"interpretation"`
	Breakdown       model.ScoreBreakdown       `json:"breakdown"`
	Competitive     *model.CompetitiveAnalysis `json:"competitive,omitempty"`
	Recommendations []model.Recommendation     `json:"recommendations"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("score"); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("input")
	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := decodeScoreInput(data)
	if err != nil {
		return err
	}
	res := evaluate(in, cfg.Scoring)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	formatScore(out, res)
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return data, eris.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// decodeScoreInput parses a YAML or JSON bundle, checks its shape and decodes
// it leniently. A bundle without visual gets the coverage of its photo count.
func decodeScoreInput(data []byte) (model.ScoreInput, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.ScoreInput{}, eris.Wrap(err, "parse input")
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return model.ScoreInput{}, eris.Wrap(err, "convert input")
	}
	if err := schema.Validate(schema.ScoreInput, doc); err != nil {
		return model.ScoreInput{}, err
	}

	in := model.ScoreInput{Sentiment: model.DefaultSentiment()}
	if err := json.Unmarshal(doc, &in); err != nil {
		return model.ScoreInput{}, eris.Wrap(err, "decode input")
	}
	if v := gjson.GetBytes(doc, "visual"); !v.Exists() || v.Type == gjson.Null {
		in.Visual = visual.Audit(in.Business.PhotoCount())
	}
	return in, nil
}

// evaluate runs the engine: competitive analysis, score, tier and
// recommendations.
func evaluate(in model.ScoreInput, w scoring.Weights) scoreResult {
	var analysis *model.CompetitiveAnalysis
	if !in.SkipCompetitive {
		ca := competitor.Analyze(in.Business, in.Competitors, in.AIMentions)
		analysis = &ca
	}

	breakdown := scoring.NewCalculator(w).Breakdown(in.AIPerception, in.Sentiment, in.Visual, in.Business, analysis)
	score := scoring.Total(breakdown)

	return scoreResult{
		Score:           score,
		Interpretation:  scoring.Interpret(score),
		Breakdown:       breakdown,
		Competitive:     analysis,
		Recommendations: scoring.NewEngine().Recommend(score, in.AIPerception, in.Sentiment, in.Visual, in.Business, analysis),
	}
}

func formatScore(out io.Writer, res scoreResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Score:\t%d/100\n", res.Score)
	_, _ = fmt.Fprintf(w, "Tier:\t%s (%s)\n", res.Interpretation.Label, res.Interpretation.Tier)
	_, _ = fmt.Fprintf(w, "\t%s\n", res.Interpretation.Message)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "AI confidence:\t%.1f\n", res.Breakdown.AIConfidence)
	_, _ = fmt.Fprintf(w, "Completeness:\t%.1f\n", res.Breakdown.Completeness)
	_, _ = fmt.Fprintf(w, "Sentiment:\t%.1f\n", res.Breakdown.Sentiment)
	_, _ = fmt.Fprintf(w, "Visual:\t%.1f\n", res.Breakdown.Visual)
	_, _ = fmt.Fprintf(w, "Competitive:\t%.1f\n", res.Breakdown.Competitive)
	_ = w.Flush()

	if len(res.Recommendations) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nRecommendations:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tPRIORITY\tIMPACT\tEFFORT\tACTION")
	for i, r := range res.Recommendations {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Priority, r.ImpactLabel(), r.Effort, r.Action)
	}
	_ = w.Flush()
}
