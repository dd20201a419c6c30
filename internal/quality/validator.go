package quality

import (
	"context"
	"math"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/echopipe/internal/content"
)

// DefaultThreshold is the quality a result needs to pass.
const DefaultThreshold = 0.8

// FormatScore is the score of one rendering.
type FormatScore struct {
	Format  content.Format `json:"format"`
	Quality float64        `json:"quality"`
	Issues  []Issue        `json:"issues"`
	Length  int            `json:"length"`
}

// Messages returns the issue messages in order.
func (s FormatScore) Messages() []string {
	out := make([]string, len(s.Issues))
	for i, is := range s.Issues {
		out[i] = is.Message
	}
	return out
}

// Result is the outcome of validating a rendering set.
type Result struct {
	Quality     float64 `json:"quality"`
	Consistency float64 `json:"consistency"`
	// ConsistencyChecked is false when the consistency check is disabled and
	// Consistency is the neutral 1.0.
	ConsistencyChecked bool                           `json:"consistency_checked"`
	Passed             bool                           `json:"passed"`
	Threshold          float64                        `json:"threshold"`
	Scores             map[content.Format]FormatScore `json:"scores"`
}

// Formats returns the scored formats sorted by name.
func (r Result) Formats() []content.Format {
	out := make([]content.Format, 0, len(r.Scores))
	for f := range r.Scores {
		out = append(out, f)
	}
	return content.SortFormats(out)
}

// Options configure a Validator.
type Options struct {
	Threshold        float64
	ConsistencyCheck bool
	Scoring          Scoring
	// Rules overrides DefaultRules when set.
	Rules *RuleChain
}

// Validator scores rendering sets.
type Validator struct {
	opts Options
}

// New returns a validator.
func New(opts Options) *Validator {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	return &Validator{opts: opts}
}

// Score evaluates one rendering.
func (v *Validator) Score(format content.Format, body, topic string) FormatScore {
	in := Input{Format: format, Body: body, Topic: topic, Length: utf8.RuneCountInString(body)}
	issues := v.opts.Rules.Check(in, v.opts.Scoring)

	q := v.opts.Scoring.Base
	for _, is := range issues {
		q -= is.Penalty
	}
	if issues == nil {
		issues = []Issue{}
	}
	return FormatScore{Format: format, Quality: clamp(q), Issues: issues, Length: in.Length}
}

// Validate scores every rendering in set concurrently and aggregates the
// scores. It never fails; problems are reported as issues.
func (v *Validator) Validate(_ context.Context, set content.RenderingSet, meta content.Metadata) Result {
	formats := set.Formats()
	scores := make([]FormatScore, len(formats))

	var g errgroup.Group
	for i, f := range formats {
		g.Go(func() error {
			scores[i] = v.Score(f, set[f], meta.Topic)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Threshold: v.opts.Threshold,
		Scores:    make(map[content.Format]FormatScore, len(scores)),
	}
	values := make([]float64, len(scores))
	for i, s := range scores {
		res.Scores[s.Format] = s
		values[i] = s.Quality
	}
	res.Quality = mean(values)
	res.Passed = len(values) > 0 && res.Quality >= v.opts.Threshold

	res.Consistency = 1.0
	if v.opts.ConsistencyCheck {
		res.ConsistencyChecked = true
		res.Consistency = Consistency(values)
	}
	return res
}

// Consistency returns 1 minus the population variance of scores, floored at
// zero. Fewer than two scores are perfectly consistent.
func Consistency(scores []float64) float64 {
	if len(scores) < 2 || allEqual(scores) {
		return 1.0
	}
	m := mean(scores)
	var sum float64
	for _, s := range scores {
		sum += (s - m) * (s - m)
	}
	variance := sum / float64(len(scores))
	c := math.Max(0, 1-variance)
	if variance > 0 && c == 1 {
		c = math.Nextafter(1, 0)
	}
	return c
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// clamp limits q to [0,1] and drops floating point noise left by the
// penalty arithmetic.
func clamp(q float64) float64 {
	q = math.Round(q*1e9) / 1e9
	return math.Min(1, math.Max(0, q))
}
