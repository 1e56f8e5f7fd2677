package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Labels assigned to a comment.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
	LabelToxic    = "toxic"
)

const (
	// PositiveThreshold is the minimum polarity labelled positive.
	PositiveThreshold = 0.62
	// NegativeThreshold is the maximum polarity labelled negative.
	NegativeThreshold = 0.44
	// ToxicCompoundCeiling is the highest compound a toxic comment keeps.
	ToxicCompoundCeiling = -0.6
)

// Score total bands checked for disparity. They are fixed, independent of the
// score range the caller reports.
const (
	DisparityLowMin  = 5.0
	DisparityLowMax  = 10.0
	DisparityHighMin = 20.0
	DisparityHighMax = 25.0
)

var (
	toxicRE    = regexp.MustCompile(`(?i)\b(dumbass|idiot|stupid|moron|useless|garbage|trash|loser|worthless|asshole|bitch|fuck|shit|hate|toxic)\b`)
	contrastRE = regexp.MustCompile(`(?i)\b(but|however|although|though|yet|while|despite)\b`)
	negTailRE  = regexp.MustCompile(`(?i)\b(challenge|problem|concern|delay|inflexible|issue|struggle)\b`)
	wordRE     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Result is the analysis of one comment, in the wire shape returned by the
// analysis endpoint.
type Result struct {
	Label           string          `json:"label"`
	Score           float64         `json:"score"`
	Confidence      float64         `json:"confidence"`
	Compound        float64         `json:"compound"`
	Pos             float64         `json:"pos"`
	Neu             float64         `json:"neu"`
	Neg             float64         `json:"neg"`
	Toxic           bool            `json:"toxic"`
	WordCount       int             `json:"word_count"`
	CharCount       int             `json:"char_count"`
	Disparity       bool            `json:"disparity"`
	DisparityReason *string         `json:"disparity_reason"`
	SuggestConfirm  bool            `json:"suggest_confirm"`
	ID              json.RawMessage `json:"id,omitempty"`
}

// Analyzer labels comments and flags disagreement between a comment and the
// numeric score that accompanies it.
type Analyzer struct {
	scorer Scorer
}

// NewAnalyzer wraps scorer. A nil scorer uses the built-in LexiconScorer.
func NewAnalyzer(scorer Scorer) *Analyzer {
	if scorer == nil {
		scorer = NewLexiconScorer(nil)
	}
	return &Analyzer{scorer: scorer}
}

// Polarity maps a compound score in [-1, 1] to [0, 1].
func Polarity(compound float64) float64 {
	return min(1, max(0, (compound+1)/2))
}

// LabelFor labels a compound score.
func LabelFor(compound float64) string {
	p := Polarity(compound)
	switch {
	case p >= PositiveThreshold:
		return LabelPositive
	case p <= NegativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// IsToxic reports whether text contains abusive language.
func IsToxic(text string) bool {
	return toxicRE.MatchString(text)
}

// Analyze scores text. scoreTotal is the sum of the numeric ratings the same
// rater gave the same ratee; nil disables the disparity check.
func (a *Analyzer) Analyze(text string, scoreTotal *float64) Result {
	tx := strings.TrimSpace(text)

	res := Result{
		WordCount: len(wordRE.FindAllString(tx, -1)),
		CharCount: utf8.RuneCountInString(tx),
	}

	if tx == "" {
		res.Label = LabelNeutral
		res.Score, res.Confidence = 0.5, 0.5
		res.Neu = 1
		res.Disparity, res.DisparityReason, res.SuggestConfirm = EvaluateDisparity(LabelNeutral, scoreTotal)
		return res
	}

	prepared := PreprocessPhrases(tx)
	all := a.scorer.PolarityScores(prepared)
	compound := a.contrastTailAdjustment(prepared, all.Compound)
	label := LabelFor(compound)

	res.Toxic = IsToxic(tx)
	if res.Toxic && compound > ToxicCompoundCeiling {
		compound, label = ToxicCompoundCeiling, LabelToxic
	}

	res.Label = label
	res.Compound = compound
	res.Score = Polarity(compound)
	res.Confidence = res.Score
	res.Pos, res.Neu, res.Neg = all.Pos, all.Neu, all.Neg
	res.Disparity, res.DisparityReason, res.SuggestConfirm = EvaluateDisparity(label, scoreTotal)
	return res
}

// contrastTailAdjustment lets the clause after a contrast cue ("but",
// "however") dominate the compound when it carries criticism.
func (a *Analyzer) contrastTailAdjustment(text string, base float64) float64 {
	loc := contrastRE.FindStringIndex(text)
	if loc == nil {
		return base
	}
	tail := strings.TrimSpace(text[loc[1]:])
	if tail == "" {
		return base
	}

	tscore := a.scorer.PolarityScores(tail).Compound
	negs := len(negTailRE.FindAllStringIndex(tail, -1))
	switch {
	case negs >= 3:
		return 0.97*min(tscore, -0.2) + 0.03*base
	case negs >= 1 || tscore < -0.05:
		return 0.95*tscore + 0.05*base
	default:
		return base
	}
}

// EvaluateDisparity flags a comment whose label contradicts its score total:
// a total within DisparityLowMin..DisparityLowMax with a positive comment, or
// within DisparityHighMin..DisparityHighMax with a negative or toxic one.
func EvaluateDisparity(label string, scoreTotal *float64) (bool, *string, bool) {
	if scoreTotal == nil {
		return false, nil, false
	}
	st := *scoreTotal
	total := strconv.FormatFloat(st, 'g', -1, 64)

	if st >= DisparityLowMin && st <= DisparityLowMax && label == LabelPositive {
		reason := fmt.Sprintf("Total score %s is low and the comment reads %s.", total, label)
		return true, &reason, true
	}
	if st >= DisparityHighMin && st <= DisparityHighMax && (label == LabelNegative || label == LabelToxic) {
		reason := fmt.Sprintf("Total score %s is high and the comment reads %s.", total, label)
		return true, &reason, true
	}
	return false, nil, false
}
