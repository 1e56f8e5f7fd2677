package analysis

import (
	"math"
	"regexp"
	"strings"
)

// Scores are the raw valence scores of a text.
type Scores struct {
	Compound float64
	Pos      float64
	Neu      float64
	Neg      float64
}

// Scorer is the sentiment model. Implementations must be safe for concurrent
// use.
type Scorer interface {
	PolarityScores(text string) Scores
}

const (
	// normalizeAlpha bounds the compound score to (-1, 1).
	normalizeAlpha = 15.0
	// negationScalar flips and dampens a valence preceded by a negation.
	negationScalar = -0.74
	// boosterIncrement is added to the magnitude of a valence after an intensifier.
	boosterIncrement = 0.293
	// negationWindow is how many preceding tokens are searched for a negation.
	negationWindow = 3
)

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}_']+`)

// baseLexicon holds common evaluative words in peer feedback, on a -4..+4
// scale.
var baseLexicon = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "excellent": 3.2, "amazing": 2.8, "awesome": 3.1,
	"nice": 1.8, "love": 3.2, "loved": 2.9, "like": 1.5, "best": 3.2, "better": 1.9,
	"happy": 2.7, "helpful": 1.9, "help": 1.7, "helped": 1.8, "supportive": 2.1,
	"reliable": 1.9, "responsive": 1.5, "friendly": 2.2, "kind": 2.4,
	"thank": 1.5, "thanks": 1.9, "appreciate": 2.1, "appreciated": 2.3,
	"hardworking": 2.0, "dedicated": 2.0, "creative": 1.9, "positive": 2.6,
	"fantastic": 2.6, "wonderful": 2.7, "outstanding": 3.0, "perfect": 2.7,
	"strong": 2.3, "clear": 1.6, "organized": 1.5, "proactive": 1.6,
	"contributed": 1.3, "valuable": 2.1, "easy": 1.9, "enjoyed": 2.3,
	"well": 1.1, "pleasure": 2.7, "impressive": 2.3, "efficient": 1.8,

	// negative
	"bad": -2.5, "poor": -2.1, "terrible": -2.1, "awful": -2.0, "horrible": -2.5,
	"lazy": -1.8, "rude": -2.0, "angry": -2.3, "annoying": -1.8, "careless": -1.5,
	"absent": -1.4, "missing": -1.2, "missed": -1.1, "ignored": -1.4,
	"unhelpful": -1.9, "disappointing": -2.2, "disappointed": -1.9,
	"worst": -3.1, "worse": -2.1, "fail": -2.5, "failed": -2.3, "wrong": -2.1,
	"hate": -2.7, "stupid": -2.4, "idiot": -2.3, "useless": -1.8, "worthless": -1.9,
	"garbage": -1.6, "trash": -1.6, "loser": -2.4, "moron": -2.2, "toxic": -2.5,
	"selfish": -2.1, "unfair": -2.1, "unprofessional": -2.0,
}

// feedbackLexicon tunes weak criticism that is common in academic peer
// feedback and would otherwise score neutral.
var feedbackLexicon = map[string]float64{
	"concern": -2.6, "concerns": -2.6, "issue": -2.6, "issues": -2.6,
	"problem": -2.9, "problems": -2.9, "challenge": -2.6, "challenges": -2.6,
	"difficult": -2.1, "difficulty": -2.1, "difficulties": -2.1,
	"delay": -2.5, "delayed": -2.5, "late": -2.5, "inconsistent": -2.6,
	"inconsistency": -2.6, "struggle": -2.7, "struggles": -2.7,
	"unreliable": -3.0, "unresponsive": -3.0, "lack": -2.4, "lacking": -2.4,
	"insufficient": -2.6, "inflexible": -2.8, "dominating": -2.8,
	"dominant": -2.6, "needs": -1.2, "improvement": -1.2, "improve": -1.2,
	"improving": -1.0, "blocking": -2.9, "obstructive": -3.2,
	"conflict": -2.9, "frustrating": -3.0, "frustration": -3.0,
}

var boosters = map[string]bool{
	"very": true, "really": true, "extremely": true, "incredibly": true,
	"so": true, "super": true, "highly": true, "truly": true, "totally": true,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nobody": true,
	"nothing": true, "neither": true, "nor": true, "without": true,
	"cannot": true, "cant": true, "dont": true, "didnt": true, "doesnt": true,
	"isnt": true, "wasnt": true, "wont": true, "hardly": true,
}

func isNegation(tok string) bool {
	return negations[tok] || strings.HasSuffix(tok, "n't")
}

// LexiconScorer is a small valence-lexicon scorer in the style of VADER. It
// stands in for a full sentiment model and has no sentence-level heuristics
// beyond intensifiers and negation.
type LexiconScorer struct {
	lexicon map[string]float64
}

// NewLexiconScorer returns a scorer with the base, feedback and phrase
// lexicons merged. extra entries override the built-in ones.
func NewLexiconScorer(extra map[string]float64) *LexiconScorer {
	lex := make(map[string]float64, len(baseLexicon)+len(feedbackLexicon)+len(phraseLexicon)+len(extra))
	for _, m := range []map[string]float64{baseLexicon, feedbackLexicon, phraseLexicon, extra} {
		for k, v := range m {
			lex[k] = v
		}
	}
	return &LexiconScorer{lexicon: lex}
}

func (s *LexiconScorer) PolarityScores(text string) Scores {
	tokens := tokenRE.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return Scores{Neu: 1}
	}

	var (
		sum, posSum, negSum float64
		neutral             int
	)
	for i, tok := range tokens {
		v, ok := s.lexicon[tok]
		if !ok || v == 0 {
			neutral++
			continue
		}

		if i > 0 && boosters[tokens[i-1]] {
			if v > 0 {
				v += boosterIncrement
			} else {
				v -= boosterIncrement
			}
		}
		for j := max(0, i-negationWindow); j < i; j++ {
			if isNegation(tokens[j]) {
				v *= negationScalar
				break
			}
		}

		sum += v
		// Each sentiment-bearing word also counts once toward its side.
		if v > 0 {
			posSum += v + 1
		} else {
			negSum += v - 1
		}
	}

	compound := sum / math.Sqrt(sum*sum+normalizeAlpha)
	total := posSum + math.Abs(negSum) + float64(neutral)
	return Scores{
		Compound: round(compound, 4),
		Pos:      round(posSum/total, 3),
		Neu:      round(float64(neutral)/total, 3),
		Neg:      round(math.Abs(negSum)/total, 3),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
