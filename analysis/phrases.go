package analysis

import "regexp"

type phrasePattern struct {
	re    *regexp.Regexp
	token string
}

// phrasePatterns collapse multi-word peer-feedback idioms into single tokens
// that phraseLexicon scores. Order matters: earlier patterns win on overlap.
var phrasePatterns = []phrasePattern{
	{regexp.MustCompile(`(?i)\b(can\s+)?create\s+challenges\b`), "create_challenges"},
	{regexp.MustCompile(`(?i)\b(dominate|dominates|dominating)\s+discussions?\b`), "dominate_discussions"},
	{regexp.MustCompile(`(?i)\brush\s+through\s+tasks?\b`), "rush_through_tasks"},
	{regexp.MustCompile(`(?i)\bminor\s+misunderstandings?\b`), "minor_misunderstandings"},
	{regexp.MustCompile(`(?i)\b(in)?consistenc(y|ies)\b`), "inconsistencies"},
	{regexp.MustCompile(`(?i)\bstrong\s+opinions\b`), "strong_opinions"},
	{regexp.MustCompile(`(?i)\btime\s+management\s+could\s+improve\b`), "time_mgmt_could_improve"},
	{regexp.MustCompile(`(?i)\bdelays?\s+in\s+completing\b`), "delays_in_completing"},
	{regexp.MustCompile(`(?i)\baffect(s|ed)?\s+overall\s+progress\b`), "affects_overall_progress"},
	{regexp.MustCompile(`(?i)\bneeds?\s+improvement\b`), "needs_improvement"},
	{regexp.MustCompile(`(?i)\broom\s+for\s+improvement\b`), "room_for_improvement"},
	{regexp.MustCompile(`(?i)\bdid\s+most\s+of\s+the\s+work(\s+(for|within)\s+(the\s+)?(team|group))?\b`), "did_most_of_work"},
	{regexp.MustCompile(`(?i)\bi\s+did\s+a\s+lot\s+(for|of)\s+(the\s+)?team\b`), "did_a_lot_for_team"},
	{regexp.MustCompile(`(?i)\bgood\s+job\b`), "good_job"},
	{regexp.MustCompile(`(?i)\bdid\s+not\s+do\s+much(\s+at\s+all)?\b`), "did_not_do_much"},
	{regexp.MustCompile(`(?i)\bdid\s+not\s+contribut(e|ed)\s+at\s+all\b`), "did_not_contribute_at_all"},
}

var phraseLexicon = map[string]float64{
	"create_challenges":         -3.1,
	"dominate_discussions":      -3.0,
	"rush_through_tasks":        -2.7,
	"minor_misunderstandings":   -1.8,
	"inconsistencies":           -2.4,
	"strong_opinions":           -1.4,
	"time_mgmt_could_improve":   -2.6,
	"delays_in_completing":      -2.8,
	"affects_overall_progress":  -2.6,
	"needs_improvement":         -2.9,
	"room_for_improvement":      -2.2,
	"did_most_of_work":          3.1,
	"did_a_lot_for_team":        2.8,
	"good_job":                  2.3,
	"did_not_do_much":           -3.2,
	"did_not_contribute_at_all": -3.6,
}

// PreprocessPhrases replaces known idioms with their phrase tokens.
func PreprocessPhrases(text string) string {
	for _, p := range phrasePatterns {
		text = p.re.ReplaceAllString(text, p.token)
	}
	return text
}
