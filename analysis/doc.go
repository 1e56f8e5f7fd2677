// Package analysis scores free-text peer comments for the sentiment API.
//
// The model itself sits behind the Scorer interface. LexiconScorer is a
// compact valence-lexicon scorer tuned for peer feedback; a production
// deployment can plug in a full model without touching the rest.
//
// On top of the raw scores the Analyzer applies the peer-evaluation rules:
// phrase preprocessing, contrast-clause weighting, the toxic override and the
// disparity check between a comment and its numeric score total.
package analysis
