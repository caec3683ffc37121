// Package sentiment derives a per-message emotional signal used to condition
// prompt construction. Scoring is deterministic, lexicon-based (VADER), and
// never fails; unrecognized text is neutral.
package sentiment
