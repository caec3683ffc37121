// ABOUTME: Lexicon-based sentiment scoring for user messages
// ABOUTME: Wraps the VADER analyzer and maps compound scores onto a small emotion taxonomy

package sentiment

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Emotion labels produced by the scorer.
const (
	EmotionNegative = "negative"
	EmotionNeutral  = "neutral"
	EmotionPositive = "positive"
)

// neutralThreshold is the compound-score band treated as neutral.
// Matches the conventional VADER classification cutoff.
const neutralThreshold = 0.05

// Sample is the derived emotional signal for a single user turn.
type Sample struct {
	Emotion    string  `json:"emotion"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Scorer scores message text deterministically. Scoring never fails:
// text with no recognizable lexicon hits comes back neutral.
type Scorer struct {
	mu       sync.Mutex
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer creates a scorer backed by the VADER sentiment lexicon.
func NewScorer() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the sentiment sample for the given text. The compound
// polarity score lies in [-1, 1]; confidence is its magnitude. Empty or
// whitespace-only text is neutral with zero confidence.
func (s *Scorer) Score(text string) Sample {
	if strings.TrimSpace(text) == "" {
		return Sample{Emotion: EmotionNeutral}
	}

	// The analyzer is not documented as safe for concurrent use.
	s.mu.Lock()
	scores := s.analyzer.PolarityScores(text)
	s.mu.Unlock()

	compound := scores.Compound
	sample := Sample{
		Score:      compound,
		Confidence: abs(compound),
	}

	switch {
	case compound <= -neutralThreshold:
		sample.Emotion = EmotionNegative
	case compound >= neutralThreshold:
		sample.Emotion = EmotionPositive
	default:
		sample.Emotion = EmotionNeutral
	}

	return sample
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
