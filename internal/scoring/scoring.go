// Package scoring assigns a quality score to a feedback item for ranking.
package scoring

import (
	"fmt"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Profile names.
const (
	ProfileTiered   = "tiered"
	ProfileWeighted = "weighted"
)

// Scorer computes the score of one item. Implementations must be total and
// pure.
type Scorer interface {
	Score(it feedback.Item) float64
}

// Func adapts a plain function to Scorer.
type Func func(it feedback.Item) float64

func (f Func) Score(it feedback.Item) float64 { return f(it) }

// Tiered maps the customer rating and the manager rating through the same
// step table and adds them. Sentiment and keywords do not contribute.
type Tiered struct {
	// Tiers[n] is the value of an n-star rating. Index 0 covers a missing
	// rating.
	Tiers [6]float64
}

// DefaultTiered returns the 5→10, 4→7, 3→3, 2→1 table.
func DefaultTiered() Tiered {
	return Tiered{Tiers: [6]float64{0, 0, 1, 3, 7, 10}}
}

func (t Tiered) Score(it feedback.Item) float64 {
	return t.tier(it.Rating) + t.tier(it.ManagerRating)
}

func (t Tiered) tier(r *int) float64 {
	if r == nil {
		return 0
	}
	n := min(max(*r, 0), 5)
	return t.Tiers[n]
}

// Weighted combines rating, sentiment, keyword count and theme presence.
type Weighted struct {
	RatingWeight  float64
	Positive      float64
	Neutral       float64
	Negative      float64
	KeywordWeight float64
	KeywordCap    float64
	ThemeBonus    float64
}

// DefaultWeighted returns the stock weights.
func DefaultWeighted() Weighted {
	return Weighted{
		RatingWeight:  8,
		Positive:      35,
		Neutral:       12,
		Negative:      -30,
		KeywordWeight: 5,
		KeywordCap:    25,
		ThemeBonus:    8,
	}
}

func (w Weighted) Score(it feedback.Item) float64 {
	var s float64
	if it.Rating != nil {
		s += float64(*it.Rating) * w.RatingWeight
	}
	switch it.Sentiment {
	case feedback.SentimentPositive:
		s += w.Positive
	case feedback.SentimentNeutral:
		s += w.Neutral
	default:
		s += w.Negative
	}
	s += min(w.KeywordCap, float64(len(it.Keywords))*w.KeywordWeight)
	if it.Theme != "" {
		s += w.ThemeBonus
	}
	return s
}

// Default is the tiered profile with its stock table.
func Default() Scorer {
	return DefaultTiered()
}

// ByName returns the named profile, using tiered and weighted as the
// constants for the respective profile.
func ByName(name string, tiered Tiered, weighted Weighted) (Scorer, error) {
	switch name {
	case "", ProfileTiered:
		return tiered, nil
	case ProfileWeighted:
		return weighted, nil
	default:
		return nil, fmt.Errorf("unknown scoring profile %q", name)
	}
}
