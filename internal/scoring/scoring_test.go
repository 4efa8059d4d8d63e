package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

func TestTieredScore(t *testing.T) {
	s := DefaultTiered()
	tests := []struct {
		rating, manager *int
		want            float64
	}{
		{nil, nil, 0},
		{feedback.IntPtr(5), nil, 10},
		{feedback.IntPtr(4), nil, 7},
		{feedback.IntPtr(3), nil, 3},
		{feedback.IntPtr(2), nil, 1},
		{feedback.IntPtr(1), nil, 0},
		{feedback.IntPtr(5), feedback.IntPtr(4), 17},
		{nil, feedback.IntPtr(5), 10},
	}
	for _, tt := range tests {
		it := feedback.Item{Rating: tt.rating, ManagerRating: tt.manager, Sentiment: feedback.SentimentNegative, Keywords: []string{"a", "b"}}
		assert.Equal(t, tt.want, s.Score(it))
	}
}

func TestWeightedScore(t *testing.T) {
	s := DefaultWeighted()

	it := feedback.Item{
		Rating:    feedback.IntPtr(5),
		Sentiment: feedback.SentimentPositive,
		Keywords:  []string{"a", "b", "c", "d", "e", "f", "g"},
		Theme:     "Fast resolution",
	}
	assert.Equal(t, 40.0+35+25+8, s.Score(it))

	assert.Equal(t, -30.0, s.Score(feedback.Item{Sentiment: feedback.SentimentNegative}))
	assert.Equal(t, 12.0+10, s.Score(feedback.Item{Sentiment: feedback.SentimentNeutral, Keywords: []string{"x", "y"}}))
}

func TestScoreMonotonicInRating(t *testing.T) {
	profiles := map[string]Scorer{ProfileTiered: DefaultTiered(), ProfileWeighted: DefaultWeighted()}
	for name, s := range profiles {
		for _, sentiment := range []feedback.Sentiment{feedback.SentimentPositive, feedback.SentimentNeutral, feedback.SentimentNegative} {
			base := feedback.Item{Sentiment: sentiment, Keywords: []string{"k"}, ManagerRating: feedback.IntPtr(3)}
			prev := s.Score(base)
			for r := 1; r <= 5; r++ {
				it := base
				it.Rating = feedback.IntPtr(r)
				got := s.Score(it)
				if got < prev {
					t.Errorf("%s: score dropped from %v to %v at rating %d (%s)", name, prev, got, r, sentiment)
				}
				prev = got
			}
		}
	}
}

func TestByName(t *testing.T) {
	s, err := ByName("", DefaultTiered(), DefaultWeighted())
	require.NoError(t, err)
	assert.IsType(t, Tiered{}, s)

	s, err = ByName(ProfileWeighted, DefaultTiered(), DefaultWeighted())
	require.NoError(t, err)
	assert.IsType(t, Weighted{}, s)

	_, err = ByName("blended", DefaultTiered(), DefaultWeighted())
	assert.Error(t, err)
}
