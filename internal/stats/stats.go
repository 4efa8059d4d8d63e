// Package stats computes the headline counts and breakdowns shown on the
// overview screen.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/leaderboard"
)

// Uncategorized labels negative feedback without a theme.
const Uncategorized = "Uncategorized"

// Summary holds the headline counts.
type Summary struct {
	Pending         int    `json:"pending"`
	ApprovedCount   int    `json:"approvedCount"`
	NegativeFlagged int    `json:"negativeFlagged"`
	AvgSentiment    string `json:"avgSentiment"`
	Total           int    `json:"total"`
}

// Summarize counts pending, approved and negative items and the share of
// positive items.
func Summarize(items []feedback.Item) Summary {
	var s Summary
	positives := 0
	for _, it := range items {
		switch it.Status {
		case feedback.StatusPending:
			s.Pending++
		case feedback.StatusApproved:
			s.ApprovedCount++
		}
		if IsNegative(it) {
			s.NegativeFlagged++
		}
		if it.Sentiment == feedback.SentimentPositive {
			positives++
		}
	}
	s.Total = len(items)
	pct := math.Round(float64(positives) / float64(max(len(items), 1)) * 100)
	s.AvgSentiment = fmt.Sprintf("%d%% positive", int(pct))
	return s
}

// IsNegative reports whether it counts as negative feedback.
func IsNegative(it feedback.Item) bool {
	return it.Sentiment == feedback.SentimentNegative || it.Status == feedback.StatusFlaggedNegative
}

// Count is a labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// NegativeThemes tallies negative items by theme, most frequent first.
func NegativeThemes(items []feedback.Item) []Count {
	t := newTally()
	for _, it := range items {
		if !IsNegative(it) {
			continue
		}
		key := it.Theme
		if key == "" {
			key = Uncategorized
		}
		t.add(key)
	}
	return t.sorted()
}

// TeamBreakdown tallies approved, non-negative items per team.
func TeamBreakdown(items []feedback.Item) []Count {
	t := newTally()
	for _, it := range leaderboard.Eligible(items) {
		t.add(it.Team)
	}
	return t.sorted()
}

// SourceCounts tallies items per source channel.
func SourceCounts(items []feedback.Item) []Count {
	t := newTally()
	for _, it := range items {
		t.add(string(it.Source))
	}
	return t.sorted()
}

// TopThemes collects distinct themes from the weekly ranking, in ranking
// order, up to n.
func TopThemes(board leaderboard.Board, n int) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range board.WeeklyTop {
		for _, th := range r.Themes {
			if seen[th] {
				continue
			}
			seen[th] = true
			out = append(out, th)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}

type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *tally) sorted() []Count {
	out := make([]Count, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Count{Label: k, Count: t.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
