// Package leaderboard ranks agents by the summed score of their approved
// feedback over the current week and month.
package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/scoring"
)

// Highlight orders.
const (
	HighlightRecent = "recent"
	HighlightScore  = "score"
)

// UnassignedTeam labels groups keyed by a fallback instead of a real agent.
const UnassignedTeam = "Unassigned"

// Options tune the aggregation.
type Options struct {
	Scorer     scoring.Scorer
	WeeklyTop  int
	MonthlyTop int
	Highlights int
	// HighlightOrder is HighlightRecent (all eligible items, newest first)
	// or HighlightScore (this week's items, best score first).
	HighlightOrder string
	// AgentFallback keys unassigned items by reviewer name, then item id,
	// instead of pooling them under Unknown.
	AgentFallback bool
}

// DefaultOptions returns the stock caps with the tiered scorer.
func DefaultOptions() Options {
	return Options{
		Scorer:         scoring.Default(),
		WeeklyTop:      5,
		MonthlyTop:     5,
		Highlights:     20,
		HighlightOrder: HighlightRecent,
		AgentFallback:  true,
	}
}

// AgentRank is one row of a ranking.
type AgentRank struct {
	Agent  string   `json:"agent"`
	Team   string   `json:"team"`
	Score  float64  `json:"score"`
	Count  int      `json:"count"`
	Themes []string `json:"themes"`
}

// Board is the result of Aggregate.
type Board struct {
	WeekStart  time.Time       `json:"weekStart"`
	MonthStart time.Time       `json:"monthStart"`
	WeeklyTop  []AgentRank     `json:"weeklyTop"`
	MonthlyTop []AgentRank     `json:"monthlyTop"`
	Highlights []feedback.Item `json:"highlights"`
}

// WeekStart returns the Monday 00:00 on or before now, in now's location.
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	d := now.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

// MonthStart returns the first day of now's month at 00:00.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Eligible returns the approved, non-negative items, preserving order.
func Eligible(items []feedback.Item) []feedback.Item {
	out := make([]feedback.Item, 0, len(items))
	for _, it := range items {
		if it.Eligible() {
			out = append(out, it)
		}
	}
	return out
}

// Since returns the items created at or after start.
func Since(items []feedback.Item, start time.Time) []feedback.Item {
	out := make([]feedback.Item, 0, len(items))
	for _, it := range items {
		if !it.CreatedAt.Before(start) {
			out = append(out, it)
		}
	}
	return out
}

// Aggregate builds the weekly and monthly rankings and the highlight reel.
func Aggregate(items []feedback.Item, now time.Time, opts Options) Board {
	if opts.Scorer == nil {
		opts.Scorer = scoring.Default()
	}
	eligible := Eligible(items)

	b := Board{
		WeekStart:  WeekStart(now),
		MonthStart: MonthStart(now),
	}
	inWeek := Since(eligible, b.WeekStart)
	inMonth := Since(eligible, b.MonthStart)

	b.WeeklyTop = capped(Rank(inWeek, opts), opts.WeeklyTop)
	b.MonthlyTop = capped(Rank(inMonth, opts), opts.MonthlyTop)
	b.Highlights = highlights(eligible, inWeek, opts)
	return b
}

// AgentKey returns the grouping key for it. Unassigned items fall back to
// the reviewer name, then the item id, when fallback is enabled.
func AgentKey(it feedback.Item, fallback bool) string {
	if it.Assigned() {
		return it.Agent
	}
	if !fallback {
		return feedback.Unknown
	}
	if it.ReviewerName != nil && *it.ReviewerName != "" {
		return *it.ReviewerName
	}
	return it.ID
}

type group struct {
	rank       AgentRank
	themeCount map[string]int
	themeOrder []string
}

// Rank groups items by agent key and orders the groups by summed score.
// Groups with equal scores keep the order in which they were first seen.
// The returned list is complete; callers cap it.
func Rank(items []feedback.Item, opts Options) []AgentRank {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.Default()
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, it := range items {
		key := AgentKey(it, opts.AgentFallback)
		g, ok := byKey[key]
		if !ok {
			g = &group{
				rank:       AgentRank{Agent: key},
				themeCount: make(map[string]int),
			}
			byKey[key] = g
			groups = append(groups, g)
		}
		if g.rank.Team == "" && it.Assigned() {
			g.rank.Team = it.Team
		}
		g.rank.Score += scorer.Score(it)
		g.rank.Count++
		if it.Theme != "" {
			if g.themeCount[it.Theme] == 0 {
				g.themeOrder = append(g.themeOrder, it.Theme)
			}
			g.themeCount[it.Theme]++
		}
	}

	out := make([]AgentRank, 0, len(groups))
	for _, g := range groups {
		r := g.rank
		if r.Team == "" {
			r.Team = fallbackTeam(r.Agent)
		}
		r.Themes = topThemes(g.themeOrder, g.themeCount, 3)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func fallbackTeam(agent string) string {
	if agent == feedback.Unknown {
		return feedback.Unknown
	}
	return UnassignedTeam
}

// topThemes returns up to n themes by descending count; order holds first
// appearance and breaks ties.
func topThemes(order []string, counts map[string]int, n int) []string {
	themes := append([]string{}, order...)
	sort.SliceStable(themes, func(i, j int) bool { return counts[themes[i]] > counts[themes[j]] })
	if len(themes) > n {
		themes = themes[:n]
	}
	return themes
}

func highlights(eligible, inWeek []feedback.Item, opts Options) []feedback.Item {
	var out []feedback.Item
	switch opts.HighlightOrder {
	case HighlightScore:
		out = cloneItems(inWeek)
		scores := make(map[string]float64, len(out))
		for _, it := range out {
			scores[it.ID] = opts.Scorer.Score(it)
		}
		sort.SliceStable(out, func(i, j int) bool { return scores[out[i].ID] > scores[out[j].ID] })
	default:
		out = cloneItems(eligible)
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return capped(out, opts.Highlights)
}

func cloneItems(items []feedback.Item) []feedback.Item {
	out := make([]feedback.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// capped returns at most n elements; n <= 0 means no cap.
func capped[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// ValidateOrder reports an error for an unknown highlight order.
func ValidateOrder(order string) error {
	switch order {
	case "", HighlightRecent, HighlightScore:
		return nil
	}
	return fmt.Errorf("unknown highlight order %q", order)
}
