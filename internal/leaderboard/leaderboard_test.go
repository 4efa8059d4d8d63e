package leaderboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/scoring"
	"github.com/TobiSchelling/reviewdash/internal/seed"
)

// Wednesday 11 February 2026.
var wednesday = time.Date(2026, 2, 11, 14, 25, 0, 0, time.UTC)

func approved(id, agent, team string, created time.Time, rating int) feedback.Item {
	return feedback.Item{
		ID:        id,
		CreatedAt: created,
		Status:    feedback.StatusApproved,
		Sentiment: feedback.SentimentPositive,
		Agent:     agent,
		Team:      team,
		Rating:    feedback.IntPtr(rating),
		Keywords:  []string{},
	}
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, monday, WeekStart(wednesday))
	assert.Equal(t, monday, WeekStart(time.Date(2026, 2, 15, 23, 59, 0, 0, time.UTC)), "sunday belongs to the week started six days before")
	assert.Equal(t, monday, WeekStart(time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)))

	// Across a month boundary.
	assert.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), WeekStart(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestWeekStartUsesLocation(t *testing.T) {
	loc := time.FixedZone("SAST", 2*60*60)
	// Monday 00:30 local is still Sunday in UTC.
	now := time.Date(2026, 2, 9, 0, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, loc), WeekStart(now))
}

func TestMonthStart(t *testing.T) {
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(wednesday))
}

func TestEligible(t *testing.T) {
	items := []feedback.Item{
		{ID: "a", Status: feedback.StatusApproved, Sentiment: feedback.SentimentPositive},
		{ID: "b", Status: feedback.StatusApproved, Sentiment: feedback.SentimentNegative},
		{ID: "c", Status: feedback.StatusPending, Sentiment: feedback.SentimentPositive},
		{ID: "d", Status: feedback.StatusApproved, Sentiment: feedback.SentimentNeutral},
	}
	got := Eligible(items)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestAggregateRanking(t *testing.T) {
	items := []feedback.Item{
		approved("1", "Kyle Jacobs", "Sales", wednesday.Add(-time.Hour), 4),
		approved("2", "Leah Mokoena", "Support", wednesday.Add(-2*time.Hour), 5),
		approved("3", "Kyle Jacobs", "Sales", wednesday.Add(-3*time.Hour), 4),
		approved("4", "Mia van Wyk", "Sales", wednesday.AddDate(0, 0, -5), 5), // last week, same month
	}

	b := Aggregate(items, wednesday, DefaultOptions())

	require.Len(t, b.WeeklyTop, 2)
	assert.Equal(t, AgentRank{Agent: "Kyle Jacobs", Team: "Sales", Score: 14, Count: 2, Themes: []string{}}, b.WeeklyTop[0])
	assert.Equal(t, "Leah Mokoena", b.WeeklyTop[1].Agent)

	require.Len(t, b.MonthlyTop, 3)
	assert.Equal(t, "Kyle Jacobs", b.MonthlyTop[0].Agent)
	// Leah and Mia tie on 10; Leah was seen first.
	assert.Equal(t, "Leah Mokoena", b.MonthlyTop[1].Agent)
	assert.Equal(t, "Mia van Wyk", b.MonthlyTop[2].Agent)
}

func TestAggregateCaps(t *testing.T) {
	var items []feedback.Item
	for i := 0; i < 8; i++ {
		items = append(items, approved(fmt.Sprint(i), fmt.Sprintf("Agent %d", i), "Sales", wednesday.Add(-time.Duration(i)*time.Minute), 5))
	}
	opts := DefaultOptions()
	opts.WeeklyTop = 5
	opts.MonthlyTop = 2
	opts.Highlights = 3

	b := Aggregate(items, wednesday, opts)
	assert.Len(t, b.WeeklyTop, 5)
	assert.Len(t, b.MonthlyTop, 2)
	require.Len(t, b.Highlights, 3)
	assert.Equal(t, "0", b.Highlights[0].ID)
}

func TestAggregateWeeklyTopOnlyEligibleAgents(t *testing.T) {
	opts := seed.DefaultOptions(wednesday)
	items := seed.Generate(opts)

	eligibleKeys := make(map[string]bool)
	for _, it := range Eligible(items) {
		eligibleKeys[AgentKey(it, true)] = true
	}

	lb := DefaultOptions()
	lb.WeeklyTop = 0
	b := Aggregate(items, wednesday, lb)
	for _, r := range b.WeeklyTop {
		assert.True(t, eligibleKeys[r.Agent], "agent %s has no eligible items", r.Agent)
	}
}

func TestRankCountsEveryItemOnce(t *testing.T) {
	items := seed.Generate(seed.DefaultOptions(wednesday))
	inWeek := Since(Eligible(items), WeekStart(wednesday))

	for _, fallback := range []bool{true, false} {
		opts := DefaultOptions()
		opts.AgentFallback = fallback
		total := 0
		for _, r := range Rank(inWeek, opts) {
			total += r.Count
		}
		assert.Equal(t, len(inWeek), total, "fallback=%v", fallback)
	}
}

func TestRankAgentFallback(t *testing.T) {
	anon := approved("GR-9", feedback.Unknown, feedback.Unknown, wednesday, 5)
	anon.ReviewerName = feedback.StringPtr("Jo Soap")
	bare := approved("GR-10", feedback.Unknown, feedback.Unknown, wednesday, 4)

	opts := DefaultOptions()
	got := Rank([]feedback.Item{anon, bare}, opts)
	require.Len(t, got, 2)
	assert.Equal(t, "Jo Soap", got[0].Agent)
	assert.Equal(t, UnassignedTeam, got[0].Team)
	assert.Equal(t, "GR-10", got[1].Agent)

	opts.AgentFallback = false
	got = Rank([]feedback.Item{anon, bare}, opts)
	require.Len(t, got, 1)
	assert.Equal(t, feedback.Unknown, got[0].Agent)
	assert.Equal(t, feedback.Unknown, got[0].Team)
	assert.Equal(t, 2, got[0].Count)
}

func TestRankTeamFromFirstAssignedItem(t *testing.T) {
	a := approved("1", "Kyle Jacobs", "", wednesday, 5)
	b := approved("2", "Kyle Jacobs", "Sales", wednesday, 5)
	got := Rank([]feedback.Item{a, b}, DefaultOptions())
	require.Len(t, got, 1)
	// The first assigned item has an empty team, so the label stays empty
	// until an item provides one.
	assert.Equal(t, "Sales", got[0].Team)
}

func TestRankThemes(t *testing.T) {
	themes := []string{"Slow", "Fast", "Kind", "Fast", "Clear", "Kind"}
	var items []feedback.Item
	for i, th := range themes {
		it := approved(fmt.Sprint(i), "Kyle Jacobs", "Sales", wednesday, 5)
		it.Theme = th
		items = append(items, it)
	}
	items = append(items, approved("x", "Kyle Jacobs", "Sales", wednesday, 5))

	got := Rank(items, DefaultOptions())
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Fast", "Kind", "Slow"}, got[0].Themes)
}

func TestHighlightOrders(t *testing.T) {
	low := approved("low", "A", "Sales", wednesday.Add(-time.Hour), 2)
	high := approved("high", "B", "Sales", wednesday.Add(-2*time.Hour), 5)
	old := approved("old", "C", "Sales", wednesday.AddDate(0, 0, -20), 5)
	items := []feedback.Item{old, high, low}

	opts := DefaultOptions()
	b := Aggregate(items, wednesday, opts)
	assert.Equal(t, []string{"low", "high", "old"}, ids(b.Highlights))

	opts.HighlightOrder = HighlightScore
	b = Aggregate(items, wednesday, opts)
	assert.Equal(t, []string{"high", "low"}, ids(b.Highlights))
}

func TestAggregateUsesScorer(t *testing.T) {
	items := []feedback.Item{
		approved("1", "A", "Sales", wednesday, 1),
		approved("2", "B", "Sales", wednesday, 5),
	}
	opts := DefaultOptions()
	opts.Scorer = scoring.Func(func(it feedback.Item) float64 { return -float64(*it.Rating) })

	b := Aggregate(items, wednesday, opts)
	assert.Equal(t, "A", b.WeeklyTop[0].Agent)
	assert.Equal(t, -1.0, b.WeeklyTop[0].Score)
}

func TestAggregateEmpty(t *testing.T) {
	b := Aggregate(nil, wednesday, DefaultOptions())
	assert.Empty(t, b.WeeklyTop)
	assert.Empty(t, b.MonthlyTop)
	assert.Empty(t, b.Highlights)
}

func TestValidateOrder(t *testing.T) {
	assert.NoError(t, ValidateOrder(HighlightScore))
	assert.Error(t, ValidateOrder("random"))
}

func ids(items []feedback.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
