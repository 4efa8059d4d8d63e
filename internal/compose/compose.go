// Package compose renders the weekly recognition digest shown on the TV
// screen as Markdown.
package compose

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/leaderboard"
	"github.com/TobiSchelling/reviewdash/internal/stats"
)

const (
	defaultTheme  = "Fast resolution"
	defaultReason = "Consistent great feedback"
	maxKeywords   = 6
)

// WeekRange labels the seven days starting at weekStart, e.g.
// "Week of 09 Feb - 15 Feb".
func WeekRange(weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("Week of %s - %s", weekStart.Format("02 Jan"), end.Format("02 Jan"))
}

// MonthLabel returns e.g. "February 2026".
func MonthLabel(now time.Time) string {
	return now.Format("January 2006")
}

// Initials returns up to two upper-case initials of name.
func Initials(name string) string {
	var b strings.Builder
	for i, part := range strings.Fields(name) {
		if i == 2 {
			break
		}
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
	}
	return b.String()
}

// Ticker returns the rotating status lines of the TV footer.
func Ticker(items []feedback.Item, board leaderboard.Board) []string {
	approved := len(leaderboard.Eligible(items))
	summary := stats.Summarize(items)

	theme := defaultTheme
	if len(board.WeeklyTop) > 0 && len(board.WeeklyTop[0].Themes) > 0 {
		theme = board.WeeklyTop[0].Themes[0]
	}

	google := 0
	for _, it := range items {
		if it.Source == feedback.SourceGoogle {
			google++
		}
	}

	return []string{
		fmt.Sprintf("Approved: %d · Pending review: %d", approved, summary.Pending),
		"Top theme: " + theme,
		fmt.Sprintf("Google reviews: %d", google),
		fmt.Sprintf("Total reviews: %d", len(items)),
	}
}

// Digest renders the weekly ranking, monthly podium, highlights and ticker.
func Digest(snap feedback.Snapshot, board leaderboard.Board, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s recognition\n\n", snap.Brand.Name)
	fmt.Fprintf(&b, "_%s · %s_\n\n", WeekRange(board.WeekStart), MonthLabel(now))

	b.WriteString("## This week\n\n")
	if len(board.WeeklyTop) == 0 {
		b.WriteString("No approved feedback this week yet.\n\n")
	} else {
		b.WriteString("| # | Agent | Team | Mentions | Score | Why |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for i, r := range board.WeeklyTop {
			reason := strings.Join(r.Themes, " · ")
			if reason == "" {
				reason = defaultReason
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %s |\n",
				i+1, escape(r.Agent), escape(r.Team), r.Count, round(r.Score), escape(reason))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Month to date\n\n")
	if len(board.MonthlyTop) == 0 {
		b.WriteString("No approved feedback this month yet.\n\n")
	}
	for i, r := range board.MonthlyTop {
		fmt.Fprintf(&b, "%d. **%s** (%s) · %s · MTD score %d", i+1, r.Agent, Initials(r.Agent), r.Team, round(r.Score))
		if len(r.Themes) > 0 {
			fmt.Fprintf(&b, " · %s", strings.Join(r.Themes, ", "))
		}
		b.WriteString("\n")
	}
	if len(board.MonthlyTop) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Highlights\n\n")
	if len(board.Highlights) == 0 {
		b.WriteString("No approved highlights yet. Approve items in the manager portal to see them here.\n\n")
	}
	for _, it := range board.Highlights {
		quote := it.TVSnippet
		if quote == "" {
			quote = it.Text
		}
		fmt.Fprintf(&b, "> \"%s\"\n>\n> %s, %s", quote, it.Agent, it.Team)
		if it.Theme != "" {
			fmt.Fprintf(&b, " · Theme: %s", it.Theme)
		}
		fmt.Fprintf(&b, " · %s\n", it.Source)
		if kw := it.Keywords; len(kw) > 0 {
			if len(kw) > maxKeywords {
				kw = kw[:maxKeywords]
			}
			fmt.Fprintf(&b, ">\n> `%s`\n", strings.Join(kw, "` `"))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(strings.Join(Ticker(snap.Items, board), "  ·  "))
	b.WriteString("\n")
	return b.String()
}

func round(f float64) int {
	return int(math.Round(f))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
