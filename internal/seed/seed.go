package seed

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Defaults reproduce the demo dataset.
const (
	DefaultCount    = 140
	DefaultDaysBack = 60
	DefaultSeed     = 19420427
)

// Options controls synthetic item generation.
type Options struct {
	Count    int
	DaysBack int
	Seed     uint32
	Now      time.Time
}

// DefaultOptions returns the demo generation settings anchored at now.
func DefaultOptions(now time.Time) Options {
	return Options{Count: DefaultCount, DaysBack: DefaultDaysBack, Seed: DefaultSeed, Now: now}
}

// Teams is the default team list.
var Teams = []string{"Sales", "Support", "Fibre Orders", "Accounts", "Walk-In Centre"}

// Agents is the default agent directory.
var Agents = []feedback.Agent{
	{ID: "AG-001", Name: "Leah Mokoena", Team: "Support", Email: "leah.mokoena@axxess.local"},
	{ID: "AG-002", Name: "Kyle Jacobs", Team: "Sales", Email: "kyle.jacobs@axxess.local"},
	{ID: "AG-003", Name: "Nandi Dlamini", Team: "Fibre Orders", Email: "nandi.dlamini@axxess.local"},
	{ID: "AG-004", Name: "Ethan Naidoo", Team: "Accounts", Email: "ethan.naidoo@axxess.local"},
	{ID: "AG-005", Name: "Ayesha Khan", Team: "Walk-In Centre", Email: "ayesha.khan@axxess.local"},
	{ID: "AG-006", Name: "Siyabonga Zulu", Team: "Support", Email: "siya.zulu@axxess.local"},
	{ID: "AG-007", Name: "Mia van Wyk", Team: "Sales", Email: "mia.vanwyk@axxess.local"},
	{ID: "AG-008", Name: "Thabo Maseko", Team: "Fibre Orders", Email: "thabo.maseko@axxess.local"},
	{ID: "AG-009", Name: "Priya Pillay", Team: "Accounts", Email: "priya.pillay@axxess.local"},
	{ID: "AG-010", Name: "Liam Smith", Team: "Walk-In Centre", Email: "liam.smith@axxess.local"},
}

// ItemPrefix marks ids of generated demo items.
const ItemPrefix = "IT-"

// Snapshot builds the canonical snapshot: brand, default directory and
// freshly generated items.
func Snapshot(opts Options, brand feedback.Brand) feedback.Snapshot {
	return feedback.Snapshot{
		Brand:  brand,
		Teams:  append([]string{}, Teams...),
		Agents: append([]feedback.Agent{}, Agents...),
		Items:  Generate(opts),
	}
}

type rosterEntry struct {
	name string
	team string
}

// Order matters: the generator picks by index.
var roster = []rosterEntry{
	{"Leah Mokoena", "Support"},
	{"Siyabonga Zulu", "Support"},
	{"Kyle Jacobs", "Sales"},
	{"Mia van Wyk", "Sales"},
	{"Nandi Dlamini", "Fibre Orders"},
	{"Thabo Maseko", "Fibre Orders"},
	{"Ethan Naidoo", "Accounts"},
	{"Priya Pillay", "Accounts"},
	{"Ayesha Khan", "Walk-In Centre"},
	{"Liam Smith", "Walk-In Centre"},
}

var (
	positiveWords = []string{"great", "exceptional", "good", "nice", "amazing", "brilliant", "helpful", "professional", "friendly", "efficient"}

	positiveThemes = map[string][]string{
		"Support":        {"Fast resolution", "Proactive updates", "Clear troubleshooting", "Friendly tone"},
		"Sales":          {"Clear communication", "Honest advice", "Quick turnaround", "Great product knowledge"},
		"Fibre Orders":   {"Quick coordination", "On-time installation", "Kept me informed", "Smooth onboarding"},
		"Accounts":       {"First-time resolution", "Billing clarity", "Helpful guidance", "Quick refund/credit"},
		"Walk-In Centre": {"Friendly service", "Patient assistance", "Quick help", "Went the extra mile"},
	}

	negativeThemes   = []string{"Installation delays", "No follow-up", "Billing confusion", "Slow response", "Poor communication", "Router issues"}
	negativeKeywords = []string{"delayed", "waiting", "no response", "unhelpful", "frustrating", "confusing", "incorrect", "dropped", "unstable"}
	neutralKeywords  = []string{"okay", "fine", "eventually", "average", "could be better", "not bad"}

	positiveTemplates = []string{
		"{word} service from {agent}. {reason}.",
		"{agent} was {word} and {word2}. {reason}.",
		"Really {word} support. {agent} {reasonLower}.",
		"{word} experience overall - {agent} {reasonLower}.",
	}
	neutralTemplates = []string{
		"Service was {word}. {agent} helped, but {neutral}.",
		"{agent} was {word}, but {neutral}.",
		"Overall {word}. {neutral}.",
	}
	negativeTemplates = []string{
		"{neg}. {neg2}.",
		"Very {neg}. {neg2}.",
		"Not happy - {neg}. {neg2}.",
	}

	reasons = []string{
		"fixed my issue quickly and kept me updated",
		"explained everything clearly and gave options",
		"followed up until it was sorted",
		"made the process quick and painless",
		"handled everything professionally",
		"went the extra mile to help",
	}
)

// Generate produces opts.Count synthetic items, newest first. The sequence
// of draws depends only on opts.Seed; opts.Now anchors the timestamps.
func Generate(opts Options) []feedback.Item {
	rng := newRand(opts.Seed)
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	items := make([]feedback.Item, 0, max(opts.Count, 0))
	for i := 0; i < opts.Count; i++ {
		ageDays := int(rng.float() * float64(opts.DaysBack))
		day := now.AddDate(0, 0, -ageDays)
		hour := clamp(rng.intn(12)+7, 0, 23)
		minute := rng.intn(60)
		created := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())

		source := feedback.SourceEmail
		if rng.float() < 0.68 {
			source = feedback.SourceGoogle
		}
		a := pick(rng, roster)

		sentiment := feedback.SentimentNegative
		switch roll := rng.float(); {
		case roll < 0.74:
			sentiment = feedback.SentimentPositive
		case roll < 0.88:
			sentiment = feedback.SentimentNeutral
		}

		status := drawStatus(rng, sentiment)
		theme := drawTheme(rng, sentiment, a.team)

		word := pick(rng, positiveWords)
		word2 := pick(rng, positiveWords)
		reason := pick(rng, reasons)
		neutral := pick(rng, neutralKeywords)
		neg := pick(rng, negativeKeywords)
		neg2 := pick(rng, negativeKeywords)

		var (
			text      string
			keywords  []string
			rating    *int
			tvSnippet string
		)
		switch sentiment {
		case feedback.SentimentPositive:
			tmpl := pick(rng, positiveTemplates)
			text = strings.NewReplacer(
				"{word2}", word2,
				"{word}", word,
				"{agent}", a.name,
				"{reasonLower}", reason,
				"{reason}", capitalize(reason),
			).Replace(tmpl)
			pool := unique(append([]string{word, word2}, pickMany(rng, positiveWords, 1, 3)...))
			keywords = pickMany(rng, pool, 3, 6)
			if source == feedback.SourceGoogle {
				rating = feedback.IntPtr(choose(rng, 0.72, 5, 4))
			}
			label := theme
			if label == "" {
				label = "Great service"
			}
			tvSnippet = fmt.Sprintf("%s - %s.", capitalize(word), label)
		case feedback.SentimentNeutral:
			tmpl := pick(rng, neutralTemplates)
			text = strings.NewReplacer(
				"{word}", pick(rng, []string{"good", "okay", "fine"}),
				"{agent}", a.name,
				"{neutral}", neutral,
			).Replace(tmpl)
			keywords = pickMany(rng, neutralKeywords, 2, 4)
			if source == feedback.SourceGoogle {
				rating = feedback.IntPtr(choose(rng, 0.6, 3, 4))
			}
		default:
			tmpl := pick(rng, negativeTemplates)
			text = strings.NewReplacer(
				"{neg2}", neg2,
				"{neg}", neg,
			).Replace(tmpl)
			keywords = pickMany(rng, negativeKeywords, 2, 5)
			if source == feedback.SourceGoogle {
				rating = feedback.IntPtr(choose(rng, 0.6, 1, 2))
			}
		}

		agent, team := a.name, a.team
		if rng.float() < 0.07 {
			agent, team = feedback.Unknown, feedback.Unknown
		}

		items = append(items, feedback.Item{
			ID:        fmt.Sprintf("%s%05d", ItemPrefix, 20000+i),
			CreatedAt: created.UTC(),
			Source:    source,
			Rating:    rating,
			Sentiment: sentiment,
			Status:    status,
			Agent:     agent,
			Team:      team,
			Theme:     theme,
			Keywords:  keywords,
			TVSnippet: tvSnippet,
			Text:      text,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}

func drawStatus(rng *rand32, sentiment feedback.Sentiment) feedback.Status {
	roll := rng.float()
	if sentiment == feedback.SentimentNegative {
		if roll < 0.7 {
			return feedback.StatusFlaggedNegative
		}
		return feedback.StatusPending
	}
	switch {
	case roll < 0.62:
		return feedback.StatusApproved
	case roll < 0.86:
		return feedback.StatusPending
	default:
		return feedback.StatusOnHold
	}
}

func drawTheme(rng *rand32, sentiment feedback.Sentiment, team string) string {
	themes, ok := positiveThemes[team]
	switch sentiment {
	case feedback.SentimentPositive:
		if !ok {
			themes = []string{"Great service"}
		}
		return pick(rng, themes)
	case feedback.SentimentNegative:
		return pick(rng, negativeThemes)
	default:
		if rng.float() < 0.6 {
			if !ok {
				return ""
			}
			return pick(rng, themes)
		}
		return ""
	}
}

func pick[T any](rng *rand32, items []T) T {
	return items[rng.intn(len(items))]
}

// pickMany draws between lo and hi distinct elements without replacement.
func pickMany(rng *rand32, items []string, lo, hi int) []string {
	count := max(lo, rng.intn(hi-lo+1)+lo)
	pool := append([]string{}, items...)
	out := make([]string, 0, count)
	for len(out) < count && len(pool) > 0 {
		idx := rng.intn(len(pool))
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out
}

func choose(rng *rand32, p float64, a, b int) int {
	if rng.float() < p {
		return a
	}
	return b
}

func unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
