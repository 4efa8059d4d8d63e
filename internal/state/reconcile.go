package state

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Defaults applied to absent or null item fields.
const (
	DefaultSource    = feedback.SourceGoogle
	DefaultSentiment = feedback.SentimentNeutral
	DefaultStatus    = feedback.StatusPending
)

// Normalizer fills in item defaults. The zero value uses time.Now and
// random UUIDs.
type Normalizer struct {
	Now   func() time.Time
	NewID func() string
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) newID() string {
	if n.NewID != nil {
		return n.NewID()
	}
	return uuid.NewString()
}

// Reconcile merges a persisted payload over the canonical snapshot. It never
// fails: a payload that is not a JSON object yields a copy of canonical.
func Reconcile(raw []byte, canonical feedback.Snapshot) feedback.Snapshot {
	return Normalizer{}.Reconcile(raw, canonical)
}

// Reconcile is Reconcile with this normalizer's clock and id source.
func (n Normalizer) Reconcile(raw []byte, canonical feedback.Snapshot) feedback.Snapshot {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return canonical.Clone()
	}
	return n.ReconcileValue(v, canonical)
}

// ReconcileValue merges an already decoded JSON value over canonical.
//
// brand is overlaid key by key, teams and agents are replaced wholesale when
// present as lists, and every persisted item is normalized independently.
func (n Normalizer) ReconcileValue(v any, canonical feedback.Snapshot) feedback.Snapshot {
	out := canonical.Clone()
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}

	if brand, ok := obj["brand"].(map[string]any); ok {
		if s, ok := nonEmptyString(brand["name"]); ok {
			out.Brand.Name = s
		}
		if s, ok := nonEmptyString(brand["primary"]); ok {
			out.Brand.Primary = s
		}
	}

	if teams, ok := obj["teams"].([]any); ok {
		out.Teams = make([]string, 0, len(teams))
		for _, t := range teams {
			out.Teams = append(out.Teams, toString(t, ""))
		}
	}

	if agents, ok := obj["agents"].([]any); ok {
		out.Agents = make([]feedback.Agent, 0, len(agents))
		for _, a := range agents {
			m, ok := a.(map[string]any)
			if !ok {
				continue
			}
			out.Agents = append(out.Agents, feedback.Agent{
				ID:    toString(m["id"], ""),
				Name:  toString(m["name"], ""),
				Team:  toString(m["team"], feedback.Unknown),
				Email: toString(m["email"], ""),
			})
		}
	}

	if items, ok := obj["items"].([]any); ok {
		out.Items = make([]feedback.Item, 0, len(items))
		for _, it := range items {
			m, _ := it.(map[string]any)
			out.Items = append(out.Items, n.NormalizeItem(m))
		}
	}

	return out
}

// NormalizeItem coerces a loosely typed record into a complete Item. A nil
// map produces an item made entirely of defaults.
func NormalizeItem(m map[string]any) feedback.Item {
	return Normalizer{}.NormalizeItem(m)
}

// NormalizeItem is NormalizeItem with this normalizer's clock and id source.
func (n Normalizer) NormalizeItem(m map[string]any) feedback.Item {
	it := feedback.Item{
		ID:            toString(m["id"], ""),
		Source:        feedback.Source(toString(m["source"], string(DefaultSource))),
		Rating:        toRating(m["rating"]),
		Sentiment:     feedback.Sentiment(toString(m["sentiment"], string(DefaultSentiment))),
		Status:        feedback.Status(toString(m["status"], string(DefaultStatus))),
		Agent:         toString(m["agent"], feedback.Unknown),
		Team:          toString(m["team"], feedback.Unknown),
		Theme:         toString(m["theme"], ""),
		Keywords:      toStrings(m["keywords"]),
		TVSnippet:     toString(m["tvSnippet"], ""),
		Text:          toString(m["text"], ""),
		ManagerRating: toRating(m["managerRating"]),
	}
	if it.ID == "" {
		it.ID = n.newID()
	}

	created, ok := toTime(m["createdAt"])
	if !ok {
		created = n.now()
	}
	it.CreatedAt = created.UTC()

	if s, ok := nonEmptyString(m["reviewerName"]); ok {
		it.ReviewerName = &s
	}
	if s, ok := nonEmptyString(m["reviewerThumbnail"]); ok {
		it.ReviewerThumbnail = &s
	}
	if s, ok := nonEmptyString(m["reviewerLink"]); ok {
		it.ReviewerLink = &s
	}
	if f, ok := toNumber(m["likes"]); ok {
		likes := int(math.Round(f))
		it.Likes = &likes
	}
	return it
}

// toString renders scalars as strings; nil and empty strings fall back to def.
func toString(v any, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if x == "" {
			return def
		}
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return def
		}
		return string(data)
	}
}

func nonEmptyString(v any) (string, bool) {
	s := toString(v, "")
	return s, s != ""
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		out = append(out, toString(x, ""))
	}
	return out
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// toRating returns nil for anything that is not a star value between 1 and 5.
func toRating(v any) *int {
	f, ok := toNumber(v)
	if !ok {
		return nil
	}
	n := int(math.Round(f))
	if n < 1 || n > 5 {
		return nil
	}
	return &n
}

func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
