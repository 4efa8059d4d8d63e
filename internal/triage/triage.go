// Package triage implements the manager's approvals queue: which items still
// need a decision, and the patches that record one.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/state"
)

// All disables a filter dimension.
const All = "All"

// ErrNotFound is returned when an action targets an unknown item id.
var ErrNotFound = errors.New("item not found")

// ErrInvalidRating is returned for a manager rating outside 1..5.
var ErrInvalidRating = errors.New("manager rating must be between 1 and 5")

// Filter narrows the queue. Empty fields and All match everything.
type Filter struct {
	Search string
	Source string
	Team   string
	Status string
}

// Pending reports whether it still needs attention: anything not approved,
// plus approved items that are negative.
func Pending(it feedback.Item) bool {
	return it.Status != feedback.StatusApproved || it.Sentiment == feedback.SentimentNegative
}

// Queue returns the items awaiting a decision that match f, newest first.
func Queue(items []feedback.Item, f Filter) []feedback.Item {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []feedback.Item
	for _, it := range items {
		if !Pending(it) {
			continue
		}
		if !matches(f.Source, string(it.Source)) || !matches(f.Team, it.Team) || !matches(f.Status, string(it.Status)) {
			continue
		}
		if search != "" && !strings.Contains(searchText(it), search) {
			continue
		}
		out = append(out, it.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func matches(want, got string) bool {
	return want == "" || want == All || want == got
}

func searchText(it feedback.Item) string {
	return strings.ToLower(strings.Join([]string{
		it.ID, string(it.Source), string(it.Sentiment), string(it.Status),
		it.Agent, it.Team, it.Theme, it.Text,
	}, " "))
}

// Options lists the values offered by the queue filters.
type Options struct {
	Sources  []string `json:"sources"`
	Teams    []string `json:"teams"`
	Statuses []string `json:"statuses"`
}

// FilterOptions returns the filter choices for snap, each led by All.
func FilterOptions(snap feedback.Snapshot) Options {
	seen := make(map[string]bool)
	var sources []string
	for _, it := range snap.Items {
		s := string(it.Source)
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	sort.Strings(sources)

	opts := Options{
		Sources:  append([]string{All}, sources...),
		Teams:    append([]string{All}, snap.Teams...),
		Statuses: []string{All},
	}
	for _, s := range feedback.Statuses {
		opts.Statuses = append(opts.Statuses, string(s))
	}
	return opts
}

// ParseStatus matches a status case-insensitively, accepting the short forms
// "hold" and "flag".
func ParseStatus(s string) (feedback.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return feedback.StatusPending, nil
	case "on hold", "hold":
		return feedback.StatusOnHold, nil
	case "approved", "approve":
		return feedback.StatusApproved, nil
	case "flagged (negative)", "flagged", "flag":
		return feedback.StatusFlaggedNegative, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// StatusPatch records a decision. Flagging also marks the item negative.
func StatusPatch(status feedback.Status) state.Patch {
	p := state.Patch{"status": status}
	if status == feedback.StatusFlaggedNegative {
		p["sentiment"] = feedback.SentimentNegative
	}
	return p
}

// AssignPatch assigns an agent, taking the team from the directory. Names not
// in the directory get the Unknown team.
func AssignPatch(agents []feedback.Agent, name string) state.Patch {
	team := feedback.Unknown
	for _, a := range agents {
		if a.Name == name {
			team = a.Team
			break
		}
	}
	return state.Patch{"agent": name, "team": team}
}

// ManagerRatingPatch sets the manager's rating; nil clears it.
func ManagerRatingPatch(rating *int) (state.Patch, error) {
	if rating == nil {
		return state.Patch{"managerRating": nil}, nil
	}
	if *rating < 1 || *rating > 5 {
		return nil, ErrInvalidRating
	}
	return state.Patch{"managerRating": *rating}, nil
}

// Triager applies queue decisions through a store.
type Triager struct {
	store *state.Store
}

// NewTriager creates a triager over store.
func NewTriager(store *state.Store) *Triager {
	return &Triager{store: store}
}

// SetStatus records a decision for item id.
func (t *Triager) SetStatus(ctx context.Context, id string, status feedback.Status) (feedback.Item, error) {
	it, err := t.apply(ctx, id, StatusPatch(status))
	if err != nil {
		return it, err
	}
	log.Printf("Triaged [%s]: %s", status, id)
	return it, nil
}

// Assign assigns item id to the named agent.
func (t *Triager) Assign(ctx context.Context, id, agent string) (feedback.Item, error) {
	snap, err := t.store.Load(ctx)
	if err != nil {
		return feedback.Item{}, err
	}
	it, err := t.apply(ctx, id, AssignPatch(snap.Agents, agent))
	if err != nil {
		return it, err
	}
	log.Printf("Assigned %s to %s (%s)", id, it.Agent, it.Team)
	return it, nil
}

// Rate sets or clears the manager rating of item id.
func (t *Triager) Rate(ctx context.Context, id string, rating *int) (feedback.Item, error) {
	p, err := ManagerRatingPatch(rating)
	if err != nil {
		return feedback.Item{}, err
	}
	return t.apply(ctx, id, p)
}

// Update applies an arbitrary patch to item id.
func (t *Triager) Update(ctx context.Context, id string, p state.Patch) (feedback.Item, error) {
	return t.apply(ctx, id, p)
}

func (t *Triager) apply(ctx context.Context, id string, p state.Patch) (feedback.Item, error) {
	snap, found, err := t.store.PatchItem(ctx, id, p)
	if err != nil {
		return feedback.Item{}, err
	}
	if !found {
		return feedback.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return snap.Items[snap.FindItem(id)], nil
}
