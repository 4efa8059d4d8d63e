package triage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/database"
	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/seed"
	"github.com/TobiSchelling/reviewdash/internal/state"
)

var now = time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, items []feedback.Item) *state.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	canonical := func() feedback.Snapshot {
		return feedback.Snapshot{
			Brand:  feedback.Brand{Name: "Axxess", Primary: "#0099cc"},
			Teams:  seed.Teams,
			Agents: seed.Agents,
			Items:  items,
		}
	}
	return state.NewStore(db, canonical)
}

func item(id string, status feedback.Status, sentiment feedback.Sentiment, age time.Duration) feedback.Item {
	return feedback.Item{
		ID: id, CreatedAt: now.Add(-age), Source: feedback.SourceGoogle,
		Sentiment: sentiment, Status: status, Agent: feedback.Unknown, Team: feedback.Unknown,
		Keywords: []string{}, Text: "text of " + id,
	}
}

func queueItems() []feedback.Item {
	email := item("IT-4", feedback.StatusOnHold, feedback.SentimentNeutral, 4*time.Hour)
	email.Source = feedback.SourceEmail
	email.Team = "Sales"
	email.Text = "Router arrived late"
	return []feedback.Item{
		item("IT-1", feedback.StatusPending, feedback.SentimentPositive, 3*time.Hour),
		item("IT-2", feedback.StatusApproved, feedback.SentimentPositive, time.Hour),
		item("IT-3", feedback.StatusApproved, feedback.SentimentNegative, 2*time.Hour),
		email,
	}
}

func ids(items []feedback.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestQueue(t *testing.T) {
	got := ids(Queue(queueItems(), Filter{}))
	want := []string{"IT-3", "IT-1", "IT-4"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestQueueFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{Source: All, Team: All, Status: All}, []string{"IT-3", "IT-1", "IT-4"}},
		{"source", Filter{Source: "Email"}, []string{"IT-4"}},
		{"team", Filter{Team: "Sales"}, []string{"IT-4"}},
		{"status", Filter{Status: string(feedback.StatusPending)}, []string{"IT-1"}},
		{"search text", Filter{Search: "  ROUTER "}, []string{"IT-4"}},
		{"search id", Filter{Search: "it-3"}, []string{"IT-3"}},
		{"no match", Filter{Search: "nothing like this"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Queue(queueItems(), tt.filter))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestQueueReturnsCopies(t *testing.T) {
	items := queueItems()
	items[0].Keywords = []string{"fast"}
	q := Queue(items, Filter{Search: "IT-1"})
	q[0].Keywords[0] = "changed"
	if items[0].Keywords[0] != "fast" {
		t.Error("expected queue items to be independent copies")
	}
}

func TestFilterOptions(t *testing.T) {
	snap := feedback.Snapshot{Teams: []string{"Sales", "Support"}, Items: queueItems()}
	opts := FilterOptions(snap)

	if len(opts.Sources) != 3 || opts.Sources[0] != All || opts.Sources[1] != "Email" || opts.Sources[2] != "Google" {
		t.Errorf("unexpected sources %v", opts.Sources)
	}
	if len(opts.Teams) != 3 || opts.Teams[0] != All {
		t.Errorf("unexpected teams %v", opts.Teams)
	}
	if len(opts.Statuses) != len(feedback.Statuses)+1 {
		t.Errorf("unexpected statuses %v", opts.Statuses)
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]feedback.Status{
		"Pending":            feedback.StatusPending,
		"hold":               feedback.StatusOnHold,
		"On Hold":            feedback.StatusOnHold,
		" approve ":          feedback.StatusApproved,
		"flag":               feedback.StatusFlaggedNegative,
		"Flagged (Negative)": feedback.StatusFlaggedNegative,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseStatus("maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestAssignPatch(t *testing.T) {
	p := AssignPatch(seed.Agents, "Kyle Jacobs")
	if p["agent"] != "Kyle Jacobs" || p["team"] != "Sales" {
		t.Errorf("unexpected patch %v", p)
	}
	p = AssignPatch(seed.Agents, "Someone New")
	if p["team"] != feedback.Unknown {
		t.Errorf("expected unknown team for unlisted agent, got %v", p["team"])
	}
}

func TestManagerRatingPatch(t *testing.T) {
	for _, bad := range []int{0, 6, -1} {
		if _, err := ManagerRatingPatch(feedback.IntPtr(bad)); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", bad, err)
		}
	}
	p, err := ManagerRatingPatch(feedback.IntPtr(3))
	if err != nil || p["managerRating"] != 3 {
		t.Errorf("unexpected patch %v (%v)", p, err)
	}
	p, _ = ManagerRatingPatch(nil)
	if v, ok := p["managerRating"]; !ok || v != nil {
		t.Errorf("expected explicit nil rating, got %v", p)
	}
}

func TestTriagerSetStatus(t *testing.T) {
	store := openTestStore(t, queueItems())
	tr := NewTriager(store)
	ctx := context.Background()

	it, err := tr.SetStatus(ctx, "IT-1", feedback.StatusFlaggedNegative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Status != feedback.StatusFlaggedNegative || it.Sentiment != feedback.SentimentNegative {
		t.Errorf("expected flagged negative item, got %s / %s", it.Status, it.Sentiment)
	}

	snap, _ := store.Load(ctx)
	if snap.Items[snap.FindItem("IT-1")].Sentiment != feedback.SentimentNegative {
		t.Error("expected decision to be persisted")
	}

	_, err = tr.SetStatus(ctx, "IT-404", feedback.StatusApproved)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTriagerAssign(t *testing.T) {
	store := openTestStore(t, queueItems())
	tr := NewTriager(store)

	it, err := tr.Assign(context.Background(), "IT-2", "Nandi Dlamini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Agent != "Nandi Dlamini" || it.Team != "Fibre Orders" {
		t.Errorf("expected Nandi Dlamini in Fibre Orders, got %s / %s", it.Agent, it.Team)
	}
}

func TestTriagerRate(t *testing.T) {
	store := openTestStore(t, queueItems())
	tr := NewTriager(store)
	ctx := context.Background()

	it, err := tr.Rate(ctx, "IT-2", feedback.IntPtr(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ManagerRating == nil || *it.ManagerRating != 5 {
		t.Errorf("expected manager rating 5, got %v", it.ManagerRating)
	}

	it, err = tr.Rate(ctx, "IT-2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ManagerRating != nil {
		t.Errorf("expected cleared rating, got %d", *it.ManagerRating)
	}

	if _, err := tr.Rate(ctx, "IT-2", feedback.IntPtr(9)); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
}

func TestTriagerUpdate(t *testing.T) {
	store := openTestStore(t, queueItems())
	tr := NewTriager(store)

	it, err := tr.Update(context.Background(), "IT-4", state.Patch{"theme": "Delivery", "tvSnippet": "On its way"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Theme != "Delivery" || it.TVSnippet != "On its way" {
		t.Errorf("unexpected item %+v", it)
	}
	if it.Team != "Sales" {
		t.Errorf("expected untouched fields to survive, got team %s", it.Team)
	}
}
