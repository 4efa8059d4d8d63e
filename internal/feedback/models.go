package feedback

import "time"

// Unknown is the sentinel agent/team value for feedback nobody has been assigned to.
const Unknown = "Unknown"

// Source is the channel a piece of feedback arrived through.
type Source string

const (
	SourceGoogle Source = "Google"
	SourceEmail  Source = "Email"
)

// Sentiment is the overall tone of a review.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Status is the manager's triage decision for an item.
type Status string

const (
	StatusPending         Status = "Pending"
	StatusOnHold          Status = "On hold"
	StatusApproved        Status = "Approved"
	StatusFlaggedNegative Status = "Flagged (Negative)"
)

// Statuses lists every triage status in display order.
var Statuses = []Status{StatusPending, StatusOnHold, StatusApproved, StatusFlaggedNegative}

// Item is one customer review or feedback record.
type Item struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Source        Source    `json:"source"`
	Rating        *int      `json:"rating"`
	Sentiment     Sentiment `json:"sentiment"`
	Status        Status    `json:"status"`
	Agent         string    `json:"agent"`
	Team          string    `json:"team"`
	Theme         string    `json:"theme"`
	Keywords      []string  `json:"keywords"`
	TVSnippet     string    `json:"tvSnippet"`
	Text          string    `json:"text"`
	ManagerRating *int      `json:"managerRating"`

	// Reviewer metadata is only present for scraped reviews.
	ReviewerName      *string `json:"reviewerName,omitempty"`
	ReviewerThumbnail *string `json:"reviewerThumbnail,omitempty"`
	ReviewerLink      *string `json:"reviewerLink,omitempty"`
	Likes             *int    `json:"likes,omitempty"`
}

// Assigned reports whether the item has a real agent.
func (it Item) Assigned() bool {
	return it.Agent != "" && it.Agent != Unknown
}

// Eligible reports whether the item may appear on the leaderboard and TV
// display: approved and not negative.
func (it Item) Eligible() bool {
	return it.Status == StatusApproved && it.Sentiment != SentimentNegative
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := it
	out.Rating = cloneInt(it.Rating)
	out.ManagerRating = cloneInt(it.ManagerRating)
	out.Likes = cloneInt(it.Likes)
	out.ReviewerName = cloneString(it.ReviewerName)
	out.ReviewerThumbnail = cloneString(it.ReviewerThumbnail)
	out.ReviewerLink = cloneString(it.ReviewerLink)
	out.Keywords = append([]string{}, it.Keywords...)
	return out
}

// Agent is an entry in the agent directory. Name is the join key used
// against Item.Agent.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Team  string `json:"team"`
	Email string `json:"email"`
}

// Brand holds the cosmetic brand settings.
type Brand struct {
	Name    string `json:"name"`
	Primary string `json:"primary"`
}

// Snapshot is the complete dashboard state at one point in time.
type Snapshot struct {
	Brand  Brand    `json:"brand"`
	Teams  []string `json:"teams"`
	Agents []Agent  `json:"agents"`
	Items  []Item   `json:"items"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Brand:  s.Brand,
		Teams:  append([]string{}, s.Teams...),
		Agents: append([]Agent{}, s.Agents...),
		Items:  make([]Item, len(s.Items)),
	}
	for i, it := range s.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// FindItem returns the index of the item with the given id, or -1.
func (s Snapshot) FindItem(id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// FindAgent returns the directory entry with the given name.
func (s Snapshot) FindAgent(name string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
