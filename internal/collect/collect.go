// Package collect imports batches of scraped reviews into the dashboard state.
package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/state"
)

// ErrMalformed is returned when a document cannot be decoded.
var ErrMalformed = errors.New("malformed reviews document")

// Document is the file written by a review scraper.
type Document struct {
	ScrapedAt     string           `json:"scrapedAt"`
	BusinessName  string           `json:"businessName"`
	OverallRating *float64         `json:"overallRating"`
	TotalReviews  int              `json:"totalReviews"`
	Reviews       []map[string]any `json:"reviews"`
}

// Result holds the results of an ingest run.
type Result struct {
	TotalFound int  `json:"totalFound"`
	NewItems   int  `json:"newItems"`
	Duplicates int  `json:"duplicates"`
	Removed    int  `json:"removed"`
	Skipped    bool `json:"skipped"`
}

// Collector merges scraped documents into a store.
type Collector struct {
	store *state.Store
	opts  state.MergeOptions
	norm  state.Normalizer
}

// NewCollector creates a collector. When dropPrefix is non-empty, existing
// items with that id prefix are removed on the first ingest that runs.
func NewCollector(store *state.Store, dropPrefix string) *Collector {
	return &Collector{store: store, opts: state.MergeOptions{DropPrefix: dropPrefix}}
}

// Parse decodes a scraped document and normalizes its reviews.
func (c *Collector) Parse(r io.Reader) (*Document, []feedback.Item, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	items := make([]feedback.Item, 0, len(doc.Reviews))
	for _, rv := range doc.Reviews {
		items = append(items, c.norm.NormalizeItem(rv))
	}
	return &doc, items, nil
}

// CollectFile ingests the document at path.
func (c *Collector) CollectFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reviews file: %w", err)
	}
	defer f.Close()
	return c.Collect(ctx, f)
}

// Collect ingests one scraped document. A document whose scrapedAt matches
// the last ingested one is skipped.
func (c *Collector) Collect(ctx context.Context, r io.Reader) (*Result, error) {
	doc, items, err := c.Parse(r)
	if err != nil {
		return nil, err
	}
	if doc.BusinessName != "" {
		log.Printf("Loaded %d reviews for %s (scraped %s)", len(items), doc.BusinessName, doc.ScrapedAt)
	}

	_, ir, err := c.store.Ingest(ctx, items, doc.ScrapedAt, c.opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		TotalFound: len(items),
		NewItems:   ir.Added,
		Duplicates: ir.Duplicates,
		Removed:    ir.Removed,
		Skipped:    ir.Skipped,
	}
	if res.Skipped {
		log.Printf("Ingest skipped: batch %s already loaded", doc.ScrapedAt)
		return res, nil
	}
	log.Printf("Ingest complete: %d found, %d new, %d duplicates, %d demo items removed",
		res.TotalFound, res.NewItems, res.Duplicates, res.Removed)
	return res, nil
}
