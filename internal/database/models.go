package database

import (
	"database/sql"
	"encoding/json"
)

// Setting keys.
const (
	keyBrandName    = "brand_name"
	keyBrandPrimary = "brand_primary"
	keySavedAt      = "saved_at"
	keyIngestMarker = "ingest_marker"
)

// reviewRow is one row of the reviews table.
type reviewRow struct {
	ID                string
	CreatedAt         string
	Source            string
	Rating            sql.NullInt64
	Sentiment         string
	Status            string
	Agent             string
	Team              string
	Theme             string
	Keywords          string
	TVSnippet         string
	Body              string
	ManagerRating     sql.NullInt64
	ReviewerName      sql.NullString
	ReviewerThumbnail sql.NullString
	ReviewerLink      sql.NullString
	Likes             sql.NullInt64
}

// fields renders the row with the wire names used by the snapshot document.
func (r reviewRow) fields() map[string]any {
	m := map[string]any{
		"id":            r.ID,
		"createdAt":     r.CreatedAt,
		"source":        r.Source,
		"rating":        nullInt(r.Rating),
		"sentiment":     r.Sentiment,
		"status":        r.Status,
		"agent":         r.Agent,
		"team":          r.Team,
		"theme":         r.Theme,
		"keywords":      decodeKeywords(r.Keywords),
		"tvSnippet":     r.TVSnippet,
		"text":          r.Body,
		"managerRating": nullInt(r.ManagerRating),
	}
	if r.ReviewerName.Valid {
		m["reviewerName"] = r.ReviewerName.String
	}
	if r.ReviewerThumbnail.Valid {
		m["reviewerThumbnail"] = r.ReviewerThumbnail.String
	}
	if r.ReviewerLink.Valid {
		m["reviewerLink"] = r.ReviewerLink.String
	}
	if r.Likes.Valid {
		m["likes"] = r.Likes.Int64
	}
	return m
}

// StatusCount is the number of reviews in one status.
type StatusCount struct {
	Status string
	Count  int
}

func nullInt(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

func toNullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func toNullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func decodeKeywords(s string) []any {
	var out []any
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []any{}
	}
	return out
}

func encodeKeywords(kw []string) string {
	if kw == nil {
		kw = []string{}
	}
	data, err := json.Marshal(kw)
	if err != nil {
		return "[]"
	}
	return string(data)
}
