package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/reviewdash/internal/feedback"
)

// Load assembles the stored snapshot as a JSON document. It returns nil when
// nothing has been saved yet.
func (db *DB) Load(ctx context.Context) ([]byte, error) {
	savedAt, err := db.GetSetting(ctx, keySavedAt)
	if err != nil {
		return nil, err
	}
	if savedAt == nil {
		return nil, nil
	}

	var (
		items  []map[string]any
		agents []map[string]any
		teams  []string
		brand  = map[string]any{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = db.loadReviews(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		agents, err = db.loadAgents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = db.loadTeams(gctx)
		return err
	})
	g.Go(func() error {
		for key, field := range map[string]string{keyBrandName: "name", keyBrandPrimary: "primary"} {
			v, err := db.GetSetting(gctx, key)
			if err != nil {
				return err
			}
			if v != nil {
				brand[field] = *v
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := map[string]any{
		"brand":  brand,
		"teams":  teams,
		"agents": agents,
		"items":  items,
	}
	return json.Marshal(doc)
}

func (db *DB) loadReviews(ctx context.Context) ([]map[string]any, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, created_at, source, rating, sentiment, status, agent, team, theme,
		keywords, tv_snippet, body, manager_rating, reviewer_name, reviewer_thumbnail,
		reviewer_link, likes
		FROM reviews ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("loading reviews: %w", err)
	}
	defer rows.Close()

	items := []map[string]any{}
	for rows.Next() {
		var r reviewRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Source, &r.Rating, &r.Sentiment, &r.Status,
			&r.Agent, &r.Team, &r.Theme, &r.Keywords, &r.TVSnippet, &r.Body, &r.ManagerRating,
			&r.ReviewerName, &r.ReviewerThumbnail, &r.ReviewerLink, &r.Likes); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		items = append(items, r.fields())
	}
	return items, rows.Err()
}

func (db *DB) loadAgents(ctx context.Context) ([]map[string]any, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name, team, email FROM agents ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading agents: %w", err)
	}
	defer rows.Close()

	agents := []map[string]any{}
	for rows.Next() {
		var id, name, team, email string
		if err := rows.Scan(&id, &name, &team, &email); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, map[string]any{"id": id, "name": name, "team": team, "email": email})
	}
	return agents, rows.Err()
}

func (db *DB) loadTeams(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT name FROM teams ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading teams: %w", err)
	}
	defer rows.Close()

	teams := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, name)
	}
	return teams, rows.Err()
}

// Save replaces the stored snapshot in one transaction.
func (db *DB) Save(ctx context.Context, snap feedback.Snapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reviews", "agents", "teams"} {
		if err := db.exec(ctx, tx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for i, it := range snap.Items {
		// A duplicate id keeps the first occurrence.
		err := db.exec(ctx, tx,
			`INSERT INTO reviews (id, position, created_at, source, rating, sentiment, status,
			agent, team, theme, keywords, tv_snippet, body, manager_rating, reviewer_name,
			reviewer_thumbnail, reviewer_link, likes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			it.ID, i, it.CreatedAt.UTC().Format(time.RFC3339Nano), string(it.Source),
			toNullInt(it.Rating), string(it.Sentiment), string(it.Status), it.Agent, it.Team,
			it.Theme, encodeKeywords(it.Keywords), it.TVSnippet, it.Text,
			toNullInt(it.ManagerRating), toNullString(it.ReviewerName),
			toNullString(it.ReviewerThumbnail), toNullString(it.ReviewerLink), toNullInt(it.Likes),
		)
		if err != nil {
			return fmt.Errorf("saving review %s: %w", it.ID, err)
		}
	}

	for i, a := range snap.Agents {
		if err := db.exec(ctx, tx,
			"INSERT INTO agents (position, id, name, team, email) VALUES (?, ?, ?, ?, ?)",
			i, a.ID, a.Name, a.Team, a.Email); err != nil {
			return fmt.Errorf("saving agent %s: %w", a.Name, err)
		}
	}

	for i, t := range snap.Teams {
		if err := db.exec(ctx, tx, "INSERT INTO teams (position, name) VALUES (?, ?)", i, t); err != nil {
			return fmt.Errorf("saving team %s: %w", t, err)
		}
	}

	settings := map[string]string{
		keyBrandName:    snap.Brand.Name,
		keyBrandPrimary: snap.Brand.Primary,
		keySavedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range settings {
		if err := db.setSetting(ctx, tx, k, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Reset clears the stored snapshot. The ingest marker survives so a reset
// does not re-import the last scraped batch.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reviews", "agents", "teams"} {
		if err := db.exec(ctx, tx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := db.exec(ctx, tx, "DELETE FROM settings WHERE key <> ?", keyIngestMarker); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}
	return tx.Commit()
}

// CountByStatus returns stored review counts per status, largest first.
func (db *DB) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM reviews GROUP BY status ORDER BY COUNT(*) DESC, status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReviewCount returns the number of stored reviews.
func (db *DB) ReviewCount(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
