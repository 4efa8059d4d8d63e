package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TobiSchelling/reviewdash/internal/collect"
	"github.com/TobiSchelling/reviewdash/internal/config"
	"github.com/TobiSchelling/reviewdash/internal/database"
	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/kvstore"
	"github.com/TobiSchelling/reviewdash/internal/leaderboard"
	"github.com/TobiSchelling/reviewdash/internal/scoring"
	"github.com/TobiSchelling/reviewdash/internal/seed"
	"github.com/TobiSchelling/reviewdash/internal/state"
)

// backend is the opened storage selected by storage.backend. Exactly one of
// db and kv is set.
type backend struct {
	db   *database.DB
	kv   *kvstore.Store
	desc string
}

func (b *backend) persistence() state.Persistence {
	if b.kv != nil {
		return b.kv
	}
	return b.db
}

func (b *backend) Describe() string {
	return b.desc
}

func (b *backend) Close() error {
	if b.kv != nil {
		return b.kv.Close()
	}
	return b.db.Close()
}

func openBackend(ctx context.Context) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, err
		}
		db, err := database.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &backend{db: db, desc: "postgres"}, nil

	case config.BackendBadger:
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		kvDir := filepath.Join(dir, "kv")
		kv, err := kvstore.Open(kvDir)
		if err != nil {
			return nil, err
		}
		return &backend{kv: kv, desc: "badger " + kvDir}, nil

	default:
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		db, err := database.Open(filepath.Join(dir, "reviewdash.db"))
		if err != nil {
			return nil, err
		}
		return &backend{db: db, desc: "sqlite " + db.Path()}, nil
	}
}

func dataDir() (string, error) {
	dir := cfg.GetDataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dir, nil
}

func newStore(b *backend) *state.Store {
	canonical := func() feedback.Snapshot {
		opts := seed.DefaultOptions(time.Now())
		opts.Count = cfg.Seed.Count
		opts.DaysBack = cfg.Seed.DaysBack
		opts.Seed = cfg.Seed.Value
		return seed.Snapshot(opts, feedback.Brand{Name: cfg.Brand.Name, Primary: cfg.Brand.Primary})
	}
	policy := state.DefaultRetryPolicy()
	policy.Timeout = cfg.Storage.Timeout
	policy.Retries = cfg.Storage.Retries
	return state.NewStore(b.persistence(), canonical, state.WithRetry(policy))
}

func newCollector(store *state.Store) *collect.Collector {
	prefix := ""
	if cfg.Ingest.DropSeedItems {
		prefix = seed.ItemPrefix
	}
	return collect.NewCollector(store, prefix)
}

func leaderboardOptions() (leaderboard.Options, error) {
	var tiered scoring.Tiered
	for i, v := range cfg.Scoring.Tiers {
		tiered.Tiers[i] = float64(v)
	}
	w := cfg.Scoring.Weighted
	scorer, err := scoring.ByName(cfg.Scoring.Profile, tiered, scoring.Weighted{
		RatingWeight:  w.RatingWeight,
		Positive:      w.Positive,
		Neutral:       w.Neutral,
		Negative:      w.Negative,
		KeywordWeight: w.KeywordWeight,
		KeywordCap:    w.KeywordCap,
		ThemeBonus:    w.ThemeBonus,
	})
	if err != nil {
		return leaderboard.Options{}, err
	}

	lb := cfg.Leaderboard
	return leaderboard.Options{
		Scorer:         scorer,
		WeeklyTop:      lb.WeeklyTop,
		MonthlyTop:     lb.MonthlyTop,
		Highlights:     lb.Highlights,
		HighlightOrder: lb.HighlightOrder,
		AgentFallback:  lb.AgentFallback,
	}, nil
}
