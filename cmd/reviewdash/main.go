package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/reviewdash/internal/compose"
	"github.com/TobiSchelling/reviewdash/internal/config"
	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/leaderboard"
	"github.com/TobiSchelling/reviewdash/internal/server"
	"github.com/TobiSchelling/reviewdash/internal/stats"
	"github.com/TobiSchelling/reviewdash/internal/triage"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reviewdash",
	Short:   "Customer feedback recognition dashboard",
	Long:    "reviewdash triages customer reviews, ranks agents on approved feedback and renders the TV recognition digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags(verbose)
			return nil
		}

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		setLogFlags(verbose || strings.EqualFold(cfg.Logging.Level, "DEBUG"))
		return nil
	},
}

func setLogFlags(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(decisionCmd("approve", feedback.StatusApproved))
	rootCmd.AddCommand(decisionCmd("hold", feedback.StatusOnHold))
	rootCmd.AddCommand(decisionCmd("flag", feedback.StatusFlaggedNegative))
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(brandCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reviewdash", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reviewdash/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the brand, storage backend and scoring profile.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage and review status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		snap, err := newStore(b).Load(ctx)
		if err != nil {
			return err
		}
		summary := stats.Summarize(snap.Items)

		fmt.Printf("Brand: %s (%s)\n", snap.Brand.Name, snap.Brand.Primary)
		fmt.Printf("Storage: %s\n\n", b.Describe())
		fmt.Println("Reviews:")
		fmt.Printf("  Total: %d\n", summary.Total)
		fmt.Printf("  Pending: %d\n", summary.Pending)
		fmt.Printf("  Approved: %d\n", summary.ApprovedCount)
		fmt.Printf("  Negative flagged: %d\n", summary.NegativeFlagged)
		fmt.Printf("  Sentiment: %s\n", summary.AvgSentiment)

		if b.db != nil {
			counts, err := b.db.CountByStatus(ctx)
			if err != nil {
				return fmt.Errorf("counting stored reviews: %w", err)
			}
			if len(counts) > 0 {
				fmt.Println("\nStored by status:")
				for _, c := range counts {
					fmt.Printf("  %s: %d\n", c.Status, c.Count)
				}
			}
		}
		return nil
	},
}

// --- queue command ---

var queueFilter triage.Filter

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List reviews awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		snap, err := newStore(b).Load(ctx)
		if err != nil {
			return err
		}

		items := triage.Queue(snap.Items, queueFilter)
		if len(items) == 0 {
			fmt.Println("Nothing to review.")
			return nil
		}

		fmt.Printf("%d item(s) awaiting a decision:\n\n", len(items))
		for _, it := range items {
			rating := "-"
			if it.Rating != nil {
				rating = strconv.Itoa(*it.Rating)
			}
			fmt.Printf("  [%s] %s  %s  %s  *%s  %s / %s\n",
				it.ID, it.CreatedAt.Format("2006-01-02"), it.Source, it.Status, rating, it.Agent, it.Team)
			text := it.Text
			if len(text) > 80 {
				text = text[:80] + "..."
			}
			fmt.Printf("        %s\n", text)
		}
		return nil
	},
}

func init() {
	queueCmd.Flags().StringVar(&queueFilter.Search, "search", "", "Match text, id, agent, team or theme")
	queueCmd.Flags().StringVar(&queueFilter.Source, "source", triage.All, "Filter by source")
	queueCmd.Flags().StringVar(&queueFilter.Team, "team", triage.All, "Filter by team")
	queueCmd.Flags().StringVar(&queueFilter.Status, "status", triage.All, "Filter by status")
}

// --- decision commands ---

func decisionCmd(use string, status feedback.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: fmt.Sprintf("Set a review's status to %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			it, err := triage.NewTriager(newStore(b)).SetStatus(ctx, args[0], status)
			if err != nil {
				return err
			}
			fmt.Printf("[%s] %s (%s)\n", it.ID, it.Status, it.Sentiment)
			return nil
		},
	}
}

var assignCmd = &cobra.Command{
	Use:   "assign [id] [agent]",
	Short: "Assign a review to an agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		it, err := triage.NewTriager(newStore(b)).Assign(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("[%s] assigned to %s (%s)\n", it.ID, it.Agent, it.Team)
		return nil
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate [id] [1-5|clear]",
	Short: "Set or clear the manager rating of a review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating *int
		if args[1] != "clear" {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating: %s", args[1])
			}
			rating = &n
		}

		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		it, err := triage.NewTriager(newStore(b)).Rate(ctx, args[0], rating)
		if err != nil {
			return err
		}
		if it.ManagerRating == nil {
			fmt.Printf("[%s] manager rating cleared\n", it.ID)
		} else {
			fmt.Printf("[%s] manager rating %d\n", it.ID, *it.ManagerRating)
		}
		return nil
	},
}

var brandCmd = &cobra.Command{
	Use:   "brand [color]",
	Short: "Set the brand's primary color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		snap, err := newStore(b).SetBrandPrimary(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Brand %s primary color: %s\n", snap.Brand.Name, snap.Brand.Primary)
		return nil
	},
}

// --- leaderboard and digest ---

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show this week's and this month's top agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		store := newStore(b)
		snap, err := store.Load(ctx)
		if err != nil {
			return err
		}
		opts, err := leaderboardOptions()
		if err != nil {
			return err
		}
		board := leaderboard.Aggregate(snap.Items, store.Now(), opts)

		fmt.Println(compose.WeekRange(board.WeekStart))
		printRanks(board.WeeklyTop)
		fmt.Printf("\n%s (month to date)\n", compose.MonthLabel(store.Now()))
		printRanks(board.MonthlyTop)
		return nil
	},
}

func printRanks(ranks []leaderboard.AgentRank) {
	if len(ranks) == 0 {
		fmt.Println("  No approved feedback yet.")
		return
	}
	for i, r := range ranks {
		fmt.Printf("  %d. %-20s %-16s score %3.0f  mentions %d", i+1, r.Agent, r.Team, r.Score, r.Count)
		if len(r.Themes) > 0 {
			fmt.Printf("  %s", strings.Join(r.Themes, ", "))
		}
		fmt.Println()
	}
}

var digestOutput string

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Render the weekly recognition digest as Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		store := newStore(b)
		snap, err := store.Load(ctx)
		if err != nil {
			return err
		}
		opts, err := leaderboardOptions()
		if err != nil {
			return err
		}
		now := store.Now()
		md := compose.Digest(snap, leaderboard.Aggregate(snap.Items, now, opts), now)

		if digestOutput == "" {
			fmt.Print(md)
			return nil
		}
		if err := os.WriteFile(digestOutput, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing digest: %w", err)
		}
		fmt.Printf("Digest written to %s\n", digestOutput)
		return nil
	},
}

func init() {
	digestCmd.Flags().StringVarP(&digestOutput, "output", "o", "", "Write the digest to a file")
}

// --- ingest and reset ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Merge a scraped reviews file into the dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		result, err := newCollector(newStore(b)).CollectFile(ctx, args[0])
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Println("Batch already ingested, nothing to do.")
			return nil
		}

		fmt.Println("Ingest complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New reviews: %d\n", result.NewItems)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.Removed > 0 {
			fmt.Printf("  Demo items removed: %d\n", result.Removed)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard stored state and regenerate the demo dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		snap, err := newStore(b).Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reset to %d generated reviews.\n", len(snap.Items))
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		opts, err := leaderboardOptions()
		if err != nil {
			return err
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		store := newStore(b)
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(store, newCollector(store), server.Options{Leaderboard: opts}, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}
