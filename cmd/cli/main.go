package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/internal/config"
	"github.com/pkgscout/pkgscout/internal/loader"
	"github.com/pkgscout/pkgscout/internal/storage"
	"github.com/pkgscout/pkgscout/internal/storage/postgres"
	"github.com/pkgscout/pkgscout/internal/storage/sqlite"
	"github.com/pkgscout/pkgscout/pkg/client"
)

var (
	outputJSON  bool
	forceReload bool
	searchLimit int
	searchOrder string
)

var rootCmd = &cobra.Command{
	Use:   "pkgscout",
	Short: "PyPI package search tool",
	Long: `A CLI tool for loading PyPI package datasets and searching them.

The load command imports line-delimited JSON dataset dumps into the local
store; the search command queries a running pkgscout API server.`,
}

var loadCmd = &cobra.Command{
	Use:   "load [data-dir]",
	Short: "Load a dataset into the store",
	Long: `Import a dataset directory into the store.

The directory must contain metadata_lines.json; downloads_lines.json and
github_lines.json are applied when present. Loading replaces the stored
package set, carrying previously fetched GitHub stats forward.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search packages",
	Long:  `Search packages by name or summary via the pkgscout API server.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long:  `Display counts for the local package store.`,
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	loadCmd.Flags().BoolVar(&forceReload, "force", false, "reload even if the store already holds packages")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results (server default when 0)")
	searchCmd.Flags().StringVar(&searchOrder, "order", "", "sort order: downloads, stars, forks, latest_upload")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := cfg.DataDir
	if len(args) == 1 {
		dataDir = args[0]
	}

	// Snapshot a file-backed store before the reload overwrites it.
	if cfg.StorageType == "sqlite" {
		if err := loader.BackupStoreFile(cfg.SQLitePath); err != nil {
			return fmt.Errorf("failed to back up store: %w", err)
		}
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	count, err := store.CountPackages(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect store: %w", err)
	}
	if count > 0 && !forceReload {
		return fmt.Errorf("store already holds %d packages; pass --force to reload", count)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	l := loader.New(store, logger)

	fmt.Printf("Loading dataset from %s\n", dataDir)
	if err := l.Load(ctx, dataDir); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	total, err := store.CountPackages(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Load complete: %d packages\n", total)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	c := client.NewClient(cfg.APIEndpoint)
	result, err := c.SearchPackages(query, searchLimit, searchOrder)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Printf("\nSearch: %q (%d of %d matches)\n\n", result.Query, result.Shown, result.Total)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Package", "Version", "Downloads", "Stars", "Forks", "Summary"})
	for _, p := range result.Packages {
		summary := p.Summary
		if len(summary) > 60 {
			summary = summary[:57] + "..."
		}
		table.Append([]string{
			p.Name,
			p.Version,
			fmt.Sprintf("%d", p.Downloads),
			fmt.Sprintf("%d", p.Stars),
			fmt.Sprintf("%d", p.Forks),
			summary,
		})
	}
	table.Render()

	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	count, err := store.CountPackages(context.Background())
	if err != nil {
		return fmt.Errorf("failed to count packages: %w", err)
	}

	if outputJSON {
		fmt.Printf(`{"packages":%d}`, count)
		fmt.Println()
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Packages", fmt.Sprintf("%d", count)})
	table.Render()

	return nil
}
