package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/i474232898/infonaytto/internal/config"
	"github.com/i474232898/infonaytto/internal/dashboard"
	"github.com/i474232898/infonaytto/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local SQLite cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what is cached for each source",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, path, err := openSQLiteCache()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		fmt.Printf("Cache: %s\n", path)
		printStats(os.Stdout, stats, time.Now())
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <kind>",
	Short: "Print the cached record of a source as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := dashboard.ParseKind(args[0])
		if err != nil {
			return err
		}
		db, _, err := openSQLiteCache()
		if err != nil {
			return err
		}
		defer db.Close()

		entry, err := db.Get(cmd.Context(), kind)
		if err != nil {
			return fmt.Errorf("reading %s: %w", kind, err)
		}
		out, err := json.MarshalIndent(entry.Record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s (fetched %s)\n%s\n", kind, entry.FetchedAt.Format(time.RFC3339), out)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached record",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, path, err := openSQLiteCache()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := db.Clear(ctx); err != nil {
			return err
		}
		fmt.Printf("Cleared %s.\n", path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openSQLiteCache() (*store.SQLiteStore, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if cfg.CacheBackend != "sqlite" {
		return nil, "", fmt.Errorf("cache commands need the sqlite backend, configured: %s", cfg.CacheBackend)
	}
	path := cachePath(cfg)
	db, err := store.OpenSQLite(path, zerolog.Nop())
	if err != nil {
		return nil, "", fmt.Errorf("opening cache: %w", err)
	}
	return db, path, nil
}

func printStats(w io.Writer, stats []store.Stat, now time.Time) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "Nothing cached yet.")
		return
	}
	for _, st := range stats {
		age := now.Sub(st.FetchedAt).Truncate(time.Second)
		fmt.Fprintf(w, "%-10s %8s  fetched %s (%s ago)\n",
			st.Kind, formatBytes(st.Bytes), st.FetchedAt.Format("2006-01-02 15:04"), age)
	}
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
