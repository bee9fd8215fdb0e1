package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"costsync/pkg/config"
	"costsync/pkg/namecache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the cost center name cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached entries",
	RunE:  runCacheClear,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired entries",
	RunE:  runCacheCleanup,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}

func openCacheForCommand() (*namecache.SQLiteStore, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg)

	path, err := cfg.CachePath()
	if err != nil {
		return nil, nil, err
	}
	store, err := namecache.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runCacheStats(_ *cobra.Command, _ []string) error {
	store, cfg, err := openCacheForCommand()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return err
	}

	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	fresh := 0
	var oldest, newest time.Time
	for i, e := range entries {
		if e.Fresh(ttl) {
			fresh++
		}
		if i == 0 || e.CachedAt.Before(oldest) {
			oldest = e.CachedAt
		}
		if i == 0 || e.CachedAt.After(newest) {
			newest = e.CachedAt
		}
	}

	fmt.Printf("📊 Cache statistics:\n")
	fmt.Printf("  • Location: %s\n", store.Path())
	fmt.Printf("  • Entries: %d\n", len(entries))
	fmt.Printf("  • Fresh (TTL %s): %d\n", ttl, fresh)
	fmt.Printf("  • Expired: %d\n", len(entries)-fresh)
	if len(entries) > 0 {
		fmt.Printf("  • Oldest: %s\n", oldest.Format(time.RFC3339))
		fmt.Printf("  • Newest: %s\n", newest.Format(time.RFC3339))
	}
	return nil
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	store, _, err := openCacheForCommand()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}

	fmt.Printf("✓ Removed %d cache entries\n", len(entries))
	return nil
}

func runCacheCleanup(_ *cobra.Command, _ []string) error {
	store, cfg, err := openCacheForCommand()
	if err != nil {
		return err
	}
	defer store.Close()

	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
	removed, err := store.Cleanup(ttl)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Removed %d expired cache entries\n", removed)
	return nil
}
