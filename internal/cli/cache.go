package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the manifest cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheInfoCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. The file cache
// shards entries as <dir>/<xx>/<hash>.json; clear removes the entries and
// prunes the emptied shard directories.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached manifest documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			entries, _, err := cacheEntries(dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			for _, path := range entries {
				if err := os.Remove(path); err == nil {
					count++
				}
			}

			// Prune shard directories left empty by the sweep.
			shards, _ := os.ReadDir(dir)
			for _, shard := range shards {
				if shard.IsDir() {
					_ = os.Remove(filepath.Join(dir, shard.Name()))
				}
			}

			printSuccess("Cleared %d cached manifests", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache entry count and size on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			entries, size, err := cacheEntries(dir)
			if err != nil {
				return err
			}

			printInfo("%d cached manifests, %.1f KiB", len(entries), float64(size)/1024)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// cacheEntries lists the manifest entry files under dir and their combined
// size. A missing directory is an empty cache.
func cacheEntries(dir string) (paths []string, size int64, err error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, 0, nil
	}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		paths = append(paths, path)
		return nil
	})
	return paths, size, err
}
