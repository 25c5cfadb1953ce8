package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/funnel/internal/cache"
	"github.com/dshills/funnel/internal/config"
)

var flagExpiredOnly bool

// openCache opens the configured response cache. force opens it even when
// the config disables caching, so a disabled cache can still be cleared.
func openCache(force bool) (*cache.Cache, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.Cache.Enabled || force, cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or empty the model response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached responses",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCache(true)
		if err != nil {
			fail(err)
			return
		}
		sweep, what := c.Clear, "entries"
		if flagExpiredOnly {
			sweep, what = c.Prune, "expired entries"
		}
		n, err := sweep()
		if err != nil {
			fail(fmt.Errorf("clearing cache: %w", err))
			return
		}
		fmt.Fprintf(os.Stdout, "Removed %d %s from %s\n", n, what, c.Dir())
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print cache location and size",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openCache(false)
		if err != nil {
			fail(err)
			return
		}
		if !c.Enabled() {
			fmt.Fprintln(os.Stdout, "Response cache is disabled (cache.enabled=false)")
			return
		}
		st, err := c.Stats()
		if err != nil {
			fail(fmt.Errorf("reading cache: %w", err))
			return
		}
		fmt.Fprintf(os.Stdout, "Directory: %s\n", st.Dir)
		fmt.Fprintf(os.Stdout, "Entries:   %d (%d expired)\n", st.Entries, st.Expired)
		fmt.Fprintf(os.Stdout, "Size:      %s\n", formatBytes(st.TotalBytes))
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&flagExpiredOnly, "expired", false, "Only delete entries past their TTL")
	cacheCmd.AddCommand(cacheClearCmd, cacheShowCmd)
}
