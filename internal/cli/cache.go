package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
)

type pruneOptions struct {
	KeepLast    int
	KeepDays    int
	ProtectKeys []string
	Order       string
	DryRun      bool
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the archive cache",
	}
	cmd.AddCommand(newCacheListCommand())
	cmd.AddCommand(newCachePruneCommand())
	return cmd
}

func newCacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List committed cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheList(cmd.Context(), cmd)
		},
	}
}

func runCacheList(ctx context.Context, cmd *cobra.Command) error {
	service := newAppService(ctx)
	result, err := service.ListCache(ctx, app.CacheListRequest{CacheDir: resolveCacheDir(cmd)})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSOURCE\tREVISION\tSIZE\tLAST USED")
	for _, entry := range result.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			entry.Key, entry.SourceURL, entry.Revision, entry.Size, entry.LastUsedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func newCachePruneCommand() *cobra.Command {
	opts := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune cache entries based on retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCachePrune(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.KeepLast, "keep-last", 0, "Keep last N entries per source URL")
	cmd.Flags().IntVar(&opts.KeepDays, "keep-days", 0, "Keep entries used within N days")
	cmd.Flags().StringSliceVar(&opts.ProtectKeys, "protect-key", nil, "Protect cache keys from pruning")
	cmd.Flags().StringVar(&opts.Order, "order", "used", "Order within a source for keep-last (used or revision)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report prune actions without deleting")

	_ = viper.BindPFlag("keep_last", cmd.Flags().Lookup("keep-last"))
	_ = viper.BindPFlag("keep_days", cmd.Flags().Lookup("keep-days"))
	_ = viper.BindPFlag("protect_keys", cmd.Flags().Lookup("protect-key"))
	_ = viper.BindPFlag("order", cmd.Flags().Lookup("order"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	return cmd
}

func runCachePrune(ctx context.Context, cmd *cobra.Command, opts pruneOptions) error {
	service := newAppService(ctx)
	result, err := service.PruneCache(ctx, app.CachePruneRequest{
		CacheDir:    resolveCacheDir(cmd),
		KeepLast:    resolveInt(cmd, opts.KeepLast, "keep_last", "keep-last"),
		KeepDays:    resolveInt(cmd, opts.KeepDays, "keep_days", "keep-days"),
		ProtectKeys: resolveStrings(cmd, opts.ProtectKeys, "protect_keys", "protect-key"),
		Order:       resolveString(cmd, opts.Order, "order", "order"),
		DryRun:      resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry-run: keep=%d delete=%d\n", result.KeepCount, result.DeleteCount)
		for _, key := range result.Deleted {
			fmt.Printf("  would delete %s\n", key)
		}
		return nil
	}
	fmt.Printf("pruned cache entries: %d (stale staging dirs removed: %d)\n", result.DeleteCount, result.StagingRemoved)
	return nil
}
