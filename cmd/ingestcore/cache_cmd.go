package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketcore/ingestcore/internal/cache"
)

// cacheCmd exercises the tiered cache directly, mainly for operators
// diagnosing stale/fresh behavior without waiting on a live scheduler.
func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and exercise the tiered cache",
	}
	cmd.AddCommand(cacheGetCmd())
	return cmd
}

func cacheGetCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a key through the SWR cache, refreshing a fixed placeholder payload on miss",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}

			refresh := func(ctx context.Context) ([]byte, time.Duration, time.Duration, error) {
				return []byte(fmt.Sprintf("refreshed-at=%s", time.Now().UTC())), time.Minute, 5 * time.Minute, nil
			}

			payload, kind, err := app.Cache.Get(ctx, key, cache.Refresher(refresh))
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (%s)\n", key, payload, kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "cache key to fetch")
	cmd.MarkFlagRequired("key")
	return cmd
}
