package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketcore/ingestcore/internal/sink"
	"github.com/marketcore/ingestcore/internal/schema"
)

// sinkCmd queries the durable columnar store directly from its
// partitioned files, mirroring the external query() interface.
func sinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Query the durable sink",
	}
	cmd.AddCommand(sinkQueryCmd())
	return cmd
}

func sinkQueryCmd() *cobra.Command {
	var (
		dataType string
		symbol   string
		sinceStr string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query records from the durable sink's partitioned files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}

			opts := sink.QueryOptions{Symbol: symbol, Limit: limit}
			if sinceStr != "" {
				start, err := time.Parse(time.RFC3339, sinceStr)
				if err != nil {
					return fmt.Errorf("sink: invalid --since %q: %w", sinceStr, err)
				}
				opts.Start = start
			}

			records, err := sink.Query(sinkConfig(app.Config).DataRoot, schema.DataType(dataType), opts)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%s %s %s %s\n", r.Timestamp.Format(time.RFC3339), r.Source, r.Symbol, r.DataType)
			}
			fmt.Printf("%d records\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataType, "type", "", "data type to query (EQUITY, NEWS, TICK, ...)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&sinceStr, "since", "", "RFC3339 start time")
	cmd.Flags().IntVar(&limit, "limit", 100, "max records to return")
	cmd.MarkFlagRequired("type")
	return cmd
}
