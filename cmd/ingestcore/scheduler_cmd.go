package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// schedulerCmd exposes scheduler introspection; its list subcommand prints
// each registered source's data types and scheduling tiers.
func schedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect and control the tiered scheduler",
	}
	cmd.AddCommand(schedulerListCmd())
	return cmd
}

func schedulerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources and their scheduling tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			for _, desc := range app.Registry.List() {
				for _, dt := range desc.DataTypes {
					fmt.Printf("%-24s %-10s %-10s tier=%s\n", desc.Name, desc.Priority, dt, tierFor(dt))
				}
			}
			return nil
		},
	}
}
