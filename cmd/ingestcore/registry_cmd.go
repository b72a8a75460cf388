package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// registryCmd exposes the provider registry for operator inspection.
func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the provider registry",
	}
	cmd.AddCommand(registryListCmd(), registryValidateCmd())
	return cmd
}

func registryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			for _, desc := range app.Registry.List() {
				fmt.Printf("%-24s priority=%-10s reliability=%.2f enabled=%v types=%v\n",
					desc.Name, desc.Priority, desc.ReliabilityScore, desc.Enabled, desc.DataTypes)
			}
			return nil
		},
	}
}

func registryValidateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a provider's health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}
			a, err := app.Registry.Create(name, nil)
			if err != nil {
				return err
			}
			if err := app.Registry.Validate(ctx, name, a); err != nil {
				app.Registry.SetEnabled(name, false)
				return fmt.Errorf("registry: %s failed health check: %w", name, err)
			}
			fmt.Printf("%s: healthy\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "provider name to validate")
	cmd.MarkFlagRequired("name")
	return cmd
}
