package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sophia-ai/capability-router/internal/config"

	"github.com/spf13/cobra"
)

func newRegistryCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Validate a registry seed and print its capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.Load().RegistryFile
			}
			reg, err := config.LoadRegistry(path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVER\tCAPABILITY\tPERF\tREL\tLATENCY_MS")
			for _, sc := range reg.Capabilities {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.0f\n",
					sc.ServerName, sc.Capability, sc.PerformanceScore, sc.ReliabilityScore, sc.AverageLatencyMs)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d capability records, %d probe endpoints\n",
				len(reg.Capabilities), len(reg.Endpoints))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "registry YAML (default: REGISTRY_FILE or the built-in fleet)")
	return cmd
}
