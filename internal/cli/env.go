package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// envCommand prints the marker environment after config and --env overrides.
func (c *CLI) envCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the marker environment used for evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.settings().MarkerEnvironment()
			if err != nil {
				return err
			}
			for _, k := range slices.Sorted(maps.Keys(env)) {
				printField(c.Out, k, fmt.Sprintf("%q", env[k]))
			}
			return nil
		},
	}
}

// configCommand prints the effective configuration as TOML.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(c.Out, c.settings().String())
			return nil
		},
	}
}
