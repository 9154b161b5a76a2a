package cmd

import (
	"encoding/json"
	"fmt"

	"mcpcalc/internal/calculator"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe [tool]",
	Short: "Prints the service metadata as JSON",
	Long:  `Prints the instructions, capabilities and tool descriptors, or the descriptor of a single tool, as indented JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := calculator.NewDispatcher()
		if err != nil {
			return fmt.Errorf("failed to build dispatcher: %w", err)
		}

		var v any = d.Describe()
		if len(args) == 1 {
			td, ok := d.Lookup(args[0])
			if !ok {
				return &calculator.UnknownToolError{Name: args[0]}
			}
			v = td
		}

		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal descriptors: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
