package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"mcpcalc/internal/calculator"
	"mcpcalc/internal/client"

	"github.com/spf13/cobra"
)

var (
	callA    int32
	callB    int32
	callURL  string
	callArgs string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invokes a calculator tool",
	Long: `Invokes a tool in-process through the dispatcher, or against a running
server over streamable HTTP when --url is set. --args takes the raw JSON
arguments and overrides --a and --b.`,
	Example: `  mcpcalc call sum --a 2 --b 3
  mcpcalc call sub --args '{"a": 5, "b": 7}' --url http://localhost:8888/mcp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool := args[0]

		payload := json.RawMessage(callArgs)
		if callArgs == "" {
			raw, err := json.Marshal(map[string]int32{calculator.PARAM_A: callA, calculator.PARAM_B: callB})
			if err != nil {
				return fmt.Errorf("failed to marshal arguments: %w", err)
			}
			payload = raw
		}

		var (
			result string
			err    error
		)
		if callURL != "" {
			result, err = callRemote(cmd, tool, payload)
		} else {
			result, err = callLocal(tool, payload)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().Int32Var(&callA, calculator.PARAM_A, 0, "The left hand side number")
	callCmd.Flags().Int32Var(&callB, calculator.PARAM_B, 0, "The right hand side number")
	callCmd.Flags().StringVar(&callURL, "url", "", "The MCP endpoint of a running server, e.g. http://localhost:8888/mcp")
	callCmd.Flags().StringVar(&callArgs, "args", "", "Raw JSON arguments, overrides --a and --b")
}

func callLocal(tool string, payload json.RawMessage) (string, error) {
	d, err := calculator.NewDispatcher()
	if err != nil {
		return "", fmt.Errorf("failed to build dispatcher: %w", err)
	}
	return d.Invoke(tool, payload)
}

func callRemote(cmd *cobra.Command, tool string, payload json.RawMessage) (string, error) {
	ctx := cmd.Context()

	c := client.New(callURL)
	if _, err := c.Initialize(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize session with %s: %w", callURL, err)
	}
	defer func() {
		if err := c.Close(ctx); err != nil {
			log.Printf("failed to close session with %s: %v", callURL, err)
		}
	}()

	return c.CallTool(ctx, tool, payload)
}
