// Package cli implements chainctl, which runs chain detection over local
// order exports without a database.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

// NewRootCmd builds the chainctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chainctl",
		Short: "Detect rolled options chains in order exports",
		Long: `chainctl links a user's filled option orders into rolled chains.

Orders are read from <dir>/<user>.json, either a JSON array of broker order
records or an object with a "results" array.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file; detection defaults are read from it when set")
	root.PersistentFlags().Bool("json", false, "output in JSON format")
	root.PersistentFlags().Bool("debug", false, "log pipeline decisions to stderr")

	root.AddCommand(newDetectCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonMode(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": Version})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "chainctl %s\n", Version)
			return err
		},
	}
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
