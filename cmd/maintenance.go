package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/display"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quote counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return printStats(a)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recount every book's quotes from the stored quotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		changed, err := a.lib.Reconcile(context.Background())
		if err != nil {
			return err
		}
		display.Success(fmt.Sprintf("Recounted quotes, %d books updated.", changed))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all books, quotes and the saved API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd, "Are you sure? This will delete all your custom quotes and books.") {
			display.Info("Cancelled.")
			return nil
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.lib.Reset(context.Background()); err != nil {
			return err
		}
		display.Success("All data has been reset.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(statsCmd, reconcileCmd, resetCmd)
}

// confirm asks a yes/no question on the command's input. Anything but y or
// yes is a no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
