package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/newtab"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Show a random quote, as the new tab would",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pick, err := newtab.NewPicker(a.lib, a.kv).Pick(context.Background())
		if err != nil {
			return err
		}
		display.Quote(pick.Quote.Text, pick.Quote.Author, pick.Quote.Book)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve new-tab search box input to a URL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, ok := newtab.ResolveSearch(strings.Join(args, " "))
		if !ok {
			dest = newtab.DefaultDestination
		}
		fmt.Fprintln(cmd.OutOrStdout(), dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(randomCmd, searchCmd)
}
