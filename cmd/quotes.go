package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/library"
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Add, delete and toggle individual quotes",
}

var quotesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a quote to a book",
	Long: `Adds a quote under --book. The book is created when it does not exist yet,
otherwise its quote count goes up by one. The author defaults to Unknown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, _ := cmd.Flags().GetString("book")
		author, _ := cmd.Flags().GetString("author")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.lib.AddQuote(context.Background(), library.NewQuote{
			Text:   strings.Join(args, " "),
			Author: author,
			Book:   book,
		})
		if err != nil {
			return err
		}
		display.Success(fmt.Sprintf("Quote added! (id %s)", q.ID))
		return printStats(a)
	},
}

var quotesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.lib.DeleteQuote(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			display.Warn("No quote with id " + args[0])
			return nil
		}
		display.Success("Quote deleted.")
		return printStats(a)
	},
}

var quotesToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable one quote on the new tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.lib.ToggleQuote(context.Background(), args[0])
		if err != nil {
			return err
		}
		display.Success(fmt.Sprintf("Quote %s is now %s.", q.ID, display.Status(q.Enabled)))
		return nil
	},
}

func init() {
	quotesAddCmd.Flags().StringP("book", "b", "", "book the quote belongs to (required)")
	quotesAddCmd.Flags().StringP("author", "a", "", "quote author")
	quotesCmd.AddCommand(quotesAddCmd, quotesDeleteCmd, quotesToggleCmd)
	rootCmd.AddCommand(quotesCmd)
}
