package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/library"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List and manage processed books",
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List books with their quote counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.lib.Snapshot(context.Background(), library.View{})
		if err != nil {
			return err
		}
		renderBooks(snap)
		return nil
	},
}

var booksQuotesCmd = &cobra.Command{
	Use:   "quotes <title>",
	Short: "Show the quotes of one book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.lib.Snapshot(context.Background(), library.View{OpenBook: args[0]})
		if err != nil {
			return err
		}
		if snap.OpenBook == nil {
			return fmt.Errorf("%w: %s", library.ErrBookNotFound, args[0])
		}
		renderBookDetail(*snap.OpenBook)
		return nil
	},
}

var booksDeleteCmd = &cobra.Command{
	Use:   "delete <title>",
	Short: "Delete a book and all of its quotes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd, fmt.Sprintf("Are you sure you want to delete %q and all its quotes?", title)) {
			display.Info("Cancelled.")
			return nil
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.lib.DeleteBook(context.Background(), title)
		if err != nil {
			return err
		}
		display.Success(fmt.Sprintf("Deleted %s and %d quotes.", title, removed))
		return printStats(a)
	},
}

var booksToggleCmd = &cobra.Command{
	Use:   "toggle <title>",
	Short: "Enable or disable a book on the new tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		book, err := a.lib.ToggleBook(context.Background(), args[0])
		if err != nil {
			return err
		}
		display.Success(fmt.Sprintf("%s is now %s.", book.Title, display.Status(book.Enabled)))
		return nil
	},
}

func init() {
	booksDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	booksCmd.AddCommand(booksListCmd, booksQuotesCmd, booksDeleteCmd, booksToggleCmd)
	rootCmd.AddCommand(booksCmd)
}

func renderBooks(snap library.Snapshot) {
	display.Header("Books")
	if len(snap.Books) == 0 {
		display.Info("No books processed yet.")
	} else {
		rows := make([][]string, 0, len(snap.Books))
		for _, bv := range snap.Books {
			count := strconv.Itoa(bv.Book.QuoteCount)
			if bv.Matching != bv.Book.QuoteCount {
				count += fmt.Sprintf(" (%d stored)", bv.Matching)
			}
			rows = append(rows, []string{
				bv.Book.Title,
				count,
				bv.Book.Date.Local().Format("2006-01-02"),
				display.Status(bv.Book.Enabled),
			})
		}
		display.Table([]string{"TITLE", "QUOTES", "ADDED", "STATUS"}, rows)
	}
	fmt.Fprintln(display.Stdout)
	renderStats(snap.Stats)
}

func renderBookDetail(d library.BookDetail) {
	display.Header(d.Book.Title)
	if len(d.Quotes) == 0 {
		display.Info("No quotes found for this book.")
		return
	}
	rows := make([][]string, 0, len(d.Quotes))
	for _, q := range d.Quotes {
		rows = append(rows, []string{q.ID, truncate(q.Text, 60), q.Author, display.Status(q.Enabled)})
	}
	display.Table([]string{"ID", "QUOTE", "AUTHOR", "STATUS"}, rows)
}

func renderStats(st library.Stats) {
	display.KeyValue("Total quotes", st.TotalQuotes)
	display.KeyValue("Custom quotes", st.CustomQuotes)
}

func printStats(a *app) error {
	snap, err := a.lib.Snapshot(context.Background(), library.View{})
	if err != nil {
		return err
	}
	renderStats(snap.Stats)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
