package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/display"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the language model API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Save the API key used for quote extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.lib.SetAPIKey(context.Background(), args[0]); err != nil {
			return err
		}
		display.Success("API Key saved!")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved API key, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := a.lib.APIKey(context.Background())
		if err != nil {
			return err
		}
		switch {
		case key != "":
			display.KeyValue("Saved key", maskKey(key))
		case a.cfg.LLM.APIKey != "":
			display.KeyValue("Configured key", maskKey(a.cfg.LLM.APIKey))
		default:
			display.Warn("No API key saved. Run: quoteshelf key set <api-key>")
		}
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return fmt.Sprintf("%s%s%s", key[:4], strings.Repeat("*", len(key)-8), key[len(key)-4:])
}
