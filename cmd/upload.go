package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akashicode/quoteshelf/internal/chunker"
	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/ingest"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/reader"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Extract quotes from a PDF book",
	Long: `Reads the PDF page by page, sends it to the language model in ranges of
extract.chunk_size pages and stores the quotes it finds under the file's name.

Ranges with too little text are skipped, and a failing range is logged and
skipped. Uploading the same file again replaces its book entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().Int("chunk-size", 0, "pages per extraction request (default from config)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if n, _ := cmd.Flags().GetInt("chunk-size"); n > 0 {
		a.cfg.Extract.ChunkSize = n
	}

	up, err := reader.LoadFile(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithContext(ctx, a.log)

	display.Header("Processing " + up.Name)
	pipeline := ingest.New(a.lib, a.cfg, ingest.WithProgress(func(p chunker.Progress) {
		display.Step(p.Index, p.Total, "Pages "+p.Range.String())
		switch p.Result {
		case chunker.OutcomeSubmitted:
			display.StepDetail(fmt.Sprintf("%d quotes", p.Quotes))
		case chunker.OutcomeSkipped:
			display.StepDetail("skipped, not enough text")
		case chunker.OutcomeFailed:
			display.StepWarn(p.Err.Error())
		}
	}))

	res, err := pipeline.Process(ctx, up)
	if err != nil {
		return err
	}

	fmt.Fprintln(display.Stdout)
	display.Success(fmt.Sprintf("Successfully extracted %d quotes from %s!", len(res.Quotes), res.Book.Title))
	display.KeyValue("Pages", res.Pages)
	display.KeyValue("Ranges", fmt.Sprintf("%d (%d skipped, %d failed)", res.Chunks, res.Skipped, res.Failed))
	display.KeyValue("Elapsed", res.Elapsed.Round(100*time.Millisecond))
	return nil
}
