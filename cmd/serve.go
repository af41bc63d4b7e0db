package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/ingest"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/metrics"
	"github.com/akashicode/quoteshelf/internal/newtab"
	"github.com/akashicode/quoteshelf/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the extension pages",
	Long: `Starts the HTTP API on port 8000 (or server.port / $PORT).

The new-tab page fetches random quotes and resolves searches through it, and
the options page uploads PDFs and manages books, quotes and the API key.
Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().Bool("quiet", false, "do not print a line per request")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// PORT wins in container environments.
	if envPort := os.Getenv("PORT"); envPort != "" {
		viper.Set("server.port", envPort)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	quiet, _ := cmd.Flags().GetBool("quiet")
	srv, err := server.New(server.Config{
		Library:     a.lib,
		Pipeline:    ingest.New(a.lib, a.cfg, ingest.WithMetrics(m)),
		Picker:      newtab.NewPicker(a.lib, a.kv),
		Metrics:     m,
		LogRequests: !quiet,
	})
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := a.lib.Snapshot(ctx, library.View{})
	if err != nil {
		return err
	}
	key, err := a.lib.APIKey(ctx)
	if err != nil {
		return err
	}
	display.PrintBanner(display.Stdout, display.ServerInfo{
		Version:      version,
		StoragePath:  a.cfg.Storage.Path,
		Books:        len(snap.Books),
		TotalQuotes:  snap.Stats.TotalQuotes,
		CustomQuotes: snap.Stats.CustomQuotes,
		Provider:     a.cfg.LLM.Provider,
		Model:        a.cfg.LLM.Model,
		BaseURL:      a.cfg.LLM.BaseURL,
		HasKey:       key != "" || a.cfg.LLM.APIKey != "",
		Port:         a.cfg.Server.Port,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return logging.WithContext(context.Background(), a.log) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
