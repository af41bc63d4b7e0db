package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akashicode/quoteshelf/internal/config"
	"github.com/akashicode/quoteshelf/internal/display"
	"github.com/akashicode/quoteshelf/internal/library"
	"github.com/akashicode/quoteshelf/internal/logging"
	"github.com/akashicode/quoteshelf/internal/storage"
)

// envPrefix namespaces environment overrides, e.g. QUOTESHELF_LLM_API_KEY.
const envPrefix = "QUOTESHELF"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quoteshelf",
	Short: "A motivational quote shelf for your new tab.",
	Long: `Quoteshelf keeps a local library of books and quotes for a new-tab page.

Upload a PDF and the configured language model pulls the most inspiring
quotes out of it, twenty pages at a time. Quotes and books can be added,
toggled and deleted from the CLI or through the HTTP API started by
"quoteshelf serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		display.ErrorMsg(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.quoteshelf/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the library database (default: ~/.quoteshelf/shelf.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A .env file in the working directory is optional.
	_ = godotenv.Load()

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".quoteshelf"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// config.yaml is optional when flags or env vars are set.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			display.Warn(fmt.Sprintf("could not read config: %v", err))
		}
	}
}

// app is what every command needs: the validated config, a logger and the
// opened library.
type app struct {
	cfg *config.Config
	log *slog.Logger
	kv  storage.KV
	lib *library.Library

	closeLog func() error
}

// openApp loads the config, installs the logger and opens the library.
// Callers must defer app.Close.
func openApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, closeLog := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	logging.SetDefault(logger)

	kv, err := storage.OpenBolt(cfg.Storage.Path)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open library %s: %w", cfg.Storage.Path, err)
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		kv:       kv,
		lib:      library.New(kv),
		closeLog: closeLog,
	}, nil
}

// Close releases the database and the log file.
func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.log.Warn("close library", slog.Any("error", err))
	}
	_ = a.closeLog()
}
