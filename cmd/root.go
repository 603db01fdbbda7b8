package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/config"
)

// app carries state resolved once per invocation by the root command
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	dataDir    string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "readingdna",
		Short: "Reading history analysis with LLM-generated reading profiles",
		Long: `Reading DNA ingests Goodreads and StoryGraph library exports and uses an LLM
to generate a reading profile, a thematic book connection graph, personalised
recommendations and fit evaluations for candidate books.

It runs as an HTTP API (serve) or as one-off commands against the same data
directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json (default: text on a terminal)")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Data directory")

	// Add subcommands
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newPreloadCmd(a))
	cmd.AddCommand(newGenerateCmd(a))
	cmd.AddCommand(newBooksCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newExportCmd(a))

	return cmd
}

// load resolves configuration from defaults, file, environment and flags,
// then installs the logger
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir = a.dataDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(os.Stderr, cfg.Log)
	a.cfg = cfg
	return nil
}

func setupLogging(w *os.File, cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	format := cfg.Format
	if format == "" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
