package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┬─┐┌─┐┬ ┬┌┬┐┌─┐
  ╚╗╔╝├┬┘│ ││ │ │ ├┤
   ╚╝ ┴└─└─┘└─┘ ┴ └─┘
`

// projectFlags locate the project every command works on.
type projectFlags struct {
	dir      string
	manifest string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags projectFlags

	rootCmd := &cobra.Command{
		Use:   "vroute",
		Short: "Client-side navigation router toolkit",
		Long: `vroute matches URLs against a route manifest and drives a
navigation router from the command line or a development server.

  • Route patterns with named, optional and wildcard segments
  • Ordered plugin hooks with lazily loaded modules
  • A dev server that runs one router per browser session
  • Prometheus metrics and OpenTelemetry spans per navigation`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", ".", "Project directory containing vroute.json")
	pf.StringVarP(&flags.manifest, "manifest", "m", "", "Route manifest (default from vroute.json)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from vroute.json)")

	rootCmd.AddCommand(
		matchCmd(&flags),
		simulateCmd(&flags),
		serveCmd(&flags),
		versionCmd(),
	)

	return rootCmd
}

// loadProject reads vroute.json from the project directory. Without one,
// defaults are used as long as a manifest is named on the command line.
func loadProject(flags *projectFlags) (*config.Config, error) {
	var cfg *config.Config
	if config.Exists(flags.dir) {
		loaded, err := config.Load(flags.dir)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		if flags.manifest == "" {
			return nil, errors.New("R007").
				WithDetail("No vroute.json found in " + flags.dir).
				WithSuggestion("Run in a project directory or pass --manifest")
		}
		cfg = config.New()
	}

	if flags.manifest != "" {
		abs, err := filepath.Abs(flags.manifest)
		if err != nil {
			return nil, err
		}
		cfg.Manifest = abs
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog logger described by the log config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
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

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// printBanner prints the vroute ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
