// Package cli implements the redline command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/report"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "redline.toml"

// ErrMatchesFound is returned by check when matches remain after checking.
var ErrMatchesFound = errors.New("matches found")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Colour     bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{string(report.FormatText), string(report.FormatJSON)}

// NewRootCommand creates the root command for the redline CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "redline",
		Short: "redline - check documents for style and spelling matches",
		Long: `redline checks text documents against regex and Lua rules and reports
the matches it finds, ordered by category and position.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := report.ParseFormat(opts.Format); err != nil {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to configuration file (default "+DefaultConfigPath+")")
	cmd.PersistentFlags().BoolVar(&opts.Colour, "colour", false, "colour category labels in text output")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// logger returns a text logger on w. Verbose output enables debug logs.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// configPath returns the configuration file to use.
func (o *RootOptions) configPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return DefaultConfigPath
}

// loadConfig loads the configuration. An explicitly named file must exist.
func (o *RootOptions) loadConfig() (config.Config, error) {
	path := o.configPath()
	if o.ConfigPath != "" {
		if err := requireFile(path); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

func (o *RootOptions) format() report.Format {
	f, _ := report.ParseFormat(o.Format)
	return f
}
