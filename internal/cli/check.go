package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/matcher"
	"github.com/dshills/redline/internal/report"
	"github.com/dshills/redline/internal/state"
	"github.com/dshills/redline/internal/telemetry"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Fix        bool
	Categories []string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Check files and report matches",
		Long: `Check each file against the configured rules and report the matches.

With --fix, suggestions marked auto-fix are applied and the file is rewritten;
the report then lists the matches that remain. The command exits with an
error when any match remains.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Fix, "fix", false, "apply auto-fixable suggestions in place")
	cmd.Flags().StringSliceVar(&opts.Categories, "categories", nil, "categories to check (default from config, else all)")

	return cmd
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, opts *CheckOptions, paths []string) error {
	logger := rootOpts.logger(cmd.ErrOrStderr())

	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	checker, release, err := newChecker(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	categories := opts.Categories
	if len(categories) == 0 {
		categories = cfg.Categories
	}
	metrics := telemetry.New(prometheus.NewRegistry())

	remaining := 0
	for _, path := range paths {
		n, err := checkFile(cmd, rootOpts, cfg, checker, metrics, path, categories, opts.Fix)
		if err != nil {
			return err
		}
		remaining += n
	}

	logger.Debug("check finished", "files", len(paths), "matches", remaining)
	if remaining > 0 {
		return ErrMatchesFound
	}
	return nil
}

// checkFile checks one file and writes its report. It returns the number of
// matches reported.
func checkFile(cmd *cobra.Command, rootOpts *RootOptions, cfg config.Config, checker matcher.Checker,
	metrics *telemetry.Metrics, path string, categories []string, fix bool) (int, error) {
	logger := rootOpts.logger(cmd.ErrOrStderr())

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	s := newSession(cfg, string(data), checker, metrics, logger.With("path", path))
	defer s.close()

	if err := s.selectCategories(cmd.Context(), categories); err != nil {
		return 0, err
	}
	if err := s.checkDocument(); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	if fix {
		fixable := len(state.SelectAllAutoFixableMatches(s.editor.State()))
		if s.commands.ApplyAutoFixableSuggestions() {
			if err := writeFilePreservingMode(path, s.editor.Document().Text()); err != nil {
				return 0, err
			}
			logger.Info("applied fixes", "path", path, "fixes", fixable)
		}
	}

	r := report.New(path, s.editor.Document(), s.editor.State())
	if err := report.Write(cmd.OutOrStdout(), r, rootOpts.format(), report.WithColour(rootOpts.Colour)); err != nil {
		return 0, err
	}
	return len(r.Matches), nil
}

func writeFilePreservingMode(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, []byte(text), mode)
}
