package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/engine/patch"
	"github.com/dshills/redline/internal/report"
	"github.com/dshills/redline/internal/state"
	"github.com/dshills/redline/internal/store"
	"github.com/dshills/redline/internal/telemetry"
	"github.com/dshills/redline/internal/watcher"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check a file each time it changes",
		Long: `Check a file, then keep watching it. Each saved change is applied to the
open document as a minimal edit, so only the edited paragraphs are checked
again. A new report is written whenever a check completes.

Changes to the configuration file update the debug and check-on-edit
settings; rule changes take effect on restart.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, rootOpts, categories, args[0])
		},
	}

	cmd.Flags().StringSliceVar(&categories, "categories", nil, "categories to check (default from config, else all)")

	return cmd
}

// syncWriter serialises report output from concurrent checks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runWatch(cmd *cobra.Command, rootOpts *RootOptions, categories []string, path string) error {
	ctx := cmd.Context()
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

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if len(categories) == 0 {
		categories = cfg.Categories
	}
	metrics := telemetry.New(prometheus.NewRegistry())
	s := newSession(cfg, string(data), checker, metrics, logger.With("path", path))
	defer s.close()

	if err := s.selectCategories(ctx, categories); err != nil {
		return err
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	writeReport := func() {
		r := report.New(path, s.editor.Document(), s.editor.State())
		if err := report.Write(out, r, rootOpts.format(), report.WithColour(rootOpts.Colour)); err != nil {
			logger.Warn("writing report", "error", err)
		}
	}

	if err := s.checkDocument(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	writeReport()

	sub := s.editor.SubscribeType(store.EventStateChanged, func(e store.Event) {
		if checkCompleted(e.Prev, e.Next) {
			writeReport()
		}
	})
	defer sub.Unsubscribe()

	checkOnEdit := cfg.CheckOnEdit
	var mu sync.Mutex

	docs, err := watcher.New(func(string) {
		text, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reading changed file", "error", err)
			return
		}
		if err := syncDocument(s, string(text)); err != nil {
			logger.Warn("applying change", "error", err)
			return
		}

		mu.Lock()
		onEdit := checkOnEdit
		mu.Unlock()
		if !onEdit {
			if _, err := s.service.CheckDocument(); err != nil {
				logger.Warn("checking document", "error", err)
			}
		}
	}, watcher.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = docs.Close() }()
	if err := docs.Add(path); err != nil {
		return err
	}

	if cfgPath := rootOpts.configPath(); requireFile(cfgPath) == nil {
		cw, err := config.Watch(cfgPath, func(next config.Config, err error) {
			if err != nil {
				return
			}
			mu.Lock()
			checkOnEdit = next.CheckOnEdit
			mu.Unlock()
			s.commands.SetConfigValue(state.ConfigDebug, next.Debug)
			s.commands.SetConfigValue(state.ConfigRequestMatchesOnDocModified, next.CheckOnEdit)
		}, config.WithWatchLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = cw.Close() }()
	}

	logger.Info("watching", "path", path)
	<-ctx.Done()
	return nil
}

// syncDocument applies the difference between the open document and text as
// a user edit.
func syncDocument(s *session, text string) error {
	edits := patch.FromReplacement(s.editor.Document().Text(), 0, text)
	if len(edits) == 0 {
		return nil
	}
	return s.editor.Dispatch(edits, nil)
}

// checkCompleted reports whether the transition finished the last request in
// flight.
func checkCompleted(prev, next state.State) bool {
	return len(prev.RequestsInFlight) > 0 && len(next.RequestsInFlight) == 0
}
