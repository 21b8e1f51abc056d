package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dshills/redline/internal/commands"
	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/editor"
	"github.com/dshills/redline/internal/matcher"
	"github.com/dshills/redline/internal/matcher/lua"
	"github.com/dshills/redline/internal/matcher/regex"
	"github.com/dshills/redline/internal/store"
	"github.com/dshills/redline/internal/telemetry"
)

// session wires one document to the matcher service.
type session struct {
	editor   *editor.Editor
	commands *commands.Commands
	service  *matcher.Service
	sub      *store.Subscription
}

func newSession(cfg config.Config, text string, checker matcher.Checker, metrics *telemetry.Metrics, logger *slog.Logger) *session {
	ed := editor.New(
		editor.WithLogger(logger),
		editor.WithContent(text),
		editor.WithConfig(cfg.StateConfig()),
	)
	cmds := commands.New(ed, commands.WithLogger(logger), commands.WithTelemetry(metrics))

	opts := []matcher.Option{
		matcher.WithLogger(logger),
		matcher.WithMetrics(metrics),
		matcher.WithThrottle(cfg.InitialThrottle(), cfg.MaxThrottle()),
		matcher.WithConcurrency(cfg.Concurrency),
	}
	if cfg.BlockTimeoutMS > 0 {
		opts = append(opts, matcher.WithBlockTimeout(cfg.BlockTimeout()))
	}

	return &session{
		editor:   ed,
		commands: cmds,
		service:  matcher.NewService(ed, cmds, checker, opts...),
		sub:      ed.Subscribe(metrics.Observe),
	}
}

// selectCategories enables the named categories, or every category the
// checker provides when none are named.
func (s *session) selectCategories(ctx context.Context, ids []string) error {
	cats, err := s.service.FetchCategories(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		for _, c := range cats {
			ids = append(ids, c.ID)
		}
	}
	for _, id := range ids {
		if err := s.service.AddCategory(id); err != nil {
			return err
		}
	}
	return nil
}

// checkDocument checks the whole document and waits for the result.
func (s *session) checkDocument() error {
	if _, err := s.service.CheckDocument(); err != nil {
		return err
	}
	s.service.Wait()
	return nil
}

func (s *session) close() {
	s.service.Close()
	s.sub.Unsubscribe()
	s.editor.Close()
}

// newChecker builds the checker described by cfg. The returned function
// releases it.
func newChecker(cfg config.Config) (matcher.Checker, func() error, error) {
	rules, err := regex.New(cfg.RegexRules())
	if err != nil {
		return nil, nil, fmt.Errorf("compiling rules: %w", err)
	}
	if cfg.LuaScript == "" {
		return rules, func() error { return nil }, nil
	}

	script, err := lua.Load(cfg.LuaScript)
	if err != nil {
		return nil, nil, err
	}
	return matcher.NewMulti(rules, script), script.Close, nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
