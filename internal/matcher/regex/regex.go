// Package regex provides a rule-driven checker.
//
// Each Rule pairs a pattern with the category, annotation and suggestions to
// report for every occurrence. Patterns use the .NET-style syntax of
// regexp2, so rules may use lookaround and backreferences.
package regex

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

// DefaultMatchTimeout bounds a single pattern evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// ErrInvalidRule indicates a rule that cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// Rule describes one pattern and what to report for it.
type Rule struct {
	ID          string
	Pattern     string
	IgnoreCase  bool
	Annotation  string
	Category    state.Category
	Suggestions []string
	AutoFix     bool
}

type compiledRule struct {
	Rule
	re *regexp2.Regexp
}

// Checker reports rule matches.
//
// Checker is safe for concurrent use.
type Checker struct {
	rules      []compiledRule
	categories []state.Category
	newID      func() string
}

// Option configures a Checker.
type Option func(*options)

type options struct {
	timeout time.Duration
	newID   func() string
}

// WithMatchTimeout bounds each pattern evaluation.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithIDFunc sets the match ID generator.
func WithIDFunc(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}

// New compiles rules into a Checker. Categories are listed in the order
// their first rule appears.
func New(rules []Rule, opts ...Option) (*Checker, error) {
	o := options{timeout: DefaultMatchTimeout, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Checker{newID: o.newID}
	seen := make(map[string]bool)
	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("%w: rule %d (%s): empty pattern", ErrInvalidRule, i, r.ID)
		}
		if r.Category.ID == "" {
			return nil, fmt.Errorf("%w: rule %d (%s): missing category", ErrInvalidRule, i, r.ID)
		}

		flags := regexp2.None
		if r.IgnoreCase {
			flags |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(r.Pattern, flags)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRule, i, r.ID, err)
		}
		re.MatchTimeout = o.timeout

		c.rules = append(c.rules, compiledRule{Rule: r, re: re})
		if !seen[r.Category.ID] {
			seen[r.Category.ID] = true
			c.categories = append(c.categories, r.Category)
		}
	}
	return c, nil
}

// Categories returns the categories of the rules.
func (c *Checker) Categories(context.Context) ([]state.Category, error) {
	out := make([]state.Category, len(c.categories))
	copy(out, c.categories)
	return out, nil
}

// Check runs every rule of the requested categories against the block text.
// Ranges are byte offsets relative to the block.
func (c *Checker) Check(ctx context.Context, b block.Block, categoryIDs []string) ([]state.Match, error) {
	wanted := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = true
	}

	var offsets []int
	var out []state.Match
	for _, r := range c.rules {
		if !wanted[r.Category.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offsets == nil {
			offsets = runeOffsets(b.Text)
		}

		m, err := r.re.FindStringMatch(b.Text)
		for ; m != nil && err == nil; m, err = r.re.FindNextMatch(m) {
			if m.Length == 0 {
				continue
			}
			from := buffer.Offset(offsets[m.Index])
			to := buffer.Offset(offsets[m.Index+m.Length])
			out = append(out, c.match(r, m.String(), buffer.Range{From: from, To: to}))
		}
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
	}
	return out, nil
}

func (c *Checker) match(r compiledRule, text string, rng buffer.Range) state.Match {
	suggestions := make([]state.Suggestion, len(r.Suggestions))
	for i, s := range r.Suggestions {
		suggestions[i] = state.Suggestion{Type: state.TextSuggestion, Text: s}
	}
	return state.Match{
		ID:          c.newID(),
		Range:       rng,
		SourceText:  text,
		Annotation:  r.Annotation,
		Category:    r.Category,
		Suggestions: suggestions,
		CanAutoFix:  r.AutoFix && len(suggestions) > 0,
	}
}

// runeOffsets maps rune indexes of s to byte offsets. The final entry is
// len(s).
func runeOffsets(s string) []int {
	out := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		out = append(out, i)
	}
	return append(out, len(s))
}
