// Package config loads redline settings from TOML or YAML files.
//
// Settings cover the reducer flags, the matcher service's scheduling, the
// regex rules and an optional Lua script. A missing file yields Default().
// Keys left out of a file keep their default values; a file that defines
// rules replaces the default rule set.
//
// Example TOML:
//
//	check_on_edit = true
//	initial_throttle_ms = 1000
//	categories = ["spelling"]
//
//	[[rules]]
//	id = "teh"
//	pattern = '\bteh\b'
//	annotation = "Possible typo."
//	suggestions = ["the"]
//	auto_fix = true
//	category = { id = "spelling", name = "Spelling", colour = "#d32f2f" }
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/redline/internal/matcher/regex"
	"github.com/dshills/redline/internal/state"
)

// Config holds all redline settings.
type Config struct {
	// Debug shows dirty and in-flight ranges as annotations.
	Debug bool `toml:"debug" yaml:"debug"`

	// CheckOnEdit accumulates dirty ranges and checks them automatically.
	CheckOnEdit bool `toml:"check_on_edit" yaml:"check_on_edit"`

	// InitialThrottleMS is the delay before a scheduled check.
	InitialThrottleMS int `toml:"initial_throttle_ms" yaml:"initial_throttle_ms"`

	// MaxThrottleMS caps the delay reached while backing off.
	MaxThrottleMS int `toml:"max_throttle_ms" yaml:"max_throttle_ms"`

	// BlockTimeoutMS bounds each block check. Zero means no limit.
	BlockTimeoutMS int `toml:"block_timeout_ms" yaml:"block_timeout_ms"`

	// Concurrency limits how many blocks are checked at once.
	Concurrency int `toml:"concurrency" yaml:"concurrency"`

	// Categories to check. Empty means every available category.
	Categories []string `toml:"categories" yaml:"categories"`

	Rules []Rule `toml:"rules" yaml:"rules"`

	// LuaScript is the path of a Lua checker script. Relative paths are
	// resolved against the config file's directory.
	LuaScript string `toml:"lua_script" yaml:"lua_script"`
}

// Category identifies the category a rule reports under.
type Category struct {
	ID     string `toml:"id" yaml:"id"`
	Name   string `toml:"name" yaml:"name"`
	// Colour is a hex colour such as "#d32f2f".
	Colour string `toml:"colour" yaml:"colour"`
}

// Rule is a regex rule.
type Rule struct {
	ID          string   `toml:"id" yaml:"id"`
	Pattern     string   `toml:"pattern" yaml:"pattern"`
	IgnoreCase  bool     `toml:"ignore_case" yaml:"ignore_case"`
	Annotation  string   `toml:"annotation" yaml:"annotation"`
	Category    Category `toml:"category" yaml:"category"`
	Suggestions []string `toml:"suggestions" yaml:"suggestions"`
	AutoFix     bool     `toml:"auto_fix" yaml:"auto_fix"`
}

var (
	spelling   = Category{ID: "spelling", Name: "Spelling", Colour: "#d32f2f"}
	repetition = Category{ID: "repetition", Name: "Repetition", Colour: "#f9a825"}
	wordiness  = Category{ID: "wordiness", Name: "Wordiness", Colour: "#00897b"}
)

// Default returns the default configuration.
func Default() Config {
	return Config{
		CheckOnEdit:       true,
		InitialThrottleMS: 2000,
		MaxThrottleMS:     16000,
		Concurrency:       4,
		Rules:             DefaultRules(),
	}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "teh",
			Pattern:     `\bteh\b`,
			IgnoreCase:  true,
			Annotation:  "Possible typo.",
			Category:    spelling,
			Suggestions: []string{"the"},
			AutoFix:     true,
		},
		{
			ID:          "recieve",
			Pattern:     `\brecieve\b`,
			IgnoreCase:  true,
			Annotation:  "\"i\" before \"e\" except after \"c\".",
			Category:    spelling,
			Suggestions: []string{"receive"},
			AutoFix:     true,
		},
		{
			ID:         "repeated-word",
			Pattern:    `\b(\w+)\s+\1\b`,
			IgnoreCase: true,
			Annotation: "This word is repeated.",
			Category:   repetition,
		},
		{
			ID:          "in-order-to",
			Pattern:     `\bin order to\b`,
			IgnoreCase:  true,
			Annotation:  "Consider a shorter phrase.",
			Category:    wordiness,
			Suggestions: []string{"to"},
		},
		{
			ID:         "very",
			Pattern:    `\bvery (?=\w+)`,
			IgnoreCase: true,
			Annotation: "Consider a stronger word instead of an intensifier.",
			Category:   wordiness,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	var errs []error
	if c.InitialThrottleMS <= 0 {
		errs = append(errs, fmt.Errorf("initial_throttle_ms must be positive, got %d", c.InitialThrottleMS))
	}
	if c.MaxThrottleMS < c.InitialThrottleMS {
		errs = append(errs, fmt.Errorf("max_throttle_ms (%d) must not be less than initial_throttle_ms (%d)", c.MaxThrottleMS, c.InitialThrottleMS))
	}
	if c.BlockTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("block_timeout_ms must not be negative, got %d", c.BlockTimeoutMS))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}

	ids := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		switch {
		case r.ID == "":
			errs = append(errs, fmt.Errorf("rules[%d]: missing id", i))
		case ids[r.ID]:
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate id %q", i, r.ID))
		}
		ids[r.ID] = true
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: missing pattern", i))
		}
		if r.Category.ID == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: missing category id", i))
		}
		if r.Category.Colour != "" {
			if _, err := colorful.Hex(r.Category.Colour); err != nil {
				errs = append(errs, fmt.Errorf("rules[%d]: category colour: %w", i, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// StateConfig returns the reducer flags.
func (c Config) StateConfig() state.Config {
	return state.Config{
		Debug:                       c.Debug,
		RequestMatchesOnDocModified: c.CheckOnEdit,
	}
}

// InitialThrottle returns InitialThrottleMS as a duration.
func (c Config) InitialThrottle() time.Duration {
	return time.Duration(c.InitialThrottleMS) * time.Millisecond
}

// MaxThrottle returns MaxThrottleMS as a duration.
func (c Config) MaxThrottle() time.Duration {
	return time.Duration(c.MaxThrottleMS) * time.Millisecond
}

// BlockTimeout returns BlockTimeoutMS as a duration.
func (c Config) BlockTimeout() time.Duration {
	return time.Duration(c.BlockTimeoutMS) * time.Millisecond
}

// RegexRules converts the rules for the regex checker. Patterns and
// suggestions are normalised to NFC so that composed and decomposed
// spellings in a config file behave the same.
func (c Config) RegexRules() []regex.Rule {
	out := make([]regex.Rule, len(c.Rules))
	for i, r := range c.Rules {
		name := r.Category.Name
		if name == "" {
			name = r.Category.ID
		}
		out[i] = regex.Rule{
			ID:         r.ID,
			Pattern:    norm.NFC.String(r.Pattern),
			IgnoreCase: r.IgnoreCase,
			Annotation: r.Annotation,
			Category: state.Category{
				ID:     r.Category.ID,
				Name:   name,
				Colour: r.Category.Colour,
			},
			Suggestions: nfc(r.Suggestions),
			AutoFix:     r.AutoFix,
		}
	}
	return out
}

func nfc(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = norm.NFC.String(s)
	}
	return out
}
