package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/matcher/regex"
	"github.com/dshills/redline/internal/state"
)

const tomlConfig = `
debug = true
initial_throttle_ms = 500
max_throttle_ms = 4000
categories = ["spelling"]
lua_script = "rules.lua"

[[rules]]
id = "colour"
pattern = '\bcolor\b'
annotation = "Use British spelling."
suggestions = ["colour"]
auto_fix = true
category = { id = "spelling", name = "Spelling", colour = "#d32f2f" }
`

const yamlConfig = `
debug: true
initial_throttle_ms: 500
max_throttle_ms: 4000
categories: [spelling]
lua_script: rules.lua
rules:
  - id: colour
    pattern: '\bcolor\b'
    annotation: Use British spelling.
    suggestions: [colour]
    auto_fix: true
    category:
      id: spelling
      name: Spelling
      colour: "#d32f2f"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	_, err := regex.New(cfg.RegexRules())
	require.NoError(t, err, "default rules compile")
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	want := Config{
		Debug:             true,
		CheckOnEdit:       true,
		InitialThrottleMS: 500,
		MaxThrottleMS:     4000,
		Concurrency:       4,
		Categories:        []string{"spelling"},
		LuaScript:         filepath.Join(dir, "rules.lua"),
		Rules: []Rule{{
			ID:          "colour",
			Pattern:     `\bcolor\b`,
			Annotation:  "Use British spelling.",
			Suggestions: []string{"colour"},
			AutoFix:     true,
			Category:    Category{ID: "spelling", Name: "Spelling", Colour: "#d32f2f"},
		}},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "redline.toml", tomlConfig},
		{"yaml", "redline.yaml", yamlConfig},
		{"yml", "redline.yml", yamlConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, dir, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, want, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "redline.toml", "concurrency = 8\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Concurrency = 8
	assert.Equal(t, want, cfg)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("redline.json")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()

	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.toml", "debug = true\nconcurrency = = 3\n")
		_, err := Load(path)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, path, pe.Path)
		assert.Equal(t, 2, pe.Line)
		assert.Contains(t, pe.Error(), "line 2")
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "debug: [unclosed\n")
		_, err := Load(path)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, path, pe.Path)
		assert.NotNil(t, pe.Unwrap())
	})
}

func TestLoadInvalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "redline.toml", "concurrency = 0\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestLoadAbsoluteLuaScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "abs.lua")
	path := writeFile(t, t.TempDir(), "redline.yaml", "lua_script: "+script+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, script, cfg.LuaScript)
}

func TestValidate(t *testing.T) {
	rule := Rule{ID: "r", Pattern: "x", Category: Category{ID: "c"}}

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"initial throttle", func(c *Config) { c.InitialThrottleMS = 0 }, "initial_throttle_ms"},
		{"max below initial", func(c *Config) { c.MaxThrottleMS = 100; c.InitialThrottleMS = 200 }, "max_throttle_ms"},
		{"negative timeout", func(c *Config) { c.BlockTimeoutMS = -1 }, "block_timeout_ms"},
		{"concurrency", func(c *Config) { c.Concurrency = -2 }, "concurrency"},
		{"rule id", func(c *Config) { c.Rules = []Rule{{Pattern: "x", Category: Category{ID: "c"}}} }, "missing id"},
		{"duplicate rule", func(c *Config) { c.Rules = []Rule{rule, rule} }, "duplicate id"},
		{"rule pattern", func(c *Config) { c.Rules = []Rule{{ID: "r", Category: Category{ID: "c"}}} }, "missing pattern"},
		{"rule category", func(c *Config) { c.Rules = []Rule{{ID: "r", Pattern: "x"}} }, "missing category"},
		{"rule colour", func(c *Config) { c.Rules[0].Category.Colour = "crimson" }, "category colour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Debug = true
	cfg.InitialThrottleMS = 250
	cfg.MaxThrottleMS = 1000
	cfg.BlockTimeoutMS = 50
	cfg.Rules = []Rule{{ID: "r", Pattern: "x", Category: Category{ID: "c"}, Suggestions: []string{"y"}}}

	assert.Equal(t, state.Config{Debug: true, RequestMatchesOnDocModified: true}, cfg.StateConfig())
	assert.Equal(t, 250*time.Millisecond, cfg.InitialThrottle())
	assert.Equal(t, time.Second, cfg.MaxThrottle())
	assert.Equal(t, 50*time.Millisecond, cfg.BlockTimeout())
	assert.Equal(t, []regex.Rule{{
		ID:          "r",
		Pattern:     "x",
		Category:    state.Category{ID: "c", Name: "c"},
		Suggestions: []string{"y"},
	}}, cfg.RegexRules())
}

func TestRegexRulesNormalised(t *testing.T) {
	cfg := Default()
	cfg.Rules = []Rule{{
		ID:          "cafe",
		Pattern:     "cafe\u0301",
		Category:    Category{ID: "spelling"},
		Suggestions: []string{"Cafe\u0301"},
	}}

	rules := cfg.RegexRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "caf\u00e9", rules[0].Pattern)
	assert.Equal(t, []string{"Caf\u00e9"}, rules[0].Suggestions)
}
