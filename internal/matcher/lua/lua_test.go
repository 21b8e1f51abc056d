package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

const hedgingScript = `
function categories()
  return {
    { id = "hedging", name = "Hedging", colour = "#fb8c00" },
    { id = "filler" },
  }
end

function check(text, category_ids)
  local wanted = {}
  for _, id in ipairs(category_ids) do wanted[id] = true end

  local out = {}
  if wanted["hedging"] then
    local init = 1
    while true do
      local s, e = string.find(text, "maybe", init, true)
      if not s then break end
      table.insert(out, {
        from = s, to = e, category = "hedging",
        annotation = "Consider a firmer claim.",
        suggestions = { "probably" },
        auto_fix = true,
      })
      init = e + 1
    end
  end
  if wanted["filler"] then
    local s, e = string.find(text, "basically", 1, true)
    if s then
      table.insert(out, { from = s, to = e, category = "filler" })
    end
  end
  return out
end
`

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func blockOf(text string) block.Block {
	return block.Block{ID: "b", Text: text, To: buffer.Offset(len(text))}
}

func newChecker(t *testing.T, script string) *Checker {
	t.Helper()
	c, err := New(script, WithIDFunc(counter()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCategories(t *testing.T) {
	c := newChecker(t, hedgingScript)

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []state.Category{
		{ID: "hedging", Name: "Hedging", Colour: "#fb8c00"},
		{ID: "filler", Name: "filler"},
	}, cats)
}

func TestCheck(t *testing.T) {
	c := newChecker(t, hedgingScript)

	text := "It is maybe fine, basically maybe."
	matches, err := c.Check(context.Background(), blockOf(text), []string{"hedging", "filler"})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, state.Match{
		ID:          "m1",
		Range:       buffer.Range{From: 6, To: 11},
		SourceText:  "maybe",
		Annotation:  "Consider a firmer claim.",
		Category:    state.Category{ID: "hedging", Name: "Hedging", Colour: "#fb8c00"},
		Suggestions: []state.Suggestion{{Type: state.TextSuggestion, Text: "probably"}},
		CanAutoFix:  true,
	}, matches[0])

	var texts []string
	for _, m := range matches {
		texts = append(texts, text[m.Range.From:m.Range.To])
	}
	assert.Equal(t, []string{"maybe", "maybe", "basically"}, texts)
	assert.False(t, matches[2].CanAutoFix)
}

func TestCheckFiltersCategories(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" }, { id = "b" } } end
function check(text, ids)
  return { { from = 1, to = 1, category = "a" }, { from = 2, to = 2, category = "b" } }
end
`)

	matches, err := c.Check(context.Background(), blockOf("xy"), []string{"b"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "y", matches[0].SourceText)
}

func TestCheckDefaultsCategory(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids) return { { from = 1, to = #text } } end
`)

	matches, err := c.Check(context.Background(), blockOf("word"), []string{"a"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Category.ID)
	assert.Equal(t, buffer.Range{From: 0, To: 4}, matches[0].Range)
}

func TestCheckNilResult(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids) return nil end
`)

	matches, err := c.Check(context.Background(), blockOf("word"), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCheckInvalidResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a table", `return 42`},
		{"entry not a table", `return { "x" }`},
		{"missing range", `return { { category = "a" } }`},
		{"range past end", `return { { from = 1, to = 10, category = "a" } }`},
		{"inverted range", `return { { from = 3, to = 1, category = "a" } }`},
		{"undeclared category", `return { { from = 1, to = 1, category = "z" } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids) `+tt.body+` end
`)
			ids := []string{"a"}
			if tt.name == "undeclared category" {
				ids = []string{"a", "z"}
			}
			_, err := c.Check(context.Background(), blockOf("word"), ids)
			require.ErrorIs(t, err, ErrResult)
		})
	}
}

func TestCheckScriptError(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids) error("checker exploded") end
`)
	require.Equal(t, 0, c.L.GetTop(), "stack is empty after loading")

	_, err := c.Check(context.Background(), blockOf("word"), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checker exploded")

	// The state is still usable afterwards.
	_, err = c.Check(context.Background(), blockOf("word"), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 0, c.L.GetTop())
}

func TestCheckCancelled(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids) while true do end end
`)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Check(ctx, blockOf("word"), []string{"a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewInvalidScripts(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"syntax error", `function check(`},
		{"missing check", `function categories() return {} end`},
		{"missing categories", `function check() end`},
		{"categories not a table", `function categories() return 1 end
function check() end`},
		{"category without id", `function categories() return { { name = "x" } } end
function check() end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.script)
			require.Error(t, err)
		})
	}
}

func TestSandbox(t *testing.T) {
	c := newChecker(t, `
function categories() return { { id = "a" } } end
function check(text, ids)
  if io ~= nil or os ~= nil or dofile ~= nil or load ~= nil or require ~= nil then
    error("unsafe globals available")
  end
  return {}
end
`)

	_, err := c.Check(context.Background(), blockOf("word"), []string{"a"})
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.lua")
	require.NoError(t, os.WriteFile(path, []byte(hedgingScript), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	defer c.Close()

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.lua"))
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	c, err := New(hedgingScript)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Check(context.Background(), blockOf("maybe"), []string{"hedging"})
	require.ErrorIs(t, err, ErrClosed)
}
