// Package lua provides a checker scripted in Lua.
//
// A script defines two global functions:
//
//	function categories()
//	  return { { id = "hedging", name = "Hedging", colour = "#fb8c00" } }
//	end
//
//	function check(text, category_ids)
//	  local out = {}
//	  local s, e = string.find(text, "maybe", 1, true)
//	  if s then
//	    table.insert(out, { from = s, to = e, category = "hedging",
//	      annotation = "Consider a firmer claim.", suggestions = { "probably" } })
//	  end
//	  return out
//	end
//
// from and to are 1-based inclusive byte positions, as returned by
// string.find. Results for categories that were not requested are dropped.
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/redline/internal/engine/block"
	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/state"
)

// Errors returned by the Lua checker.
var (
	// ErrScript indicates the script is missing a required function.
	ErrScript = errors.New("invalid script")

	// ErrResult indicates check returned a malformed result.
	ErrResult = errors.New("invalid check result")

	// ErrClosed indicates the checker has been closed.
	ErrClosed = errors.New("lua checker closed")
)

// Checker runs a Lua script against blocks.
//
// gopher-lua states are not goroutine-safe, so checks are serialized.
type Checker struct {
	mu         sync.Mutex
	L          *lua.LState
	categories []state.Category
	newID      func() string
	closed     bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithIDFunc sets the match ID generator.
func WithIDFunc(f func() string) Option {
	return func(c *Checker) {
		if f != nil {
			c.newID = f
		}
	}
}

// Load creates a Checker from a script file.
func Load(path string, opts ...Option) (*Checker, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load lua script: %w", err)
	}
	return New(string(src), opts...)
}

// New creates a Checker from script source.
func New(script string, opts ...Option) (*Checker, error) {
	c := &Checker{newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	c.L = L

	if err := recovered(func() error { return L.DoString(script) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("run lua script: %w", err)
	}
	if fn := L.GetGlobal("check"); fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%w: check is not a function (got %s)", ErrScript, fn.Type())
	}

	cats, err := c.loadCategories()
	if err != nil {
		L.Close()
		return nil, err
	}
	c.categories = cats
	return c, nil
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the functions that load code from outside the script.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// Each Open call leaves its module table on the stack.
	L.SetTop(0)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Categories returns the categories the script declared.
func (c *Checker) Categories(context.Context) ([]state.Category, error) {
	return slices.Clone(c.categories), nil
}

// Check calls the script's check function with the block text.
func (c *Checker) Check(ctx context.Context, b block.Block, categoryIDs []string) ([]state.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	ids := c.L.NewTable()
	for _, id := range categoryIDs {
		ids.Append(lua.LString(id))
	}

	c.L.SetContext(ctx)
	results, err := c.call("check", lua.LString(b.Text), ids)
	c.L.RemoveContext()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil, nil
	}

	list, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: expected table, got %s", ErrResult, results[0].Type())
	}
	return c.toMatches(list, b.Text, categoryIDs)
}

// Close releases the Lua state.
func (c *Checker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.L.Close()
	return nil
}

func (c *Checker) loadCategories() ([]state.Category, error) {
	if fn := c.L.GetGlobal("categories"); fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: categories is not a function (got %s)", ErrScript, fn.Type())
	}
	results, err := c.call("categories")
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: categories returned nothing", ErrScript)
	}
	list, ok := results[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: categories returned %s", ErrScript, results[0].Type())
	}

	var out []state.Category
	for i := 1; i <= list.Len(); i++ {
		t, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: category %d is not a table", ErrScript, i)
		}
		cat := state.Category{
			ID:     stringField(t, "id"),
			Name:   stringField(t, "name"),
			Colour: stringField(t, "colour"),
		}
		if cat.ID == "" {
			return nil, fmt.Errorf("%w: category %d has no id", ErrScript, i)
		}
		if cat.Name == "" {
			cat.Name = cat.ID
		}
		out = append(out, cat)
	}
	return out, nil
}

func (c *Checker) toMatches(list *lua.LTable, text string, categoryIDs []string) ([]state.Match, error) {
	size := len(text)
	var out []state.Match
	for i := 1; i <= list.Len(); i++ {
		t, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: result %d is not a table", ErrResult, i)
		}

		catID := stringField(t, "category")
		if catID == "" && len(categoryIDs) == 1 {
			catID = categoryIDs[0]
		}
		if !slices.Contains(categoryIDs, catID) {
			continue
		}
		catIdx := slices.IndexFunc(c.categories, func(cat state.Category) bool { return cat.ID == catID })
		if catIdx < 0 {
			return nil, fmt.Errorf("%w: result %d has undeclared category %q", ErrResult, i, catID)
		}

		from, okFrom := t.RawGetString("from").(lua.LNumber)
		to, okTo := t.RawGetString("to").(lua.LNumber)
		if !okFrom || !okTo {
			return nil, fmt.Errorf("%w: result %d needs numeric from and to", ErrResult, i)
		}
		start, end := int(from)-1, int(to)
		if start < 0 || end > size || start >= end {
			return nil, fmt.Errorf("%w: result %d range [%d, %d] outside text of %d bytes", ErrResult, i, int(from), int(to), size)
		}

		var suggestions []state.Suggestion
		if st, ok := t.RawGetString("suggestions").(*lua.LTable); ok {
			for j := 1; j <= st.Len(); j++ {
				if s, ok := st.RawGetInt(j).(lua.LString); ok {
					suggestions = append(suggestions, state.Suggestion{Type: state.TextSuggestion, Text: string(s)})
				}
			}
		}

		out = append(out, state.Match{
			ID:          c.newID(),
			Range:       buffer.Range{From: buffer.Offset(start), To: buffer.Offset(end)},
			SourceText:  text[start:end],
			Annotation:  stringField(t, "annotation"),
			Category:    c.categories[catIdx],
			Suggestions: suggestions,
			CanAutoFix:  lua.LVAsBool(t.RawGetString("auto_fix")) && len(suggestions) > 0,
		})
	}
	return out, nil
}

// call calls a global function and returns its results.
// Callers must hold c.mu or own c exclusively.
func (c *Checker) call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	L := c.L
	top := L.GetTop()
	L.Push(L.GetGlobal(fn))
	for _, arg := range args {
		L.Push(arg)
	}

	if err := recovered(func() error { return L.PCall(len(args), lua.MultRet, nil) }); err != nil {
		L.SetTop(top)
		return nil, fmt.Errorf("lua %s: %w", fn, err)
	}

	n := L.GetTop() - top
	results := make([]lua.LValue, n)
	for i := range n {
		results[i] = L.Get(top + i + 1)
	}
	L.Pop(n)
	return results, nil
}

func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
