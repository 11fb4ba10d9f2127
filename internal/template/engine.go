package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/promptstash/promptstash/internal/common"
)

// Engine handles prompt template detection, variable extraction and
// rendering. Syntax is {{ name }} for interpolation and {% ... %} for
// control blocks.
//
// Detection and extraction are lenient and never fail: they run on every
// write, and a prompt with broken template syntax must still be storable.
// Render is the strict side of the contract and is the only place a
// template error can surface.
type Engine struct{}

// NewEngine creates a template Engine.
func NewEngine() *Engine {
	return &Engine{}
}

var (
	markerRe = regexp.MustCompile(`\{\{.*?\}\}|\{%.*?%\}`)

	// {{ variable }} or {{ variable | filter }}
	varRe = regexp.MustCompile(`\{\{\s*(\w+)(?:\s*\|[^}]*?)?\s*\}\}`)

	// {% for item in items %}
	forRe = regexp.MustCompile(`\{%\s*for\s+\w+\s+in\s+(\w+)\s*%\}`)

	// {% if variable %} / {% if variable ... %}
	ifRe = regexp.MustCompile(`\{%\s*if\s+(\w+)`)

	blockTagRe = regexp.MustCompile(`\{%\s*(\w+)`)
)

// builtins are identifiers that look like variables but never are.
var builtins = map[string]struct{}{
	"loop":  {},
	"true":  {},
	"false": {},
	"none":  {},
	"True":  {},
	"False": {},
	"None":  {},
}

// Detect reports whether content contains template syntax.
func (e *Engine) Detect(content string) bool {
	return markerRe.MatchString(content)
}

// ExtractVariables returns the distinct variable names referenced by
// content, sorted. Best-effort scanning: malformed syntax narrows the
// result instead of producing an error.
func (e *Engine) ExtractVariables(content string) []string {
	seen := map[string]struct{}{}

	for _, m := range varRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = struct{}{}
	}
	for _, m := range forRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = struct{}{}
	}
	for _, m := range ifRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = struct{}{}
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		if _, ok := builtins[v]; ok {
			continue
		}
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// Render substitutes bound variables into content. Variables absent from
// bindings are left as literal markers so partial rendering round-trips.
// Returns ErrTemplateRender when control blocks are unbalanced.
func (e *Engine) Render(content string, bindings map[string]interface{}) (string, error) {
	if err := e.checkBlocks(content); err != nil {
		return "", err
	}

	out := varRe.ReplaceAllStringFunc(content, func(marker string) string {
		name := varRe.FindStringSubmatch(marker)[1]
		value, ok := bindings[name]
		if !ok {
			return marker
		}
		return formatValue(value)
	})
	return out, nil
}

// checkBlocks verifies {% %} control blocks pair up. Only structural
// balance is checked; unknown tags inside a balanced block are tolerated.
func (e *Engine) checkBlocks(content string) error {
	var stack []string
	for _, m := range blockTagRe.FindAllStringSubmatch(content, -1) {
		tag := m[1]
		switch tag {
		case "for", "if":
			stack = append(stack, tag)
		case "endfor", "endif":
			want := strings.TrimPrefix(tag, "end")
			if len(stack) == 0 || stack[len(stack)-1] != want {
				return fmt.Errorf("%w: unexpected {%% %s %%}", common.ErrTemplateRender, tag)
			}
			stack = stack[:len(stack)-1]
		case "else", "elif":
			if len(stack) == 0 {
				return fmt.Errorf("%w: {%% %s %%} outside a block", common.ErrTemplateRender, tag)
			}
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed {%% %s %%} block", common.ErrTemplateRender, stack[len(stack)-1])
	}
	return nil
}

func formatValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
