package template

import (
	"testing"

	"github.com/promptstash/promptstash/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	e := NewEngine()

	assert.True(t, e.Detect("Hello {{name}}"))
	assert.True(t, e.Detect("Hello {{ name }}"))
	assert.True(t, e.Detect("{% if verbose %}details{% endif %}"))
	assert.True(t, e.Detect("{% for x in items %}{{x}}{% endfor %}"))

	assert.False(t, e.Detect("plain text"))
	assert.False(t, e.Detect(""))
	assert.False(t, e.Detect("a { single } brace and {unclosed"))
	// Opening marker with no close on the same reluctant match.
	assert.False(t, e.Detect("broken {{ marker"))
}

func TestExtractVariables(t *testing.T) {
	e := NewEngine()

	t.Run("dedup and sort", func(t *testing.T) {
		vars := e.ExtractVariables("{{b}} {{a}} {{b}} {{ c }}")
		assert.Equal(t, []string{"a", "b", "c"}, vars)
	})

	t.Run("filters are stripped", func(t *testing.T) {
		vars := e.ExtractVariables("{{ name | upper }} and {{ n | default(3) }}")
		assert.Equal(t, []string{"n", "name"}, vars)
	})

	t.Run("control blocks contribute variables", func(t *testing.T) {
		content := "{% for item in items %}{{ item }}{% endfor %}{% if verbose %}x{% endif %}"
		vars := e.ExtractVariables(content)
		assert.Equal(t, []string{"item", "items", "verbose"}, vars)
	})

	t.Run("builtins are excluded", func(t *testing.T) {
		content := "{{ loop }} {{ true }} {{ None }} {{ real }}"
		assert.Equal(t, []string{"real"}, e.ExtractVariables(content))
	})

	t.Run("non-template content", func(t *testing.T) {
		assert.Empty(t, e.ExtractVariables("no markers here"))
	})

	t.Run("malformed syntax narrows instead of failing", func(t *testing.T) {
		assert.Empty(t, e.ExtractVariables("{{ broken"))
	})
}

func TestRender(t *testing.T) {
	e := NewEngine()

	t.Run("substitutes bound variables", func(t *testing.T) {
		out, err := e.Render("Hello {{name}}, welcome to {{place}}!", map[string]interface{}{
			"name":  "Ada",
			"place": "promptstash",
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ada, welcome to promptstash!", out)
	})

	t.Run("whitespace inside markers", func(t *testing.T) {
		out, err := e.Render("{{  name  }}", map[string]interface{}{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, "x", out)
	})

	t.Run("unbound variables stay literal", func(t *testing.T) {
		out, err := e.Render("Hello {{name}}, see {{other}}", map[string]interface{}{"name": "Ada"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ada, see {{other}}", out)
	})

	t.Run("non-string values are formatted", func(t *testing.T) {
		out, err := e.Render("{{n}} items, nil={{z}}", map[string]interface{}{
			"n": 42,
			"z": nil,
		})
		require.NoError(t, err)
		assert.Equal(t, "42 items, nil=", out)
	})

	t.Run("control tags pass through untouched", func(t *testing.T) {
		content := "{% for x in items %}{{ x }}{% endfor %}"
		out, err := e.Render(content, map[string]interface{}{"items": "ignored"})
		require.NoError(t, err)
		assert.Equal(t, content, out)
	})

	t.Run("empty bindings", func(t *testing.T) {
		out, err := e.Render("Hello {{name}}", nil)
		require.NoError(t, err)
		assert.Equal(t, "Hello {{name}}", out)
	})

	t.Run("balanced nested blocks", func(t *testing.T) {
		content := "{% for x in xs %}{% if x %}{{ x }}{% endif %}{% endfor %}"
		_, err := e.Render(content, nil)
		assert.NoError(t, err)
	})
}

func TestRenderUnbalancedBlocks(t *testing.T) {
	e := NewEngine()

	cases := []struct {
		name    string
		content string
	}{
		{"unclosed for", "{% for x in xs %}{{ x }}"},
		{"unclosed if", "{% if cond %}body"},
		{"stray endfor", "text {% endfor %}"},
		{"stray endif", "{% endif %}"},
		{"mismatched pair", "{% for x in xs %}{% endif %}"},
		{"else outside block", "{% else %}"},
		{"elif outside block", "{% elif other %}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Render(tc.content, nil)
			assert.ErrorIs(t, err, common.ErrTemplateRender)
		})
	}

	t.Run("else inside if is fine", func(t *testing.T) {
		_, err := e.Render("{% if a %}x{% else %}y{% endif %}", nil)
		assert.NoError(t, err)
	})
}
