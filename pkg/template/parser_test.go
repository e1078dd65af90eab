package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteralText(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"multi\nline\n\ttext > with < signs % and | pipes",
		"unicode ✓ ünïcödé",
		"almost a tag <  % but not",
	}

	for _, input := range inputs {
		tmpl, err := ParseString(input)
		require.NoError(t, err)

		out, err := tmpl.Execute(NewContext())
		require.NoError(t, err)
		assert.Equal(t, input, out)
	}
}

func TestParseTree(t *testing.T) {
	tmpl, err := ParseString("a<% x>b<%foreach items it><% it|upper><%/foreach><%if ok>y<%else>n<%/if><%set name=k value=v>")
	require.NoError(t, err)

	children := tmpl.Root.Children
	require.Len(t, children, 6)
	assert.IsType(t, &TextPart{}, children[0])
	assert.IsType(t, &DataPart{}, children[1])
	assert.IsType(t, &TextPart{}, children[2])

	loop, ok := children[3].(*LoopPart)
	require.True(t, ok)
	assert.Equal(t, "items", loop.Collection)
	assert.Equal(t, "it", loop.Item)
	assert.Equal(t, DefaultLoopName, loop.Name)

	body := loop.Body.(*ContainerPart)
	require.Len(t, body.Children, 1)
	filtered, ok := body.Children[0].(*FilteredPart)
	require.True(t, ok)
	assert.Equal(t, "it", filtered.Path)
	require.Len(t, filtered.Stages, 1)
	assert.Equal(t, "upper", filtered.Stages[0].Name)

	cond, ok := children[4].(*ConditionalPart)
	require.True(t, ok)
	assert.Equal(t, TruthyCondition{Path: "ok"}, cond.Cond)
	assert.NotNil(t, cond.Else)

	plugin, ok := children[5].(*PluginPart)
	require.True(t, ok)
	assert.Equal(t, "set", plugin.Name)
	assert.Equal(t, []Param{{Key: "name", Value: "k"}, {Key: "value", Value: "v"}}, plugin.Params)
}

func TestParsePositions(t *testing.T) {
	tmpl, err := ParseString("line one\n  <% name>\n<%if x>\n<%/if>")
	require.NoError(t, err)

	children := tmpl.Root.Children
	assert.Equal(t, Position{Line: 1, Column: 1}, children[0].Position())
	assert.Equal(t, Position{Line: 2, Column: 3}, children[1].Position())
	assert.Equal(t, Position{Line: 3, Column: 1}, children[3].Position())
}

func TestParseElseIfChain(t *testing.T) {
	tmpl, err := ParseString("<%if a>A<%elseif b>B<%elseif c>C<%else>D<%/if>")
	require.NoError(t, err)
	require.Len(t, tmpl.Root.Children, 1)

	first := tmpl.Root.Children[0].(*ConditionalPart)
	second, ok := first.Else.(*ConditionalPart)
	require.True(t, ok)
	third, ok := second.Else.(*ConditionalPart)
	require.True(t, ok)
	_, ok = third.Else.(*ContainerPart)
	assert.True(t, ok)
}

func TestParseForeachElse(t *testing.T) {
	tmpl, err := ParseString("<%foreach items x>i<%foreachelse>none<%/foreach>")
	require.NoError(t, err)
	require.Len(t, tmpl.Root.Children, 2)

	assert.IsType(t, &LoopPart{}, tmpl.Root.Children[0])
	empty, ok := tmpl.Root.Children[1].(*EmptyLoopPart)
	require.True(t, ok)
	assert.Equal(t, "items", empty.Collection)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		params []Param
	}{
		{
			name:   "literal",
			src:    "<% x|f a=1>",
			params: []Param{{Key: "a", Value: "1"}},
		},
		{
			name:   "single quotes keep spaces and delimiters",
			src:    "<% x|f a='b c > | d'>",
			params: []Param{{Key: "a", Value: "b c > | d"}},
		},
		{
			name:   "double quotes with escapes",
			src:    `<% x|f a="say \"hi\"">`,
			params: []Param{{Key: "a", Value: `say "hi"`}},
		},
		{
			name:   "bare backslash",
			src:    `<% x|f a=one\ two>`,
			params: []Param{{Key: "a", Value: "one two"}},
		},
		{
			name:   "reference",
			src:    "<% x|f who>",
			params: []Param{{Key: "who", Value: "who", Ref: true}},
		},
		{
			name:   "empty value",
			src:    "<% x|f a=''>",
			params: []Param{{Key: "a", Value: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseString(tt.src)
			require.NoError(t, err)

			part := tmpl.Root.Children[0].(*FilteredPart)
			assert.Equal(t, tt.params, part.Stages[0].Params)
		})
	}
}

func TestParseIncludeParams(t *testing.T) {
	tmpl, err := ParseString("<%include header title=page.title sub==Hello quoted='x y' user>")
	require.NoError(t, err)

	inc := tmpl.Root.Children[0].(*IncludePart)
	assert.Equal(t, "header", inc.Name)
	assert.Equal(t, []Param{
		{Key: "title", Value: "page.title", Ref: true},
		{Key: "sub", Value: "Hello"},
		{Key: "quoted", Value: "x y"},
		{Key: "user", Value: "user", Ref: true},
	}, inc.Params)
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		src  string
		want Condition
	}{
		{"<%if a>", TruthyCondition{Path: "a"}},
		{"<%if !a>", NotCondition{Cond: TruthyCondition{Path: "a"}}},
		{"<%if a==x>", EqualsCondition{Path: "a", Literal: "x"}},
		{"<%if a=x>", EqualsCondition{Path: "a", Literal: "x"}},
		{"<%if a!=x>", NotCondition{Cond: EqualsCondition{Path: "a", Literal: "x"}}},
		{"<%if a==null>", NullCondition{Path: "a"}},
		{"<%if a!=null>", NotCondition{Cond: NullCondition{Path: "a"}}},
		{"<%if a=='null'>", EqualsCondition{Path: "a", Literal: "null"}},
		{"<%if a=='two words'>", EqualsCondition{Path: "a", Literal: "two words"}},
		{"<%if a and b>", AndCondition{TruthyCondition{Path: "a"}, TruthyCondition{Path: "b"}}},
		{"<%if a or b and c>", OrCondition{
			TruthyCondition{Path: "a"},
			AndCondition{TruthyCondition{Path: "b"}, TruthyCondition{Path: "c"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tmpl, err := ParseString(tt.src + "<%/if>")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmpl.Root.Children[0].(*ConditionalPart).Cond)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		col  int
		msg  string
	}{
		{"close without open", "text <%/if>", 1, 6, "without matching open"},
		{"mismatched close", "<%foreach a>\n<%/if>", 2, 1, "does not close"},
		{"unclosed block", "x\n<%if a>body", 2, 1, "unclosed"},
		{"unclosed inner block", "<%if a><%foreach b>", 1, 8, "unclosed <%foreach>"},
		{"unterminated tag", "abc <% name", 1, 5, "unterminated tag"},
		{"unterminated single quote", "<% a|f v='abc>", 1, 10, "unterminated single quote"},
		{"unterminated double quote", "<% a|f v=\"abc>", 1, 10, "unterminated double quote"},
		{"empty tag", "<%>", 1, 1, "empty tag"},
		{"else outside if", "<%else>", 1, 1, "outside"},
		{"elseif after else", "<%if a><%else><%elseif b><%/if>", 1, 15, "after"},
		{"double else", "<%if a><%else><%else><%/if>", 1, 15, "duplicate"},
		{"foreachelse outside foreach", "<%if a><%foreachelse><%/if>", 1, 8, "outside"},
		{"foreach without collection", "<%foreach>", 1, 1, "collection"},
		{"if without condition", "<%if>", 1, 1, "missing condition"},
		{"dangling operator", "<%if a and><%/if>", 1, 1, "operator"},
		{"missing filter name", "<% a|>", 1, 1, "filter name"},
		{"two references", "<% a b>", 1, 1, "single reference"},
		{"nameless parameter", "<%plugin =x>", 1, 10, "no name"},
		{"close with arguments", "<%if a><%/if a>", 1, 8, "no arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src, Named("test.tpl"))
			require.Error(t, err)
			assert.True(t, IsParseError(err), "expected parse error, got %v", err)

			var te *Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.line, te.Line, "line")
			assert.Equal(t, tt.col, te.Column, "column")
			assert.Equal(t, "test.tpl", te.Template)
			assert.Contains(t, te.Error(), tt.msg)
		})
	}
}

func TestParseWhitespaceRemover(t *testing.T) {
	src := "<ul>\n    <%foreach items x>\n    <li><% x></li>\n    <%/foreach>\n</ul>"

	tests := []struct {
		name    string
		remover WhitespaceRemover
		want    string
	}{
		{"none", NoWhitespaceRemover{}, "<ul>\n    \n    <li>a</li>\n    \n    <li>b</li>\n    \n</ul>"},
		{"trim", TrimLinesRemover{}, "<ul><li>a</li><li>b</li></ul>"},
		{"collapse", CollapseRemover{}, "<ul>  <li>a</li>  <li>b</li>  </ul>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseString(src, WithWhitespaceRemover(tt.remover))
			require.NoError(t, err)

			ctx := NewFactory().NewContext()
			ctx.Set("items", []string{"a", "b"})

			out, err := tmpl.Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestParseWhitespaceNeverTouchesTags(t *testing.T) {
	tmpl, err := ParseString("<% x|default value='  padded  '>", WithWhitespaceRemover(CollapseRemover{}))
	require.NoError(t, err)

	out, err := tmpl.Execute(NewFactory().NewContext())
	require.NoError(t, err)
	assert.Equal(t, "  padded  ", out)
}

func TestWhitespaceRemoverByName(t *testing.T) {
	for name, want := range map[string]WhitespaceRemover{
		"":         NoWhitespaceRemover{},
		"none":     NoWhitespaceRemover{},
		"TRIM":     TrimLinesRemover{},
		"collapse": CollapseRemover{},
	} {
		got, err := WhitespaceRemoverByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := WhitespaceRemoverByName("squash")
	assert.Error(t, err)
}

func TestParseFileClosesAndNames(t *testing.T) {
	_, err := ParseFile("does/not/exist.tpl")
	require.Error(t, err)

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindIO, te.Kind)
	assert.True(t, strings.HasSuffix(te.Template, "exist.tpl"))
}

func TestTemplateString(t *testing.T) {
	tmpl, err := ParseString("<%foreach a x><% x|upper><%/foreach>", Named("dump"))
	require.NoError(t, err)

	s := tmpl.String()
	assert.Contains(t, s, "template dump")
	assert.Contains(t, s, "foreach a as x")
	assert.Contains(t, s, "|upper")
}
