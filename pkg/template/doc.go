/*
Package template implements a tag based text template engine with a
hierarchical context, filter pipelines, plugins and template inclusion.

# Syntax

Tags open with "<%" and close with ">". Everything outside tags is copied to
the output unchanged (unless a WhitespaceRemover is configured).

	<% user.name>                        reference, note the leading space
	<% user.name|default value=Anonymous> filtered reference
	<% title|lower|truncate length=20>    pipeline, applied left to right
	<%foreach items item> ... <%/foreach>
	<%foreach items item> ... <%foreachelse> nothing here <%/foreach>
	<%first> ... <%/first>                 also last, odd and even
	<%if user.admin and !user.locked> ... <%elseif user==null> ... <%else> ... <%/if>
	<%paginate items=products size=10 page>
	<%include header title=page.title subtitle==Welcome>

A tag without leading whitespace is a keyword or a plugin call. Inside tags,
'single quotes' keep everything to the next single quote, "double quotes"
keep everything to the next double quote with backslash escapes, and a bare
backslash escapes the next character.

Parameters are key=value literals. A bare identifier is a reference: it is
looked up in the context at render time and passed under its own name. For
include, a value is a reference unless it starts with "=".

# Contexts

A Context resolves names through its merged contexts first, then itself,
then its parents. Dotted paths walk members with Accessors chosen by the
runtime type of each intermediate value. A nil anywhere on the path renders
as nothing; a non-nil value without an accessor is a resolution error.

Loops bind the item and a LoopStatus (size, count, first, last, odd, even)
in a temporary child context. Writes made by the loop body, such as the store
filter, reach the enclosing context; the item and status do not.

# Example

	f := template.NewFactory(template.WithFileProvider([]string{"templates"}, ".tpl"))
	t, err := f.ParseString("greeting", "Hello <% user.name|default value=stranger>!")
	if err != nil {
		return err
	}
	ctx := f.NewContext()
	ctx.Set("user", map[string]any{"name": "Dan"})
	return t.Render(ctx, os.Stdout)
*/
package template
