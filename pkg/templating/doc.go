// Package templating is a small, dependency-light templating language:
// source text mixing literal content with delimited expressions is
// tokenized, parsed into a tree, and compiled into a reusable render
// function that projects a data context into output text.
//
// # Quick Start
//
//	render, err := templating.CompileString("greeting.html",
//		"Hello, {{ name }}!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := render(map[string]interface{}{"name": "World"})
//	// out == "Hello, World!"
//
// Compile once, render many times: the render function is pure and safe to
// invoke concurrently.
//
// # Template Syntax
//
// All expressions use double curly braces:
//
//	{{ path }}                  - escaped lookup (HTML entities encoded)
//	{{{ path }}}                - unescaped lookup
//	{{ helper arg key=val }}    - inline helper invocation
//	{{#helper seq as |x i|}}    - block helper with block parameters
//	  ...{{else}}...
//	{{/helper}}
//	{{> name}}                  - partial reference
//	{{!-- text --}}             - comment, may span lines
//
// Paths are dot-separated identifiers with bracketed keys for arbitrary or
// numeric access: {{ user.name }}, {{ items[0] }}, {{ row[first name] }}.
// A path that cannot be fully resolved renders as the empty string; absent
// optional data never aborts a render.
//
// Helpers are resolved when a template is compiled; partials are resolved
// on each render, so they may be registered after the templates that
// reference them. The default helpers are each, if, ifEqual, ifEmpty, and
// noop.
//
// Errors carry precise source positions and render the offending line with
// a caret pointing at the offending column.
package templating
