// Package htmlescape escapes free text before it is stored or spliced into
// generated markup.
//
// The entity table is wider than html.EscapeString: it also covers the
// slash, backtick and equals sign so escaped text stays inert inside
// unquoted attribute values.
package htmlescape

import "strings"

var replacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// Escape replaces every special character with its entity and leaves all
// other characters untouched.
func Escape(unsafe string) string {
	return replacer.Replace(unsafe)
}

// NeedsEscape reports whether s contains any character Escape would rewrite.
func NeedsEscape(s string) bool {
	return strings.ContainsAny(s, "&<>\"'/`=")
}
