package static

import "embed"

// FS exposes the page shell and client assets.
//
//go:embed *.html *.css *.js *.webmanifest
var FS embed.FS
