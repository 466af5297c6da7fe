package frontend

import "embed"

// StaticFiles holds the landing page served at /
//
//go:embed dist
var StaticFiles embed.FS
