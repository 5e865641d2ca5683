// Package web holds the embedded dashboard assets.
package web

import "embed"

//go:embed templates/*.html
var TemplateFiles embed.FS
