// Package web embeds the HTML templates served by the dashboard.
package web

import "embed"

//go:embed templates
var Assets embed.FS
