// Package web embeds the HTML templates and static assets served by the
// guest registry.
package web

import "embed"

// Templates holds the layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds stylesheets and other static assets.
//
//go:embed static/**/*
var Static embed.FS
