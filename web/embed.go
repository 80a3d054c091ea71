package web

import "embed"

// TemplatesFS holds the page and the HTMX fragment templates.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small form script.
//go:embed static/*
var StaticFS embed.FS
