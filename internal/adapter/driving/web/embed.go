package web

import "embed"

// StaticFS holds the embedded static assets.
//
//go:embed static/*
var StaticFS embed.FS

// templatesFS holds the embedded HTML templates.
//
//go:embed templates/*.html
var templatesFS embed.FS
