package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Templates parses the page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(assets, "templates/*.html")
}

// Static exposes the static asset directory.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
