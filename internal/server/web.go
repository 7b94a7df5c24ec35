package server

import (
	"embed"
	"io/fs"
)

//go:embed web
var webFS embed.FS

var assets = mustSub(webFS, "web")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
