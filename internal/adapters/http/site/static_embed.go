package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// FS returns the front end files with the static/ prefix stripped, so
// static/index.html is served at /.
func FS() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic("site: embedded static directory missing: " + err.Error())
	}
	return http.FS(sub)
}
