// internal/app/resources/resources.go
package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

// templatePattern is where every template set keeps its .gohtml files.
const templatePattern = "templates/*.gohtml"

// assetsMaxAge is the Cache-Control lifetime for the stylesheet and script.
// They change only with a deploy, so a day keeps CDN revalidation cheap.
const assetsMaxAge = "public, max-age=86400"

//go:embed templates/*.gohtml
var layoutFS embed.FS

//go:embed assets/css/*.css assets/js/*.js
var assetsFS embed.FS

var layoutOnce sync.Once

// LoadSharedTemplates registers the storefront layout partials (head, nav,
// footer, tour card, pagination). It must run before the engine boots;
// repeated calls are no-ops.
func LoadSharedTemplates() {
	layoutOnce.Do(func() {
		RegisterTemplates("shared", layoutFS)
	})
}

// RegisterTemplates adds a named set of page templates embedded by a
// feature package. Features call it from init so their pages are available
// as soon as the package is linked in.
func RegisterTemplates(name string, fsys embed.FS) {
	templates.Register(templates.Set{
		Name:     name,
		FS:       fsys,
		Patterns: []string{templatePattern},
	})
}

// AssetsHandler serves site.css and engagement.js from the binary under
// prefix.
func AssetsHandler(prefix string) http.Handler {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("resources: embedded assets missing: " + err.Error())
	}
	files := http.StripPrefix(prefix, http.FileServer(http.FS(sub)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", assetsMaxAge)
		files.ServeHTTP(w, r)
	})
}
