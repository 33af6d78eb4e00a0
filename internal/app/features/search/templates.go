// internal/app/features/search/templates.go
package search

import (
	"embed"

	"github.com/dalemusser/stratatour/internal/app/resources"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func init() { resources.RegisterTemplates("search", templateFS) }
