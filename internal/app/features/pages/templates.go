// internal/app/features/pages/templates.go
package pages

import (
	"embed"

	"github.com/dalemusser/stratatour/internal/app/resources"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func init() { resources.RegisterTemplates("pages", templateFS) }
