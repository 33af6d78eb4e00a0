// internal/app/features/categories/templates.go
package categories

import (
	"embed"

	"github.com/dalemusser/stratatour/internal/app/resources"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func init() { resources.RegisterTemplates("categories", templateFS) }
