// internal/app/features/home/templates.go
package home

import (
	"embed"

	"github.com/dalemusser/stratatour/internal/app/resources"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func init() { resources.RegisterTemplates("home", templateFS) }
