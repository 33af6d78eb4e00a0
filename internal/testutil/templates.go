package testutil

import (
	"sync"

	"github.com/dalemusser/stratatour/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	engineOnce sync.Once
	engineErr  error
)

// MustBootTemplates installs a template engine holding the shared layout and
// every feature set linked into the test binary. Feature packages register
// their sets from init, so importing the feature under test is enough. The
// engine is booted once per binary; later calls only report the first result.
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	engineOnce.Do(func() {
		resources.LoadSharedTemplates()

		logger := zap.NewNop()
		eng := templates.New(false)
		if engineErr = eng.Boot(logger); engineErr == nil {
			templates.UseEngine(eng, logger)
		}
	})
	if engineErr != nil {
		t.Fatalf("boot templates: %v", engineErr)
	}
}
