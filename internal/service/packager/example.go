package packager

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/oshokin/qbsgo-release/internal/logger"
)

// checkExampleConfig parses the example configuration once per run and warns
// when it cannot be read as TOML. It never blocks the release: the copy that follows
// reports a missing file.
func (p *packager) checkExampleConfig(ctx context.Context, path string) {
	if p.exampleChecked {
		return
	}

	p.exampleChecked = true

	var document map[string]any

	if _, err := toml.DecodeFile(path, &document); err != nil {
		logger.WarnKV(ctx, "Example configuration could not be parsed", "path", path, "error", err)

		return
	}

	logger.DebugKV(ctx, "Example configuration parsed", "path", path, "tables", len(document))
}
