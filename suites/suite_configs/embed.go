package suite_configs

import (
	"embed"
)

// FS provides embedded default suite YAMLs for external usage.
//
//go:embed *.yaml
var FS embed.FS
