package golden

import (
	"embed"
)

// FS provides the packed mt19937ar reference vectors (zstd JSON).
// Regenerate with: go run ./scripts golden
//
//go:embed *.json.zst
var FS embed.FS
