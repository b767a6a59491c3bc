package migrations

import "embed"

// FS exposes the migration sources so goose resolves versions from file names
// without touching the working directory.
//
//go:embed *.go
var FS embed.FS
