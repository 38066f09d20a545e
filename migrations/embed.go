package migrations

import (
	"embed"
	"io/fs"
)

//go:embed versions/*.sql
var versions embed.FS

// Dir is the source directory of the embedded revisions, relative to the repository root
const Dir = "migrations/versions"

// Versions returns the embedded revision scripts
func Versions() fs.FS {
	sub, err := fs.Sub(versions, "versions")
	if err != nil {
		panic(err)
	}
	return sub
}
