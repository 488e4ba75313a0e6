// Package migrations embeds the PostgreSQL schema for the audit log.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds the *.up.sql and *.down.sql files in lexical apply order.
//
//go:embed *.sql
var FS embed.FS

// Source returns dir as a file system, or the embedded set when dir is empty.
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}
