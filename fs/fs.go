// Package appfs embeds static assets shipped with the binary.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
