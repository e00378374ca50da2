// Package appfs embeds the files the binaries need at runtime: SQL migrations,
// email templates, the common passwords list and the demo seed.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz seed.yaml
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	CommonPasswordsGz = "common-passwords.txt.gz"
	SeedFile          = "seed.yaml"
)
