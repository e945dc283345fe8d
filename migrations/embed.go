// Package migrations embeds SQL migration files into the binary, so the
// schema ships inside the executable and no SQL files are needed on the
// appliance filesystem.
package migrations

import (
	"embed"

	"github.com/leafcore/terrarium-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
