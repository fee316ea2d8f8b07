package postgres

import (
	"embed"
	"encoding/json"

	pgpkg "github.com/bibbank/bureau-service/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations is the schema of the bureau service, compiled into the binary.
var Migrations = pgpkg.Migrations{FS: migrationFS, Dir: "migrations"}

type scannable interface {
	Scan(dest ...any) error
}

// nullJSON maps an empty payload to SQL NULL.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return json.RawMessage(raw)
}

func nullText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
