package store

import "strings"

type BackendType string

const (
	BackendPostgres BackendType = "postgres"
	BackendSQLite   BackendType = "sqlite"
	BackendRedis    BackendType = "redis"
	BackendMemory   BackendType = "memory"
)

// Well-known keys.
const (
	KeyRosters       = "cursos"
	KeyCourseMeta    = "cursos_metadata"
	KeyRubrics       = "rubricas"
	KeyEvaluations   = "evaluaciones"
	KeyComments      = "comentarios"
	KeyUIPreferences = "ui"
)

// DetectBackend maps a DSN to a backend by its scheme prefix. Anything
// unrecognised is treated as an sqlite path.
func DetectBackend(dsn string) BackendType {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return BackendPostgres
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return BackendRedis
	case dsn == "memory" || dsn == "memory://":
		return BackendMemory
	default:
		return BackendSQLite
	}
}

// SQLitePath strips an optional sqlite:// scheme.
func SQLitePath(dsn string) string {
	return strings.TrimPrefix(dsn, "sqlite://")
}
