package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLike returns a LIKE condition and its bind pattern, adjusted
// for the active dialect. SQLite lacks ILIKE, so both sides are lowered there.
func CaseInsensitiveLike(conn *gorm.DB, column, pattern string) (string, string) {
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) LIKE ?", column), strings.ToLower(pattern)
	}
	return fmt.Sprintf("%s ILIKE ?", column), pattern
}
