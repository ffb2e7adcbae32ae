package database

import (
	"errors"
	"strings"

	"soa-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Supabase/Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer / Supabase pooler.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// AutoMigrate creates the tables from the GORM models. Used by the SQLite
// test databases; Postgres uses the versioned migrations in Migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Organization{},
		&domain.OrganizationRegion{},
		&domain.InviteCode{},
		&domain.JoinRequest{},
		&domain.OrganizationMember{},
		&domain.Identity{},
	)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
// Drivers that GORM cannot translate are matched on SQLSTATE 23505 or message text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(strings.ToLower(msg), "duplicate") ||
		strings.Contains(msg, "UNIQUE constraint")
}
