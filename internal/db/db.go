package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"tienda-be/internal/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// InitDB opens the configured database or exits the process. Storage
// failures are fatal at start-up only.
func InitDB(cfg *config.Config) *sql.DB {
	db, err := NewDatabase(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("Database connection established (%s)", cfg.DBDriver)
	return db
}

func NewDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to prepare sqlite directory: %w", err)
			}
		}
	}
	return newDatabaseWithDriver(cfg, driverName(cfg.DBDriver))
}

func newDatabaseWithDriver(cfg *config.Config, driver string) (*sql.DB, error) {
	db, err := sql.Open(driver, buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if cfg.DBDriver == config.DriverSQLite {
		// SQLite serializes writers itself; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func driverName(dbDriver string) string {
	if dbDriver == config.DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}

func buildDSN(cfg *config.Config) string {
	if cfg.DBDriver == config.DriverPostgres {
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.DBPath)
}
