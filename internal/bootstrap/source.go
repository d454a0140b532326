package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// OpenSource opens and pings the relational source. driver is "mysql" or "sqlite".
func OpenSource(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
