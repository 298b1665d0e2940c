package db

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"sqlbench/internal/target"
)

const mysqlIDQuery = `SELECT CONNECTION_ID()`

func newMySQL(cfg target.Config) *session {
	// MySQL calls the full range "utf8mb4"; plain utf8 is the 3-byte subset.
	charset := cfg.Charset
	if strings.EqualFold(charset, "UTF8") {
		charset = "utf8mb4"
	}

	return &session{
		cfg:        cfg,
		driverName: "mysql",
		dsn:        mysqlDSN(cfg, charset),
		idQuery:    mysqlIDQuery,
	}
}

func mysqlDSN(cfg target.Config, charset string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&timeout=30s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, charset)
}
