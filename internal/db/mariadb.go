package db

import (
	"strings"

	"sqlbench/internal/target"
)

// MariaDB speaks the MySQL wire protocol, so it rides the same driver; it
// keeps its own constructor because plan formatting and display naming
// differ downstream.
func newMariaDB(cfg target.Config) *session {
	charset := strings.ToLower(cfg.Charset)

	return &session{
		cfg:        cfg,
		driverName: "mysql",
		dsn:        mysqlDSN(cfg, charset),
		idQuery:    mysqlIDQuery,
	}
}
