package db

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sqlbench/internal/target"
)

const postgresIDQuery = `SELECT pg_backend_pid()`

func newPostgres(cfg target.Config) *session {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&client_encoding=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Charset)

	return &session{
		cfg:        cfg,
		driverName: "pgx",
		dsn:        dsn,
		idQuery:    postgresIDQuery,
	}
}
