package db

import (
	"fmt"

	_ "github.com/nakagami/firebirdsql"

	"sqlbench/internal/target"
)

// firebirdIDQuery resolves the attachment id of the pinned session, which
// scopes the MON$ monitoring queries.
const firebirdIDQuery = `SELECT MON$ATTACHMENT_ID FROM MON$ATTACHMENTS WHERE MON$ATTACHMENT_ID = CURRENT_CONNECTION`

func newFirebird(cfg target.Config) *session {
	dsn := fmt.Sprintf("%s:%s@%s:%d/%s?charset=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Charset)

	return &session{
		cfg:        cfg,
		driverName: "firebirdsql",
		dsn:        dsn,
		idQuery:    firebirdIDQuery,
	}
}
