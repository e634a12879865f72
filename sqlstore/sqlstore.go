// Package sqlstore is the self-hosted backend: a core.Store plus the user and
// group databases, all on one database/sql handle. Deployments that keep the
// content in a managed store still use this package for users and groups.
package sqlstore

import (
	"database/sql"
)

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(err)
	}
	return stmt
}
