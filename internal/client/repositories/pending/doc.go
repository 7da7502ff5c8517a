// Package pending persists story submissions that could not be uploaded yet.
//
// Records are append-only: they are inserted by the foreground submission
// flow, read in insertion order by the sync engine and deleted exactly once
// after a confirmed upload. There is no update operation.
//
// The SQLite implementation works over dbx.DBTX, so the same repository can
// run on *sql.DB or inside a transaction opened with dbx.WithTx.
package pending
