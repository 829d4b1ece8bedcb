package store

import "github.com/lib/pq"

// pqCopyIn wraps pq.CopyIn so the bulk-insert statement builders in
// store.go stay readable; lib/pq's CopyIn returns the special COPY statement text
// that *sql.Tx.Prepare understands as a bulk-copy operation.
func pqCopyIn(table string, columns ...string) string {
	return pq.CopyIn(table, columns...)
}
