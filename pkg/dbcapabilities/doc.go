// Package dbcapabilities provides a shared registry describing the capabilities of
// database engines supported by sqlgate. The adapter layer imports this package to
// make decisions based on uniform metadata (identifier quoting, savepoint support,
// placeholder dialect, default ports).
//
// Minimal usage example:
//
//	import "github.com/sqlgate/sqlgate/pkg/dbcapabilities"
//
//	func canNest(db string) bool {
//	    id, ok := dbcapabilities.ParseID(db)
//	    return ok && dbcapabilities.SupportsSavepoints(id)
//	}
//
// The package exposes constants for IDs (e.g., dbcapabilities.PostgreSQL) and a
// registry `All` for advanced consumers.
package dbcapabilities
