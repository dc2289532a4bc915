package postgres

import (
	"github.com/sqlgate/sqlgate/pkg/adapter"
)

func init() {
	// Register PostgreSQL driver with the global registry
	adapter.Register(NewDriver())
}
