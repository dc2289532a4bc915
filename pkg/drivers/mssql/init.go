package mssql

import (
	"github.com/sqlgate/sqlgate/pkg/adapter"
)

func init() {
	// Register SQL Server driver with the global registry
	adapter.Register(NewDriver())
}
