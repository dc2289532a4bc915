package mysql

import (
	"github.com/sqlgate/sqlgate/pkg/adapter"
)

func init() {
	// Register MySQL and MariaDB drivers with the global registry
	adapter.Register(NewDriver())
	adapter.Register(NewMariaDBDriver())
}
