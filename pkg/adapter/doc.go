// Package adapter provides a minimal, driver-agnostic relational database
// access layer: a connection-owning Adapter with transaction and savepoint
// control, identifier and value quoting, parameterized SQL building for
// basic CRUD, and a Statement wrapper over query result cursors.
//
// Engine drivers live in pkg/drivers and register themselves with the
// package registry from init(), database/sql style:
//
//	import (
//	    "github.com/sqlgate/sqlgate/pkg/adapter"
//	    _ "github.com/sqlgate/sqlgate/pkg/drivers/postgres"
//	)
//
//	a, err := adapter.New("postgres", adapter.Config{DSN: dsn}, nil)
//	if err != nil { ... }
//	defer a.Close()
//
//	st, err := a.Execute(ctx, "SELECT id, name FROM users WHERE org = ?", org)
//	if err != nil { ... }
//	rows, err := st.GetAll()
//
// One Adapter owns exactly one connection and is not safe for concurrent
// use without external synchronization.
package adapter
