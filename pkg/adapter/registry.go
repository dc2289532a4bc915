package adapter

import (
	"fmt"
	"sync"

	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

// Registry manages the registration and retrieval of database drivers.
type Registry struct {
	drivers map[dbcapabilities.DatabaseID]Driver
	mu      sync.RWMutex
}

// NewRegistry creates a new driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[dbcapabilities.DatabaseID]Driver),
	}
}

// Register registers a database driver.
// If a driver for the same database type is already registered, it will be replaced.
func (r *Registry) Register(driver Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[driver.Type()] = driver
}

// Get retrieves a registered driver by database type.
// Returns ErrDriverNotFound if the driver is not registered.
func (r *Registry) Get(dbType dbcapabilities.DatabaseID) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, exists := r.drivers[dbType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, dbType)
	}

	return driver, nil
}

// GetByName retrieves a registered driver by database name or alias.
// Returns ErrDriverNotFound if the driver is not registered.
func (r *Registry) GetByName(name string) (Driver, error) {
	dbType, ok := dbcapabilities.ParseID(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown database type '%s'", ErrDriverNotFound, name)
	}

	return r.Get(dbType)
}

// IsRegistered checks if a driver is registered for the given database type.
func (r *Registry) IsRegistered(dbType dbcapabilities.DatabaseID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.drivers[dbType]
	return exists
}

// ListRegistered returns a list of all registered database types.
func (r *Registry) ListRegistered() []dbcapabilities.DatabaseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]dbcapabilities.DatabaseID, 0, len(r.drivers))
	for dbType := range r.drivers {
		types = append(types, dbType)
	}

	return types
}

// Unregister removes a driver from the registry.
func (r *Registry) Unregister(dbType dbcapabilities.DatabaseID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.drivers, dbType)
}

// globalRegistry is the default global driver registry. Driver packages
// register themselves here from init(), database/sql style; applications
// blank-import the drivers they need.
var globalRegistry = NewRegistry()

// Register registers a driver in the global registry.
func Register(driver Driver) {
	globalRegistry.Register(driver)
}

// GetDriver retrieves a driver from the global registry.
func GetDriver(dbType dbcapabilities.DatabaseID) (Driver, error) {
	return globalRegistry.Get(dbType)
}

// GetDriverByName retrieves a driver from the global registry by name or alias.
func GetDriverByName(name string) (Driver, error) {
	return globalRegistry.GetByName(name)
}

// ListRegistered returns all registered database types from the global registry.
func ListRegistered() []dbcapabilities.DatabaseID {
	return globalRegistry.ListRegistered()
}

// GlobalRegistry returns the global driver registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
