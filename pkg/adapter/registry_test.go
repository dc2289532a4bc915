package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	d := &fakeDriver{savepoints: true}

	r.Register(d)
	assert.True(t, r.IsRegistered(dbcapabilities.PostgreSQL))

	got, err := r.Get(dbcapabilities.PostgreSQL)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	types := r.ListRegistered()
	assert.Equal(t, []dbcapabilities.DatabaseID{dbcapabilities.PostgreSQL}, types)
}

func TestRegistryGetByAlias(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeDriver{})

	got, err := r.GetByName("PostgreSQL")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = r.GetByName("pgsql")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRegistryUnknownDriver(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(dbcapabilities.MySQL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDriverNotFound))

	_, err = r.GetByName("not-a-database")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDriverNotFound))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeDriver{})
	r.Unregister(dbcapabilities.PostgreSQL)
	assert.False(t, r.IsRegistered(dbcapabilities.PostgreSQL))
}
