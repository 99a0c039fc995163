//go:build integration

// Package containers starts the backing services used by integration tests.
// Containers are shared across suites in one test binary; Ryuk removes them
// when the binary exits.
package containers

import (
	"context"
	"sync"
	"testing"
)

type Manager struct {
	pgOnce sync.Once
	pg     *PostgresContainer
	pgErr  error
	rdOnce sync.Once
	rd     *RedisContainer
	rdErr  error
	rpOnce sync.Once
	rp     *RedpandaContainer
	rpErr  error
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() { manager = &Manager{} })
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() { m.pg, m.pgErr = startPostgres(context.Background()) })
	if m.pgErr != nil {
		t.Fatalf("failed to start postgres container: %v", m.pgErr)
	}
	return m.pg
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.rdOnce.Do(func() { m.rd, m.rdErr = startRedis(context.Background()) })
	if m.rdErr != nil {
		t.Fatalf("failed to start redis container: %v", m.rdErr)
	}
	return m.rd
}

func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	m.rpOnce.Do(func() { m.rp, m.rpErr = startRedpanda(context.Background()) })
	if m.rpErr != nil {
		t.Fatalf("failed to start redpanda container: %v", m.rpErr)
	}
	return m.rp
}
