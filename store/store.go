// Package store implements the bitemporal record layer: create/update/archive
// for ontology records (data types, property types, entity types), and
// create/patch/validate for entities, each enforcing the referential and
// temporal preconditions ahead of the database write. Every write operation
// takes the acting actor and returns a typed *graphstoreerr.Error;
// ValidateEntity returns a Diagnostic list instead.
package store

import (
	"context"
	"sync"

	"graphstore.dev/common"
	"graphstore.dev/db"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/ontology"
)

// Store is the entry point for every bitemporal record operation. It holds
// one connection pool for its lifetime and an in-memory cache of entity type
// schemas, refreshed on every ontology write, used to satisfy
// ontology.TypeResolver for inheritance closure computation without a
// database round trip on every lookup.
type Store struct {
	pool *db.Pool
	log  *common.ContextLogger

	mu    sync.RWMutex
	types map[string]*ontology.EntityType
}

// New constructs a Store backed by pool and applies Schema if it has not
// already been applied, then loads the current entity type set into the
// in-memory closure cache.
func New(ctx context.Context, pool *db.Pool) (*Store, error) {
	s := &Store{
		pool:  pool,
		log:   common.ServiceLogger("store", "dev"),
		types: make(map[string]*ontology.EntityType),
	}
	if err := pool.Exec(ctx, Schema); err != nil {
		return nil, graphstoreerr.Wrap("store.New", err)
	}
	if err := s.reloadEntityTypes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ResolveEntityType implements ontology.TypeResolver against the in-memory
// cache, the contract ontology.InheritanceClosure needs without importing
// this package (which would create an import cycle).
func (s *Store) ResolveEntityType(v identifier.VersionedUrl) (*ontology.EntityType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	et, ok := s.types[v.String()]
	return et, ok
}

func (s *Store) putEntityType(et *ontology.EntityType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[et.RecordId.String()] = et
}

func (s *Store) dropEntityType(v identifier.VersionedUrl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.types, v.String())
}

// reloadEntityTypes replaces the in-memory closure cache with the full set
// of entity types currently live ([_, +inf) transaction interval).
func (s *Store) reloadEntityTypes(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT base_url, version, schema, title, abstract, owner_web_id::text, created_by::text, archived_by::text
		FROM entity_types
		WHERE upper_inf(tx_range)
	`)
	if err != nil {
		return graphstoreerr.Wrap("store.reloadEntityTypes", err)
	}
	defer rows.Close()

	fresh := make(map[string]*ontology.EntityType)
	for rows.Next() {
		et, err := scanEntityType(rows)
		if err != nil {
			return graphstoreerr.Wrap("store.reloadEntityTypes", err)
		}
		fresh[et.RecordId.String()] = et
	}
	if err := rows.Err(); err != nil {
		return graphstoreerr.Wrap("store.reloadEntityTypes", err)
	}

	s.mu.Lock()
	s.types = fresh
	s.mu.Unlock()
	return nil
}
