// Package store keeps manifest references and their GeoJSON documents.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/woozymasta/geojsonkit/internal/config"
	"github.com/woozymasta/geojsonkit/internal/manifest"
)

// ErrNotFound is returned when a reference is not in the store.
var ErrNotFound = eris.New("reference not found")

// Record is one manifest reference with its batch ids and, once uploaded,
// its GeoJSON document.
type Record struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Ref       string          `json:"ref"`
	BatchIDs  []string        `json:"batch_ids"`
	GeoJSON   json.RawMessage `json:"geojson,omitempty"`
}

// HasGeoJSON reports whether a document is attached to the record.
func (r *Record) HasGeoJSON() bool {
	return len(r.GeoJSON) > 0 && string(r.GeoJSON) != "null"
}

// Store defines the persistence interface for manifests and GeoJSON mappings.
type Store interface {
	// ReplaceManifest drops every record and inserts the entries.
	ReplaceManifest(ctx context.Context, entries []manifest.Entry) error
	// AttachGeoJSON stores the document for ref, replacing any previous one.
	AttachGeoJSON(ctx context.Context, ref string, doc json.RawMessage) error
	Get(ctx context.Context, ref string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	// ListUnmapped returns the references that have no GeoJSON yet.
	ListUnmapped(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every record and returns the deleted references.
	DeleteAll(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store selected by the configuration.
func Open(cfg config.Store) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "redis":
		return NewRedis(cfg.Addr, cfg.Password, cfg.DB, cfg.Prefix), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
