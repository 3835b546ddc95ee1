// Package store persists instance metadata and application settings in an
// embedded libSQL database. The expression engine itself never touches the
// store: callers load an instance and the settings once per evaluation and
// hand them to the engine as in-memory data sources.
package store

import (
	"context"
	"time"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// Store is the persistence boundary for instances and settings.
type Store interface {
	PutInstance(ctx context.Context, inst *schema.Instance) error
	GetInstance(ctx context.Context, id string) (*schema.Instance, error)
	DeleteInstance(ctx context.Context, id string) error

	PutSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)
	Settings(ctx context.Context) (map[string]string, error)

	Close() error
}

// InstanceRecord is the stored form of an instance, with bookkeeping fields.
type InstanceRecord struct {
	Instance  schema.Instance
	CreatedAt time.Time
	UpdatedAt time.Time
}
