// Package session keeps wizard state between HTTP requests.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kleurijkwonen/inspections/wizard"
)

var ErrNotFound = errors.New("session not found")

// Store holds one wizard snapshot per session id. Entries expire after the
// store's TTL of inactivity.
type Store interface {
	Load(ctx context.Context, id string) (wizard.Snapshot, error)
	Save(ctx context.Context, id string, snap wizard.Snapshot) error
	Delete(ctx context.Context, id string) error
}

func NewID() string {
	return uuid.New().String()
}
