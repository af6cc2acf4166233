package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Delete implementations that distinguish
// missing objects. S3 does not.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore persists profile assets by key.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// URLFor returns the public URL for an optional key, or "" when unset.
func URLFor(store ObjectStore, key *string) string {
	if store == nil || key == nil || *key == "" {
		return ""
	}
	return store.PublicURL(*key)
}
