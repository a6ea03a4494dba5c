// Package metadata stores the client's durable key-value state: the session
// token, the username and the dark-mode preference.
package metadata

import (
	"context"
)

// Repository is a string key-value store. Get reports found=false for an
// absent key; Delete of an absent key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
