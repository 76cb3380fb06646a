// Package storage provides the persisted key-value capability the gallery
// store caches in front of. Persisted storage is the source of truth on
// startup; in-memory state re-syncs from it.
package storage

import "context"

// KV is the namespaced get/set capability. Values round-trip through JSON.
// Both operations may fail; callers treat a failed Get as "no persisted
// value" and a failed Set as a best-effort write.
type KV interface {
	// Get decodes the stored value into out. ok is false when the key has
	// never been written.
	Get(ctx context.Context, namespace, key string, out any) (ok bool, err error)
	Set(ctx context.Context, namespace, key string, value any) error
	Delete(ctx context.Context, namespace, key string) error
}
