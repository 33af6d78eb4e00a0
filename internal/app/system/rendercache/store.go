// internal/app/system/rendercache/store.go
package rendercache

import "context"

// Store persists rendered entries and the tag sets that point at them.
//
// Every InvalidateTag call advances the store's generation. A render reads
// the generation before it starts and writes with SetIfUnchanged, so a page
// built from content older than an invalidation is never stored after it.
type Store interface {
	// Get returns the entry for key. ok is false on a miss.
	Get(ctx context.Context, key string) (e Entry, ok bool, err error)
	// Set replaces the entry for key and indexes it under each of e.Tags.
	Set(ctx context.Context, key string, e Entry) error
	// Generation reports how many invalidations the store has seen.
	Generation(ctx context.Context) (uint64, error)
	// SetIfUnchanged is Set, skipped when the generation is no longer gen.
	SetIfUnchanged(ctx context.Context, key string, e Entry, gen uint64) (stored bool, err error)
	// InvalidateTag drops every entry carrying tag and returns how many went.
	InvalidateTag(ctx context.Context, tag string) (int, error)
}

// InvalidatePath drops every entry rendered for path, whatever its query.
func InvalidatePath(ctx context.Context, s Store, path string) (int, error) {
	return s.InvalidateTag(ctx, PathTag(path))
}
