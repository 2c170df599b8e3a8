package cache

import "errors"

// ErrCacheMiss is returned when a requested key is absent from the cache.
// Read paths treat it, and any other cache failure, as a miss and fall
// through to the durable store.
var ErrCacheMiss = errors.New("cache miss")
