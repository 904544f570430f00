package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Fetch is a read-through helper: it returns the cached value for key when
// present, otherwise calls load and stores its result.  Cache errors are
// logged and never fail the read.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if b, err := c.Get(ctx, key); err == nil {
		var v T
		if jerr := json.Unmarshal(b, &v); jerr == nil {
			return v, nil
		}
		log.Warn().Str("key", key).Msg("cache: dropping undecodable entry")
		_ = c.Invalidate(ctx, key)
	} else if !errors.Is(err, ErrMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache: get failed")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if b, jerr := json.Marshal(v); jerr == nil {
		if serr := c.Set(ctx, key, b, ttl); serr != nil {
			log.Warn().Err(serr).Str("key", key).Msg("cache: set failed")
		}
	}
	return v, nil
}
