// Package redis caches normalized perspectives in Redis so multiple
// engine instances share one warm copy of the catalog.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// PerspectiveLoader fetches normalized content from a backing source.
type PerspectiveLoader interface {
	LoadAll(ctx context.Context) ([]domain.Perspective, error)
	LoadBySlug(ctx context.Context, slug string) (domain.Perspective, error)
}

// ContentRepository caches perspectives as JSON values:
//
//	SET content:catalog            {[]Perspective}
//	SET content:perspective:{slug} {Perspective}
//
// falling back to the loader on cache miss, with singleflight collapse
// so a cold key triggers one backing load per instance.
type ContentRepository struct {
	client *redis.Client
	loader PerspectiveLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader PerspectiveLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) ListPerspectives(ctx context.Context) ([]domain.Perspective, error) {
	if raw, err := r.client.Get(ctx, catalogKey).Bytes(); err == nil {
		var perspectives []domain.Perspective
		if err := json.Unmarshal(raw, &perspectives); err == nil {
			return perspectives, nil
		}
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := r.client.Get(ctx, catalogKey).Bytes(); err == nil {
			var perspectives []domain.Perspective
			if err := json.Unmarshal(raw, &perspectives); err == nil {
				return perspectives, nil
			}
		}

		perspectives, err := r.loader.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		r.cacheValue(ctx, catalogKey, perspectives)
		return perspectives, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Perspective), nil
}

func (r *ContentRepository) GetPerspective(ctx context.Context, slug string) (domain.Perspective, error) {
	key := perspectiveKey(slug)
	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var p domain.Perspective
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var p domain.Perspective
			if err := json.Unmarshal(raw, &p); err == nil {
				return p, nil
			}
		}

		p, err := r.loader.LoadBySlug(ctx, slug)
		if err != nil {
			return domain.Perspective{}, err
		}
		r.cacheValue(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return domain.Perspective{}, err
	}
	return result.(domain.Perspective), nil
}

// cacheValue is best-effort: a failed SET just means the next request
// reloads.
func (r *ContentRepository) cacheValue(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
}

const catalogKey = "content:catalog"

func perspectiveKey(slug string) string {
	return "content:perspective:" + slug
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
