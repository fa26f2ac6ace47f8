package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gmpapad/phronesis-engine/internal/content"
	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// PerspectiveLoader fetches normalized content from a backing source
// (filesystem directory, document table).
type PerspectiveLoader interface {
	LoadAll(ctx context.Context) ([]domain.Perspective, error)
	LoadBySlug(ctx context.Context, slug string) (domain.Perspective, error)
}

const catalogKey = "__catalog"

// ContentRepository caches perspectives with TTL to avoid re-reading
// and re-parsing documents on every request.
type ContentRepository struct {
	loader PerspectiveLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	catalog cachedCatalog
	bySlug  map[string]cachedPerspective
}

type cachedCatalog struct {
	perspectives []domain.Perspective
	expiresAt    time.Time
}

type cachedPerspective struct {
	perspective domain.Perspective
	expiresAt   time.Time
}

func NewContentRepository(loader PerspectiveLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		bySlug: make(map[string]cachedPerspective),
	}
}

func (r *ContentRepository) ListPerspectives(ctx context.Context) ([]domain.Perspective, error) {
	now := r.clock()

	r.mu.RLock()
	if r.catalog.perspectives != nil && r.catalog.expiresAt.After(now) {
		cached := r.catalog.perspectives
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.catalog.perspectives != nil && r.catalog.expiresAt.After(now) {
			cached := r.catalog.perspectives
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		perspectives, err := r.loader.LoadAll(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.catalog = cachedCatalog{perspectives: perspectives, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return perspectives, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Perspective), nil
}

func (r *ContentRepository) GetPerspective(ctx context.Context, slug string) (domain.Perspective, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.bySlug[slug]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.perspective, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.bySlug[slug]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.perspective, nil
		}
		r.mu.RUnlock()

		perspective, err := r.loader.LoadBySlug(ctx, slug)
		if err != nil {
			return domain.Perspective{}, err
		}

		r.mu.Lock()
		r.bySlug[slug] = cachedPerspective{perspective: perspective, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return perspective, nil
	})
	if err != nil {
		return domain.Perspective{}, err
	}
	return result.(domain.Perspective), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLoader serves perspectives from an in-memory map, for tests and
// demos.
type StaticLoader struct {
	perspectives map[string]domain.Perspective
}

func NewStaticLoader(perspectives map[string]domain.Perspective) *StaticLoader {
	return &StaticLoader{perspectives: perspectives}
}

func (l *StaticLoader) LoadAll(_ context.Context) ([]domain.Perspective, error) {
	out := make([]domain.Perspective, 0, len(l.perspectives))
	for _, p := range l.perspectives {
		out = append(out, p)
	}
	content.Sort(out)
	return out, nil
}

func (l *StaticLoader) LoadBySlug(_ context.Context, slug string) (domain.Perspective, error) {
	if p, ok := l.perspectives[slug]; ok {
		return p, nil
	}
	return domain.Perspective{}, domain.ErrPerspectiveNotFound
}
