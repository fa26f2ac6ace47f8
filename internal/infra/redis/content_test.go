package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gmpapad/phronesis-engine/internal/domain"
	"github.com/gmpapad/phronesis-engine/internal/infra/memory"
)

type countingLoader struct {
	memory.PerspectiveLoader
	catalogCalls int
	slugCalls    int
}

func (l *countingLoader) LoadAll(ctx context.Context) ([]domain.Perspective, error) {
	l.catalogCalls++
	return l.PerspectiveLoader.LoadAll(ctx)
}

func (l *countingLoader) LoadBySlug(ctx context.Context, slug string) (domain.Perspective, error) {
	l.slugCalls++
	return l.PerspectiveLoader.LoadBySlug(ctx, slug)
}

func newTestLoader() *countingLoader {
	return &countingLoader{PerspectiveLoader: memory.NewStaticLoader(map[string]domain.Perspective{
		"understanding-arguments": {
			Slug:  "understanding-arguments",
			Title: "Understanding Arguments",
			Order: 1,
			Lessons: []domain.Lesson{
				{ID: "what-is-an-argument", Title: "What is an Argument?"},
			},
		},
	})}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestContentRepositoryCachesCatalogInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newTestLoader()
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	perspectives, err := repo.ListPerspectives(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(perspectives) != 1 {
		t.Fatalf("expected 1 perspective, got %d", len(perspectives))
	}
	if loader.catalogCalls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.catalogCalls)
	}

	// Second call should hit Redis, loader not incremented.
	if _, err := repo.ListPerspectives(context.Background()); err != nil {
		t.Fatalf("list again: %v", err)
	}
	if loader.catalogCalls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.catalogCalls)
	}
	if !mr.Exists("content:catalog") {
		t.Fatalf("expected catalog key in redis")
	}
}

func TestContentRepositoryCachesPerspectiveInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newTestLoader()
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	p, err := repo.GetPerspective(context.Background(), "understanding-arguments")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Title != "Understanding Arguments" {
		t.Fatalf("unexpected perspective %+v", p)
	}

	if _, err := repo.GetPerspective(context.Background(), "understanding-arguments"); err != nil {
		t.Fatalf("get again: %v", err)
	}
	if loader.slugCalls != 1 {
		t.Fatalf("expected cache hit on second get, calls=%d", loader.slugCalls)
	}
}

func TestContentRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newTestLoader()
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetPerspective(context.Background(), "understanding-arguments"); err != nil {
		t.Fatalf("get: %v", err)
	}

	// TTL plus jitter never exceeds 2x the base TTL.
	mr.FastForward(3 * time.Minute)

	if _, err := repo.GetPerspective(context.Background(), "understanding-arguments"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if loader.slugCalls != 2 {
		t.Fatalf("expected reload after expiry, calls=%d", loader.slugCalls)
	}
}
