package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

type countingLoader struct {
	PerspectiveLoader
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

func TestContentRepositoryCachesCatalog(t *testing.T) {
	loader := &countingLoader{PerspectiveLoader: NewStaticLoader(map[string]domain.Perspective{
		"a": {Slug: "a", Title: "A", Order: 2},
		"b": {Slug: "b", Title: "B", Order: 1},
	})}
	repo := NewContentRepository(loader, time.Minute)

	perspectives, err := repo.ListPerspectives(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(perspectives) != 2 || perspectives[0].Slug != "b" {
		t.Fatalf("expected sorted catalog, got %+v", perspectives)
	}

	if _, err := repo.ListPerspectives(context.Background()); err != nil {
		t.Fatalf("list again: %v", err)
	}
	if loader.catalogCalls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.catalogCalls)
	}
}

func TestContentRepositoryCachesBySlug(t *testing.T) {
	loader := &countingLoader{PerspectiveLoader: NewStaticLoader(map[string]domain.Perspective{
		"a": {Slug: "a", Title: "A"},
	})}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetPerspective(context.Background(), "a"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := repo.GetPerspective(context.Background(), "a"); err != nil {
		t.Fatalf("get again: %v", err)
	}
	if loader.slugCalls != 1 {
		t.Fatalf("expected cache hit on second get, calls=%d", loader.slugCalls)
	}

	if _, err := repo.GetPerspective(context.Background(), "missing"); !errors.Is(err, domain.ErrPerspectiveNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
