// Package postgres backs the engine with Postgres: a JSONB document
// source for content and bun-mapped stores for the persisted entities.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/content"
	"github.com/gmpapad/phronesis-engine/internal/domain"
)

// DocumentLoader reads perspective documents from the
// perspective_documents JSONB table.
type DocumentLoader struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

func NewDocumentLoader(pool *pgxpool.Pool, log *zap.SugaredLogger) *DocumentLoader {
	return &DocumentLoader{pool: pool, log: log}
}

func (l *DocumentLoader) LoadAll(ctx context.Context) ([]domain.Perspective, error) {
	rows, err := l.pool.Query(ctx, `SELECT slug, data FROM perspective_documents`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	var perspectives []domain.Perspective
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		p, err := content.Normalize(content.Document{Name: key, Raw: raw})
		if err != nil {
			l.log.Warnw("skipping malformed document", "slug", key, "err", err)
			continue
		}
		perspectives = append(perspectives, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	content.Sort(perspectives)
	return perspectives, nil
}

// LoadBySlug looks the document up by row key, falling back to a
// catalog scan when no row key matches the slug.
func (l *DocumentLoader) LoadBySlug(ctx context.Context, slug string) (domain.Perspective, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM perspective_documents WHERE slug=$1`, slug).Scan(&raw)
	if err == nil {
		p, nerr := content.Normalize(content.Document{Name: slug, Raw: raw})
		if nerr == nil {
			return p, nil
		}
		l.log.Warnw("malformed document, falling back to scan", "slug", slug, "err", nerr)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Perspective{}, fmt.Errorf("load document: %w", err)
	}

	all, err := l.LoadAll(ctx)
	if err != nil {
		return domain.Perspective{}, err
	}
	for _, p := range all {
		if p.Slug == slug {
			return p, nil
		}
	}
	return domain.Perspective{}, domain.ErrPerspectiveNotFound
}
