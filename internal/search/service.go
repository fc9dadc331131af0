package search

import (
	"context"
	"fmt"
	"log"
)

// Indexer writes issues into a search index.
type Indexer interface {
	IndexIssues(records []IssueRecord) error
	Healthy() bool
}

// Service is the facade that tries the primary searcher (Meilisearch) first
// and falls back to the secondary one (PG FTS).
type Service struct {
	primary  Searcher
	fallback Searcher
	indexer  Indexer
}

// NewService creates a search service. primary and indexer may be nil if
// Meilisearch is not configured.
func NewService(primary Searcher, fallback Searcher, indexer Indexer) *Service {
	return &Service{primary: primary, fallback: fallback, indexer: indexer}
}

// NewMeiliService wires Meilisearch as both primary searcher and indexer.
func NewMeiliService(m *Meili, pg *PgFTS) *Service {
	if m == nil {
		return NewService(nil, pg, nil)
	}
	return NewService(m, pg, m)
}

// Search tries the primary searcher if healthy, otherwise the fallback.
func (s *Service) Search(ctx context.Context, q Query) ([]Issue, error) {
	if s.primary != nil && s.primary.Healthy() {
		issues, err := s.primary.Search(ctx, q)
		if err == nil {
			return nonNil(issues), nil
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}
	if s.fallback == nil {
		return nil, fmt.Errorf("search: no searcher available")
	}
	issues, err := s.fallback.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return nonNil(issues), nil
}

// IndexIssues pushes issues to the index. It is a no-op while the index is
// unavailable; a later ReindexAll catches up.
func (s *Service) IndexIssues(issues []Issue) {
	if s.indexer == nil || !s.indexer.Healthy() || len(issues) == 0 {
		return
	}
	records := make([]IssueRecord, len(issues))
	for i, issue := range issues {
		records[i] = RecordFromIssue(issue)
	}
	if err := s.indexer.IndexIssues(records); err != nil {
		log.Printf("search: index %d issues: %v", len(records), err)
	}
}

// ReindexAll pushes every issue returned by load into the index.
func (s *Service) ReindexAll(ctx context.Context, load func(context.Context) ([]Issue, error)) {
	if s.indexer == nil || !s.indexer.Healthy() {
		return
	}
	issues, err := load(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.IndexIssues(issues)
}

func nonNil(issues []Issue) []Issue {
	if issues == nil {
		return []Issue{}
	}
	return issues
}
