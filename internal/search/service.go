package search

import (
	"context"
	"log"

	"frameboard/api/internal/store"
)

// Fallback serves queries when Meilisearch is absent or unhealthy.
type Fallback interface {
	SearchThreads(ctx context.Context, room, query string, limit int) ([]store.Thread, error)
}

// Service is the facade that tries Meilisearch first and falls back to the
// document store's regex search.
type Service struct {
	meili    *Meili
	fallback Fallback
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback Fallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise the store fallback.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to store: %v", err)
	}

	threads, err := s.fallback.SearchThreads(ctx, q.Room, q.Text, q.Limit)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}

	results := make([]Result, 0, len(threads))
	for _, thread := range threads {
		results = append(results, Result{
			ID:      thread.ID.Hex(),
			Room:    thread.Room,
			Snippet: snippet(thread.Text, 200),
		})
	}
	return Response{Results: results, Total: len(results), Query: q.Text}
}

// IndexThread indexes a thread (fire-and-forget to Meilisearch).
func (s *Service) IndexThread(record Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Index(record); err != nil {
			log.Printf("search: index thread %s: %v", record.ID, err)
		}
	}()
}

// DeleteThread removes a thread from the search index (fire-and-forget).
func (s *Service) DeleteThread(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Delete(id); err != nil {
			log.Printf("search: delete thread %s: %v", id, err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
