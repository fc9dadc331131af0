package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxIssues = "bugomattic_issues"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the issue index. The
// returned value is usable even when Meilisearch is down; Healthy reports it.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxIssues,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxIssues, err)
	}

	index := m.client.Index(idxIssues)
	filterable := []interface{}{"repo", "state"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxIssues, err)
	}
	sortable := []string{"createdAtUnix"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("search: update sortable attrs for %s: %v", idxIssues, err)
	}
	searchable := []string{"title", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxIssues, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(ctx context.Context, q Query) ([]Issue, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	req := &meili.SearchRequest{
		Limit: int64(defaultLimit(q.Limit)),
	}
	if filters := meiliFilters(q.Filters); len(filters) > 0 {
		req.Filter = filters
	}
	if q.Filters.Sort == SortDateCreated {
		req.Sort = []string{"createdAtUnix:desc"}
	}

	resp, err := m.client.Index(idxIssues).SearchWithContext(ctx, q.Text, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	issues := make([]Issue, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		issues = append(issues, hitToIssue(hit))
	}
	return issues, nil
}

// meiliFilters builds the filter expressions for f. Each inner expression is
// ANDed by Meilisearch.
func meiliFilters(f Filters) []string {
	var filters []string
	if len(f.Repos) > 0 {
		quoted := make([]string, len(f.Repos))
		for i, repo := range f.Repos {
			quoted[i] = fmt.Sprintf("%q", repo)
		}
		filters = append(filters, "repo IN ["+strings.Join(quoted, ", ")+"]")
	}
	if f.Status == StatusOpen || f.Status == StatusClosed {
		filters = append(filters, fmt.Sprintf("state = %q", string(f.Status)))
	}
	return filters
}

func hitToIssue(hit meili.Hit) Issue {
	issue := Issue{
		ID:     decodeString(hit, "id"),
		Repo:   decodeString(hit, "repo"),
		Number: decodeInt(hit, "number"),
		Title:  decodeString(hit, "title"),
		Body:   decodeString(hit, "body"),
		URL:    decodeString(hit, "url"),
		State:  decodeString(hit, "state"),
		Author: decodeString(hit, "author"),
	}
	issue.CreatedAt, _ = time.Parse(time.RFC3339, decodeString(hit, "createdAt"))
	issue.UpdatedAt, _ = time.Parse(time.RFC3339, decodeString(hit, "updatedAt"))
	return issue
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt(hit meili.Hit, key string) int {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// IndexIssues adds or replaces issues in the search index.
func (m *Meili) IndexIssues(records []IssueRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxIssues).AddDocuments(records, nil)
	return err
}
