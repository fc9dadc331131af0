package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"bugomattic/api/internal/config"
	"bugomattic/api/internal/configsource"
	"bugomattic/api/internal/search"
	"bugomattic/api/internal/session"
	"bugomattic/api/internal/store"
)

const testConfig = `{
	"Widgets": {
		"tasks": {"bug": [{"title": "Product bug"}]},
		"features": {
			"Sprocket": {"tasks": {"bug": [{"title": "Sprocket bug"}]}}
		}
	}
}`

type fakeStore struct {
	mu      sync.Mutex
	pingErr error
	repoErr error
	issues  map[string]store.Issue
	repos   []string
}

func newFakeStore(repos ...string) *fakeStore {
	return &fakeStore{issues: map[string]store.Issue{}, repos: repos}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListRepositories(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	repos := append([]string{}, f.repos...)
	sort.Strings(repos)
	return repos, nil
}

func (f *fakeStore) UpsertIssues(_ context.Context, issues []store.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, issue := range issues {
		f.issues[issue.ID] = issue
		known := false
		for _, repo := range f.repos {
			if repo == issue.Repo {
				known = true
			}
		}
		if !known {
			f.repos = append(f.repos, issue.Repo)
		}
	}
	return nil
}

func (f *fakeStore) ListIssues(context.Context) ([]store.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Issue, 0, len(f.issues))
	for _, issue := range f.issues {
		out = append(out, issue)
	}
	return out, nil
}

type fakeSearch struct {
	mu        sync.Mutex
	results   []search.Issue
	err       error
	queries   []search.Query
	indexed   []search.Issue
	reindexed int
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) ([]search.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.results, f.err
}

func (f *fakeSearch) IndexIssues(issues []search.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, issues...)
}

func (f *fakeSearch) ReindexAll(ctx context.Context, load func(context.Context) ([]search.Issue, error)) {
	issues, err := load(ctx)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindexed = len(issues)
}

func (f *fakeSearch) lastQuery() search.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return search.Query{}
	}
	return f.queries[len(f.queries)-1]
}

type fakeSource struct {
	raw string
	err error
}

func (f *fakeSource) Load(context.Context) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

func (f *fakeSource) String() string { return "fake" }

type fakePublishingSource struct {
	fakeSource
	published []string
}

func (f *fakePublishingSource) Publish(_ context.Context, raw json.RawMessage, author, message string) (configsource.Revision, error) {
	if author == "broken" {
		return configsource.Revision{}, errors.New("push rejected")
	}
	f.raw = string(raw)
	f.published = append(f.published, message)
	return configsource.Revision{Hash: "abc123", Author: author, Message: message, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

type testEnv struct {
	service  *Service
	store    *fakeStore
	search   *fakeSearch
	sessions *session.MemoryStore
}

func newTestEnv(source configsource.Source) *testEnv {
	data := newFakeStore("acme/widgets", "acme/gadgets")
	searcher := &fakeSearch{}
	sessions := session.NewMemoryStore(time.Hour)
	cfg := config.Config{SyncToken: "sync-secret", CORSOrigin: "*"}
	service := newService(cfg, data, searcher, source, sessions)
	return &testEnv{service: service, store: data, search: searcher, sessions: sessions}
}

func newBootstrappedEnv() *testEnv {
	env := newTestEnv(&fakeSource{raw: testConfig})
	_ = env.service.Bootstrap(context.Background())
	return env
}
