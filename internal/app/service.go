package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bugomattic/api/internal/assistant"
	"bugomattic/api/internal/config"
	"bugomattic/api/internal/configsource"
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
	"bugomattic/api/internal/session"
	"bugomattic/api/internal/store"
)

type dataStore interface {
	Ping(context.Context) error
	ListRepositories(context.Context) ([]string, error)
	UpsertIssues(context.Context, []store.Issue) error
	ListIssues(context.Context) ([]store.Issue, error)
}

type issueSearch interface {
	Search(context.Context, search.Query) ([]search.Issue, error)
	IndexIssues([]search.Issue)
	ReindexAll(context.Context, func(context.Context) ([]search.Issue, error))
}

// configPublisher is implemented by config sources that accept new versions.
type configPublisher interface {
	Publish(ctx context.Context, raw json.RawMessage, author, message string) (configsource.Revision, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	search   issueSearch
	source   configsource.Source
	sessions session.Store
	errors   *assistant.ErrorLogger
	now      func() time.Time

	refMu     sync.RWMutex
	rawConfig json.RawMessage
	config    *reportingconfig.Config
	configErr error
	repos     []string
	reposErr  error

	lockMu sync.Mutex
	locks  map[string]*sessionLock
}

func New(cfg config.Config, pg *store.PostgresStore, searchService *search.Service, source configsource.Source, sessions session.Store) *Service {
	return newService(cfg, pg, searchService, source, sessions)
}

func newService(cfg config.Config, data dataStore, searcher issueSearch, source configsource.Source, sessions session.Store) *Service {
	return &Service{
		cfg:       cfg,
		store:     data,
		search:    searcher,
		source:    source,
		sessions:  sessions,
		errors:    assistant.NewErrorLogger(log.Default()),
		now:       time.Now,
		configErr: errors.New("reporting config not loaded"),
		reposErr:  errors.New("repositories not loaded"),
		locks:     make(map[string]*sessionLock),
	}
}

// Bootstrap loads the reference data every session shares and rebuilds the
// search index. The loads run concurrently and fail independently: a failed
// load is served as an error until the next reload.
func (s *Service) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.ReloadReportingConfig(ctx); err != nil {
			s.errors.Log(err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.refreshRepos(ctx); err != nil {
			s.errors.Log(err)
		}
		return nil
	})
	g.Go(func() error {
		s.search.ReindexAll(ctx, s.listSearchIssues)
		return nil
	})
	return g.Wait()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SyncToken() string {
	return s.cfg.SyncToken
}

// ReloadReportingConfig reads the config source and keeps the raw document
// if it normalizes. A config that fails to normalize replaces the previous
// one with the error.
func (s *Service) ReloadReportingConfig(ctx context.Context) error {
	raw, err := s.source.Load(ctx)
	var cfg *reportingconfig.Config
	if err == nil {
		cfg, err = reportingconfig.Normalize(raw)
	}
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if err != nil {
		s.rawConfig = nil
		s.config = nil
		s.configErr = fmt.Errorf("load reporting config from %s: %w", s.source, err)
		return s.configErr
	}
	s.rawConfig = raw
	s.config = cfg
	s.configErr = nil
	return nil
}

// FeatureMatch is a feature picker result.
type FeatureMatch struct {
	ID         string   `json:"id"`
	Breadcrumb []string `json:"breadcrumb"`
}

// MatchFeatures finds features by name or keyword in config order.
func (s *Service) MatchFeatures(term string) ([]FeatureMatch, error) {
	s.refMu.RLock()
	cfg, err := s.config, s.configErr
	s.refMu.RUnlock()
	if err != nil {
		return nil, domainError(http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE", "Reporting config is unavailable", map[string]any{"reason": err.Error()})
	}
	ids := cfg.MatchFeatures(term)
	matches := make([]FeatureMatch, 0, len(ids))
	for _, id := range ids {
		matches = append(matches, FeatureMatch{ID: id, Breadcrumb: cfg.FeatureBreadcrumb(id)})
	}
	return matches, nil
}

// ReportingConfig returns the raw config exactly as published.
func (s *Service) ReportingConfig() (json.RawMessage, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	if s.configErr != nil {
		return nil, domainError(http.StatusServiceUnavailable, "CONFIG_UNAVAILABLE", "Reporting config is unavailable", map[string]any{"reason": s.configErr.Error()})
	}
	return s.rawConfig, nil
}

// PublishReportingConfig validates raw and commits it to a publishable
// source, then reloads it.
func (s *Service) PublishReportingConfig(ctx context.Context, raw json.RawMessage, author, message string) (configsource.Revision, error) {
	publisher, ok := s.source.(configPublisher)
	if !ok {
		return configsource.Revision{}, domainError(http.StatusConflict, "CONFIG_READ_ONLY", "Reporting config source does not accept updates", map[string]any{"source": s.source.String()})
	}
	if _, err := reportingconfig.Normalize(raw); err != nil {
		return configsource.Revision{}, err
	}
	if strings.TrimSpace(author) == "" {
		return configsource.Revision{}, validationError("author is required", nil)
	}
	if strings.TrimSpace(message) == "" {
		message = "Update reporting config"
	}
	revision, err := publisher.Publish(ctx, raw, author, message)
	if err != nil {
		return configsource.Revision{}, err
	}
	if err := s.ReloadReportingConfig(ctx); err != nil {
		return configsource.Revision{}, err
	}
	return revision, nil
}

func (s *Service) refreshRepos(ctx context.Context) error {
	repos, err := s.store.ListRepositories(ctx)
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if err != nil {
		s.reposErr = fmt.Errorf("load repositories: %w", err)
		return s.reposErr
	}
	s.repos = repos
	s.reposErr = nil
	return nil
}

// AvailableRepos returns the repositories issues can be filtered by.
func (s *Service) AvailableRepos() ([]string, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	if s.reposErr != nil {
		return nil, domainError(http.StatusServiceUnavailable, "REPOS_UNAVAILABLE", "Repository list is unavailable", map[string]any{"reason": s.reposErr.Error()})
	}
	return append([]string{}, s.repos...), nil
}

// SearchIssues runs a duplicate search. Empty status and sort default to open
// issues by relevance.
func (s *Service) SearchIssues(ctx context.Context, term string, filters search.Filters) ([]search.Issue, error) {
	if filters.Status == "" {
		filters.Status = search.StatusOpen
	}
	if filters.Sort == "" {
		filters.Sort = search.SortRelevance
	}
	if !filters.Status.Valid() {
		return nil, validationError("status must be one of all, open, closed", map[string]any{"status": filters.Status})
	}
	if !filters.Sort.Valid() {
		return nil, validationError("sort must be one of relevance, date-created", map[string]any{"sort": filters.Sort})
	}
	return s.search.Search(ctx, search.Query{Text: strings.TrimSpace(term), Filters: filters})
}

// SyncIssues upserts issues reported by an external syncer, indexes them and
// refreshes the repository list.
func (s *Service) SyncIssues(ctx context.Context, issues []search.Issue) (int, error) {
	if len(issues) == 0 {
		return 0, nil
	}
	rows := make([]store.Issue, 0, len(issues))
	for i := range issues {
		issue, err := s.normalizeIssue(issues[i])
		if err != nil {
			return 0, validationError(err.Error(), map[string]any{"index": i})
		}
		issues[i] = issue
		rows = append(rows, toStoreIssue(issue))
	}
	if err := s.store.UpsertIssues(ctx, rows); err != nil {
		return 0, err
	}
	s.search.IndexIssues(issues)
	if err := s.refreshRepos(ctx); err != nil {
		log.Printf("sync: %v", err)
	}
	return len(rows), nil
}

func (s *Service) normalizeIssue(issue search.Issue) (search.Issue, error) {
	issue.Repo = strings.TrimSpace(issue.Repo)
	org, name, ok := strings.Cut(issue.Repo, "/")
	if !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return issue, fmt.Errorf("repo must look like org/name")
	}
	if issue.Number <= 0 {
		return issue, fmt.Errorf("number must be positive")
	}
	issue.Title = strings.TrimSpace(issue.Title)
	if issue.Title == "" {
		return issue, fmt.Errorf("title is required")
	}
	issue.State = strings.ToLower(strings.TrimSpace(issue.State))
	if issue.State != "open" && issue.State != "closed" {
		return issue, fmt.Errorf("state must be open or closed")
	}
	if issue.ID == "" {
		issue.ID = fmt.Sprintf("%s#%d", issue.Repo, issue.Number)
	}
	if issue.URL == "" {
		issue.URL = fmt.Sprintf("https://github.com/%s/issues/%d", issue.Repo, issue.Number)
	}
	now := s.now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}
	return issue, nil
}

func (s *Service) listSearchIssues(ctx context.Context) ([]search.Issue, error) {
	rows, err := s.store.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	issues := make([]search.Issue, len(rows))
	for i, row := range rows {
		issues[i] = fromStoreIssue(row)
	}
	return issues, nil
}

func toStoreIssue(issue search.Issue) store.Issue {
	return store.Issue{
		ID:        issue.ID,
		Repo:      issue.Repo,
		Number:    issue.Number,
		Title:     issue.Title,
		Body:      issue.Body,
		URL:       issue.URL,
		State:     issue.State,
		Author:    issue.Author,
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
	}
}

func fromStoreIssue(row store.Issue) search.Issue {
	return search.Issue{
		ID:        row.ID,
		Repo:      row.Repo,
		Number:    row.Number,
		Title:     row.Title,
		Body:      row.Body,
		URL:       row.URL,
		State:     row.State,
		Author:    row.Author,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
