package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"bugomattic/api/internal/assistant"
	"bugomattic/api/internal/config"
	"bugomattic/api/internal/history"
	"bugomattic/api/internal/search"
	"bugomattic/api/internal/session"
	"bugomattic/api/internal/state"
	"bugomattic/api/internal/util"
)

// localAPI serves a session assistant from the service's cached reference
// data and search backends.
type localAPI struct {
	service *Service
}

func (l localAPI) LoadReportingConfig(context.Context) (json.RawMessage, error) {
	return l.service.ReportingConfig()
}

func (l localAPI) LoadAvailableRepoFilters(context.Context) ([]string, error) {
	return l.service.AvailableRepos()
}

func (l localAPI) SearchIssues(ctx context.Context, term string, filters search.Filters) ([]search.Issue, error) {
	return l.service.SearchIssues(ctx, term, filters)
}

// SessionView is what the HTTP layer returns for a session.
type SessionView struct {
	SessionID       string      `json:"sessionId"`
	Search          string      `json:"search"`
	State           state.State `json:"state"`
	RelevantTaskIDs []string    `json:"relevantTaskIds"`
	ReferenceLoaded bool        `json:"referenceLoaded"`
	CanGoBack       bool        `json:"canGoBack"`
	CanGoForward    bool        `json:"canGoForward"`
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Service) lockSession(id string) func() {
	s.lockMu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sessionLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.lockMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.lockMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.lockMu.Unlock()
	}
}

// CreateSession starts a session at search, which may be empty or carry a
// shared link's query string.
func (s *Service) CreateSession(ctx context.Context, search string) (SessionView, error) {
	id := util.NewID("ses")
	now := s.now().UTC()
	h := session.History{Entries: []string{search}, CreatedAt: now}
	return s.runSession(ctx, id, h, func(*assistant.Assistant, *history.MemoryBrowser) error { return nil })
}

func (s *Service) GetSession(ctx context.Context, id string) (SessionView, error) {
	return s.withSession(ctx, id, func(*assistant.Assistant, *history.MemoryBrowser) error { return nil })
}

// ApplyAction performs one user operation on the session.
func (s *Service) ApplyAction(ctx context.Context, id string, input ActionInput) (SessionView, error) {
	action, err := parseAction(input)
	if err != nil {
		return SessionView{}, err
	}
	return s.withSession(ctx, id, func(a *assistant.Assistant, _ *history.MemoryBrowser) error {
		return action(ctx, a)
	})
}

// Back moves the session one entry back. At the first entry it is a no-op.
func (s *Service) Back(ctx context.Context, id string) (SessionView, error) {
	return s.withSession(ctx, id, func(_ *assistant.Assistant, browser *history.MemoryBrowser) error {
		browser.Back()
		return nil
	})
}

// Forward moves the session one entry forward. At the last entry it is a no-op.
func (s *Service) Forward(ctx context.Context, id string) (SessionView, error) {
	return s.withSession(ctx, id, func(_ *assistant.Assistant, browser *history.MemoryBrowser) error {
		browser.Forward()
		return nil
	})
}

// Navigate loads search as a new entry, as if pasted into the address bar.
func (s *Service) Navigate(ctx context.Context, id, search string) (SessionView, error) {
	return s.withSession(ctx, id, func(a *assistant.Assistant, _ *history.MemoryBrowser) error {
		a.Navigate(search)
		return nil
	})
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	unlock := s.lockSession(id)
	defer unlock()
	if _, err := s.sessions.Load(ctx, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

func (s *Service) withSession(ctx context.Context, id string, fn func(*assistant.Assistant, *history.MemoryBrowser) error) (SessionView, error) {
	unlock := s.lockSession(id)
	defer unlock()
	h, err := s.sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return SessionView{}, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", map[string]any{"sessionId": id})
		}
		return SessionView{}, err
	}
	return s.runSession(ctx, id, h, fn)
}

// runSession rebuilds the assistant from h, replays its current entry, runs
// fn and persists the resulting history.
func (s *Service) runSession(ctx context.Context, id string, h session.History, fn func(*assistant.Assistant, *history.MemoryBrowser) error) (SessionView, error) {
	browser := history.RestoreMemoryBrowser(h.Entries, h.Index)
	a := assistant.New(localAPI{service: s}, state.NewStore(state.Initial()), browser, nil).WithErrorLogger(s.errors)
	a.Start(ctx)
	defer a.Stop()

	if err := fn(a, browser); err != nil {
		return SessionView{}, err
	}

	h.Entries, h.Index = trimHistory(browser.Entries(), browser.Index(), s.historyLimit())
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now().UTC()
	}
	h.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, id, h); err != nil {
		return SessionView{}, err
	}

	snapshot := a.Snapshot()
	return SessionView{
		SessionID:       id,
		Search:          browser.Search(),
		State:           snapshot.State,
		RelevantTaskIDs: snapshot.RelevantTaskIDs,
		ReferenceLoaded: snapshot.ReferenceLoaded,
		CanGoBack:       browser.CanGoBack(),
		CanGoForward:    browser.CanGoForward(),
	}, nil
}

func (s *Service) historyLimit() int {
	if s.cfg.SessionHistoryLimit > 0 {
		return s.cfg.SessionHistoryLimit
	}
	return config.DefaultSessionHistoryLimit
}

// trimHistory keeps at most limit entries, dropping the oldest and shifting
// index so it still points at the same entry.
func trimHistory(entries []string, index, limit int) ([]string, int) {
	if len(entries) <= limit {
		return entries, index
	}
	dropped := len(entries) - limit
	return entries[dropped:], max(0, index-dropped)
}
