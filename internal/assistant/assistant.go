// Package assistant orchestrates the state store, the remote API and the
// browser history. Every user operation dispatches its mutation first and
// then syncs the URL as a separate step.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bugomattic/api/internal/history"
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
	"bugomattic/api/internal/state"
)

// API is the remote contract the assistant loads reference data and search
// results from.
type API interface {
	LoadReportingConfig(ctx context.Context) (json.RawMessage, error)
	LoadAvailableRepoFilters(ctx context.Context) ([]string, error)
	SearchIssues(ctx context.Context, term string, filters search.Filters) ([]search.Issue, error)
}

type Assistant struct {
	api     API
	store   *state.Store
	browser history.Browser
	history *history.Controller
	errors  *ErrorLogger
}

// New wires an assistant. A nil logger logs through log.Default().
func New(api API, store *state.Store, browser history.Browser, logger *log.Logger) *Assistant {
	return &Assistant{
		api:     api,
		store:   store,
		browser: browser,
		history: history.New(store, browser),
		errors:  NewErrorLogger(logger),
	}
}

// WithErrorLogger shares l between assistants so a failure common to all of
// them is logged once per process.
func (a *Assistant) WithErrorLogger(l *ErrorLogger) *Assistant {
	if l != nil {
		a.errors = l
	}
	return a
}

func (a *Assistant) Store() *state.Store { return a.store }

func (a *Assistant) State() state.State { return a.store.State() }

// Start loads the reporting config and the repo filters concurrently, waits
// for both to settle, then replays the current URL. A failed load becomes a
// failed state for that subsystem and does not block the other.
func (a *Assistant) Start(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		a.loadReportingConfig(ctx)
		return nil
	})
	g.Go(func() error {
		a.loadAvailableRepos(ctx)
		return nil
	})
	_ = g.Wait()

	a.history.Start()
}

// Stop detaches the assistant from browser navigation.
func (a *Assistant) Stop() {
	a.history.Stop()
}

func (a *Assistant) loadReportingConfig(ctx context.Context) {
	a.store.Dispatch(state.ConfigLoadStarted{})
	raw, err := a.api.LoadReportingConfig(ctx)
	if err != nil {
		err = fmt.Errorf("load reporting config: %w", err)
		a.errors.Log(err)
		a.store.Dispatch(state.ConfigLoadFailed{Message: err.Error()})
		return
	}
	cfg, err := reportingconfig.Normalize(raw)
	if err != nil {
		a.errors.Log(err)
		a.store.Dispatch(state.ConfigLoadFailed{Message: err.Error()})
		return
	}
	a.store.Dispatch(state.ConfigLoaded{Config: cfg})
}

func (a *Assistant) loadAvailableRepos(ctx context.Context) {
	a.store.Dispatch(state.ReposLoadStarted{})
	repos, err := a.api.LoadAvailableRepoFilters(ctx)
	if err != nil {
		err = fmt.Errorf("load repo filters: %w", err)
		a.errors.Log(err)
		a.store.Dispatch(state.ReposLoadFailed{Message: err.Error()})
		return
	}
	a.store.Dispatch(state.ReposLoaded{Repos: repos})
}

// Search records term and runs a duplicate search with the current filters.
// Only the most recently issued search may update the results; the returned
// request ID identifies this one.
func (a *Assistant) Search(ctx context.Context, term string) string {
	a.store.Dispatch(state.SetSearchTerm{Term: term})
	a.history.UpdateHistoryWithState()

	requestID := uuid.NewString()
	filters := state.SelectSearchParameters(a.store.State()).Filters()
	a.store.Dispatch(state.SearchStarted{RequestID: requestID, Term: term})

	issues, err := a.api.SearchIssues(ctx, term, filters)
	if err != nil {
		a.store.Dispatch(state.SearchFailed{RequestID: requestID, Message: fmt.Sprintf("search issues: %v", err)})
		return requestID
	}
	a.store.Dispatch(state.SearchSucceeded{RequestID: requestID, Issues: issues})
	return requestID
}

// SetSearchFilters updates the repo, status and sort filters. Nil repos
// leave the repo filter unchanged; empty status or sort values are ignored.
func (a *Assistant) SetSearchFilters(repos []string, status search.Status, sort search.Sort) {
	if repos != nil {
		a.store.Dispatch(state.SetRepos{Repos: repos})
	}
	if status != "" {
		a.store.Dispatch(state.SetStatusFilter{Status: status})
	}
	if sort != "" {
		a.store.Dispatch(state.SetSort{Sort: sort})
	}
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) SelectIssueType(issueType reportingconfig.IssueType) {
	a.store.Dispatch(state.SetIssueType{IssueType: issueType})
	a.history.UpdateHistoryWithState()
}

// SelectFeature sets the selected feature. A nil ID clears it.
func (a *Assistant) SelectFeature(featureID *string) {
	a.store.Dispatch(state.SetFeature{FeatureID: featureID})
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) SetIssueTitle(title string) {
	a.store.Dispatch(state.SetIssueTitle{Title: title})
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) GoToStep(step state.ReportingStep) {
	a.store.Dispatch(state.SetActiveReportingStep{Step: step})
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) GoToPage(page state.ActivePage) {
	a.store.Dispatch(state.SetActivePage{Page: page})
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) CompleteTask(taskID string) {
	a.store.Dispatch(state.AddCompletedTask{TaskID: taskID})
	a.history.UpdateHistoryWithState()
}

func (a *Assistant) UncompleteTask(taskID string) {
	a.store.Dispatch(state.RemoveCompletedTask{TaskID: taskID})
	a.history.UpdateHistoryWithState()
}

// StartOver resets the reporting flow and returns to duplicate search.
func (a *Assistant) StartOver() {
	a.store.Dispatch(state.StartOver{})
	a.history.UpdateHistoryWithState()
}

// Navigate opens search as if typed into the address bar. It reports false
// when the browser cannot load arbitrary entries.
func (a *Assistant) Navigate(search string) bool {
	loader, ok := a.browser.(interface{ Load(search string) })
	if !ok {
		return false
	}
	loader.Load(search)
	return true
}

// Snapshot is a read-only view of the assistant for callers outside the core.
type Snapshot struct {
	State           state.State `json:"state"`
	RelevantTaskIDs []string    `json:"relevantTaskIds"`
	ReferenceLoaded bool        `json:"referenceLoaded"`
}

func (a *Assistant) Snapshot() Snapshot {
	s := a.store.State()
	return Snapshot{
		State:           s,
		RelevantTaskIDs: state.SelectRelevantTaskIDs(s),
		ReferenceLoaded: state.SelectReferenceLoaded(s),
	}
}
