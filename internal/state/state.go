// Package state holds the assistant's application state: independent slices
// changed only by dispatching actions through a Store.
package state

import (
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
)

// ActivePage is the top-level page the assistant shows.
type ActivePage string

const (
	PageDuplicateSearch ActivePage = "duplicateSearch"
	PageReportingFlow   ActivePage = "reportingFlow"
)

// Valid reports whether p is a known page.
func (p ActivePage) Valid() bool {
	return p == PageDuplicateSearch || p == PageReportingFlow
}

// ReportingStep is the step of the reporting flow in focus.
type ReportingStep string

const (
	StepIssueType ReportingStep = "issueType"
	StepFeature   ReportingStep = "feature"
	StepNextSteps ReportingStep = "nextSteps"
)

// Valid reports whether s is a known step.
func (s ReportingStep) Valid() bool {
	switch s {
	case StepIssueType, StepFeature, StepNextSteps:
		return true
	default:
		return false
	}
}

// IssueDetails is what the reporter has told the assistant so far.
type IssueDetails struct {
	FeatureID  *string                   `json:"featureId"`
	IssueType  reportingconfig.IssueType `json:"issueType"`
	IssueTitle string                    `json:"issueTitle"`
}

// SearchParameters drive the duplicate search.
type SearchParameters struct {
	SearchTerm string        `json:"searchTerm"`
	Repos      []string      `json:"repos"`
	Status     search.Status `json:"status"`
	Sort       search.Sort   `json:"sort"`
}

// Filters returns the search filters carried by the parameters.
func (p SearchParameters) Filters() search.Filters {
	return search.Filters{Repos: append([]string(nil), p.Repos...), Status: p.Status, Sort: p.Sort}
}

// RequestStatus tracks an asynchronous load or search.
type RequestStatus string

const (
	RequestIdle      RequestStatus = "idle"
	RequestPending   RequestStatus = "pending"
	RequestSucceeded RequestStatus = "succeeded"
	RequestFailed    RequestStatus = "failed"
)

// IssueSearch tracks the latest duplicate search. Only completions carrying
// RequestID are applied.
type IssueSearch struct {
	RequestID string         `json:"requestId,omitempty"`
	Status    RequestStatus  `json:"status"`
	Term      string         `json:"term,omitempty"`
	Issues    []search.Issue `json:"issues"`
	Error     string         `json:"error,omitempty"`
}

// ReportingConfigState holds the loaded configuration. Config is nil until
// the load succeeds.
type ReportingConfigState struct {
	Status RequestStatus           `json:"status"`
	Config *reportingconfig.Config `json:"-"`
	Error  string                  `json:"error,omitempty"`
}

// AvailableReposState holds the repositories the duplicate search may target.
type AvailableReposState struct {
	Status RequestStatus `json:"status"`
	Repos  []string      `json:"repos"`
	Error  string        `json:"error,omitempty"`
}

// State is the aggregate of all slices.
type State struct {
	ActivePage          ActivePage           `json:"activePage"`
	ActiveReportingStep ReportingStep        `json:"activeReportingStep"`
	IssueDetails        IssueDetails         `json:"issueDetails"`
	CompletedTasks      []string             `json:"completedTasks"`
	SearchParameters    SearchParameters     `json:"searchParameters"`
	IssueSearch         IssueSearch          `json:"issueSearch"`
	ReportingConfig     ReportingConfigState `json:"reportingConfig"`
	AvailableRepos      AvailableReposState  `json:"availableRepos"`
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{
		ActivePage:          PageDuplicateSearch,
		ActiveReportingStep: StepIssueType,
		IssueDetails:        initialIssueDetails(),
		CompletedTasks:      []string{},
		SearchParameters:    initialSearchParameters(nil),
		IssueSearch:         IssueSearch{Status: RequestIdle, Issues: []search.Issue{}},
		ReportingConfig:     ReportingConfigState{Status: RequestIdle},
		AvailableRepos:      AvailableReposState{Status: RequestIdle, Repos: []string{}},
	}
}

func initialIssueDetails() IssueDetails {
	return IssueDetails{IssueType: reportingconfig.IssueTypeUnset}
}

// initialSearchParameters searches every available repository by default.
func initialSearchParameters(availableRepos []string) SearchParameters {
	return SearchParameters{
		Repos:  append([]string{}, availableRepos...),
		Status: search.StatusOpen,
		Sort:   search.SortRelevance,
	}
}
