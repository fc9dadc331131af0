package state

import (
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
)

// Action is a state transition request. The set of actions is closed: only
// types in this package implement it.
type Action interface {
	action()
}

type SetActivePage struct{ Page ActivePage }

type SetActiveReportingStep struct{ Step ReportingStep }

type SetIssueType struct{ IssueType reportingconfig.IssueType }

// SetFeature selects a feature; a nil FeatureID clears the selection.
type SetFeature struct{ FeatureID *string }

type SetIssueTitle struct{ Title string }

type AddCompletedTask struct{ TaskID string }

type RemoveCompletedTask struct{ TaskID string }

type SetSearchTerm struct{ Term string }

type SetRepos struct{ Repos []string }

type SetStatusFilter struct{ Status search.Status }

type SetSort struct{ Sort search.Sort }

type SearchStarted struct {
	RequestID string
	Term      string
}

type SearchSucceeded struct {
	RequestID string
	Issues    []search.Issue
}

type SearchFailed struct {
	RequestID string
	Message   string
}

type ConfigLoadStarted struct{}

type ConfigLoaded struct{ Config *reportingconfig.Config }

type ConfigLoadFailed struct{ Message string }

type ReposLoadStarted struct{}

type ReposLoaded struct{ Repos []string }

type ReposLoadFailed struct{ Message string }

// HistoryReplace carries state decoded from a URL. Every tracked slice
// validates its own key and falls back to defaults for anything malformed.
type HistoryReplace struct{ Values map[string]any }

// StartOver resets the reporting flow.
type StartOver struct{}

func (SetActivePage) action()          {}
func (SetActiveReportingStep) action() {}
func (SetIssueType) action()           {}
func (SetFeature) action()             {}
func (SetIssueTitle) action()          {}
func (AddCompletedTask) action()       {}
func (RemoveCompletedTask) action()    {}
func (SetSearchTerm) action()          {}
func (SetRepos) action()               {}
func (SetStatusFilter) action()        {}
func (SetSort) action()                {}
func (SearchStarted) action()          {}
func (SearchSucceeded) action()        {}
func (SearchFailed) action()           {}
func (ConfigLoadStarted) action()      {}
func (ConfigLoaded) action()           {}
func (ConfigLoadFailed) action()       {}
func (ReposLoadStarted) action()       {}
func (ReposLoaded) action()            {}
func (ReposLoadFailed) action()        {}
func (HistoryReplace) action()         {}
func (StartOver) action()              {}
