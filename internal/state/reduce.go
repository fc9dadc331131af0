package state

import (
	"slices"

	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
)

// Keys of the state mirrored into the URL.
const (
	KeyActivePage          = "activePage"
	KeyActiveReportingStep = "activeReportingStep"
	KeyIssueDetails        = "issueDetails"
	KeyCompletedTasks      = "completedTasks"
	KeySearchParameters    = "searchParameters"
)

// TrackedKeys is the allow-list of state keys that round-trip through the URL.
var TrackedKeys = []string{
	KeyActivePage,
	KeyActiveReportingStep,
	KeyIssueDetails,
	KeyCompletedTasks,
	KeySearchParameters,
}

// reference is the read-only data slices validate URL values against.
type reference struct {
	config      *reportingconfig.Config
	reposLoaded bool
	repos       []string
}

func referenceOf(s State) reference {
	return reference{
		config:      s.ReportingConfig.Config,
		reposLoaded: s.AvailableRepos.Status == RequestSucceeded,
		repos:       s.AvailableRepos.Repos,
	}
}

// Reduce applies a to s and returns the next state. It never mutates s.
func Reduce(s State, a Action) State {
	ref := referenceOf(s)
	return State{
		ActivePage:          reduceActivePage(s.ActivePage, a),
		ActiveReportingStep: reduceReportingStep(s.ActiveReportingStep, a),
		IssueDetails:        reduceIssueDetails(s.IssueDetails, a, ref),
		CompletedTasks:      reduceCompletedTasks(s.CompletedTasks, a, ref),
		SearchParameters:    reduceSearchParameters(s.SearchParameters, a, ref),
		IssueSearch:         reduceIssueSearch(s.IssueSearch, a),
		ReportingConfig:     reduceReportingConfig(s.ReportingConfig, a),
		AvailableRepos:      reduceAvailableRepos(s.AvailableRepos, a),
	}
}

func reduceActivePage(page ActivePage, a Action) ActivePage {
	switch a := a.(type) {
	case SetActivePage:
		if a.Page.Valid() {
			return a.Page
		}
	case StartOver:
		return PageDuplicateSearch
	case HistoryReplace:
		if value, ok := asString(a.Values[KeyActivePage]); ok && ActivePage(value).Valid() {
			return ActivePage(value)
		}
		return PageDuplicateSearch
	}
	return page
}

func reduceReportingStep(step ReportingStep, a Action) ReportingStep {
	switch a := a.(type) {
	case SetActiveReportingStep:
		if a.Step.Valid() {
			return a.Step
		}
	case StartOver:
		return StepIssueType
	case HistoryReplace:
		if value, ok := asString(a.Values[KeyActiveReportingStep]); ok && ReportingStep(value).Valid() {
			return ReportingStep(value)
		}
		return StepIssueType
	}
	return step
}

func reduceIssueDetails(details IssueDetails, a Action, ref reference) IssueDetails {
	switch a := a.(type) {
	case SetIssueType:
		if a.IssueType.Valid() {
			details.IssueType = a.IssueType
		}
	case SetFeature:
		details.FeatureID = cloneString(a.FeatureID)
	case SetIssueTitle:
		details.IssueTitle = a.Title
	case StartOver:
		return initialIssueDetails()
	case HistoryReplace:
		return issueDetailsFromHistory(a.Values[KeyIssueDetails], ref)
	}
	return details
}

func issueDetailsFromHistory(raw any, ref reference) IssueDetails {
	details := initialIssueDetails()
	fields, ok := raw.(map[string]any)
	if !ok {
		return details
	}
	if id, ok := asString(fields["featureId"]); ok && ref.config.HasFeature(id) {
		details.FeatureID = &id
	}
	if value, ok := asString(fields["issueType"]); ok && reportingconfig.IssueType(value).Valid() {
		details.IssueType = reportingconfig.IssueType(value)
	}
	if title, ok := asString(fields["issueTitle"]); ok {
		details.IssueTitle = title
	}
	return details
}

func reduceCompletedTasks(completed []string, a Action, ref reference) []string {
	switch a := a.(type) {
	case AddCompletedTask:
		if a.TaskID == "" || slices.Contains(completed, a.TaskID) {
			return completed
		}
		return append(slices.Clone(completed), a.TaskID)
	case RemoveCompletedTask:
		index := slices.Index(completed, a.TaskID)
		if index < 0 {
			return completed
		}
		return slices.Delete(slices.Clone(completed), index, index+1)
	case StartOver:
		return []string{}
	case HistoryReplace:
		return completedTasksFromHistory(a.Values[KeyCompletedTasks], ref)
	}
	return completed
}

func completedTasksFromHistory(raw any, ref reference) []string {
	completed := []string{}
	items, ok := raw.([]any)
	if !ok {
		return completed
	}
	for _, item := range items {
		id, ok := asString(item)
		if !ok || !ref.config.HasTask(id) || slices.Contains(completed, id) {
			continue
		}
		completed = append(completed, id)
	}
	return completed
}

func reduceSearchParameters(params SearchParameters, a Action, ref reference) SearchParameters {
	switch a := a.(type) {
	case SetSearchTerm:
		params.SearchTerm = a.Term
	case SetRepos:
		params.Repos = append([]string{}, a.Repos...)
	case SetStatusFilter:
		if a.Status.Valid() {
			params.Status = a.Status
		}
	case SetSort:
		if a.Sort.Valid() {
			params.Sort = a.Sort
		}
	case ReposLoaded:
		params.Repos = append([]string{}, a.Repos...)
	case HistoryReplace:
		return searchParametersFromHistory(a.Values[KeySearchParameters], ref)
	}
	return params
}

func searchParametersFromHistory(raw any, ref reference) SearchParameters {
	params := initialSearchParameters(ref.repos)
	fields, ok := raw.(map[string]any)
	if !ok {
		return params
	}
	if term, ok := asString(fields["searchTerm"]); ok {
		params.SearchTerm = term
	}
	if items, ok := fields["repos"].([]any); ok {
		repos := []string{}
		for _, item := range items {
			repo, ok := asString(item)
			if !ok || !ref.acceptsRepo(repo) || slices.Contains(repos, repo) {
				continue
			}
			repos = append(repos, repo)
		}
		params.Repos = repos
	}
	if value, ok := asString(fields["status"]); ok && search.Status(value).Valid() {
		params.Status = search.Status(value)
	}
	if value, ok := asString(fields["sort"]); ok && search.Sort(value).Valid() {
		params.Sort = search.Sort(value)
	}
	return params
}

// acceptsRepo checks a repo against the loaded list. Until the list is
// known, any "org/repo" shaped value is kept.
func (r reference) acceptsRepo(repo string) bool {
	if r.reposLoaded {
		return slices.Contains(r.repos, repo)
	}
	org, name, ok := cutRepo(repo)
	return ok && org != "" && name != ""
}

func reduceIssueSearch(current IssueSearch, a Action) IssueSearch {
	switch a := a.(type) {
	case SearchStarted:
		return IssueSearch{RequestID: a.RequestID, Status: RequestPending, Term: a.Term, Issues: []search.Issue{}}
	case SearchSucceeded:
		if a.RequestID != current.RequestID {
			return current
		}
		current.Status = RequestSucceeded
		current.Issues = append([]search.Issue{}, a.Issues...)
		current.Error = ""
		return current
	case SearchFailed:
		if a.RequestID != current.RequestID {
			return current
		}
		current.Status = RequestFailed
		current.Issues = []search.Issue{}
		current.Error = a.Message
		return current
	}
	return current
}

func reduceReportingConfig(current ReportingConfigState, a Action) ReportingConfigState {
	switch a := a.(type) {
	case ConfigLoadStarted:
		return ReportingConfigState{Status: RequestPending, Config: current.Config}
	case ConfigLoaded:
		return ReportingConfigState{Status: RequestSucceeded, Config: a.Config}
	case ConfigLoadFailed:
		return ReportingConfigState{Status: RequestFailed, Error: a.Message}
	}
	return current
}

func reduceAvailableRepos(current AvailableReposState, a Action) AvailableReposState {
	switch a := a.(type) {
	case ReposLoadStarted:
		return AvailableReposState{Status: RequestPending, Repos: current.Repos}
	case ReposLoaded:
		return AvailableReposState{Status: RequestSucceeded, Repos: append([]string{}, a.Repos...)}
	case ReposLoadFailed:
		return AvailableReposState{Status: RequestFailed, Repos: []string{}, Error: a.Message}
	}
	return current
}
