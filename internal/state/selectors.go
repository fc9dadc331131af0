package state

import (
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/tasks"
)

func SelectActivePage(s State) ActivePage { return s.ActivePage }

func SelectActiveReportingStep(s State) ReportingStep { return s.ActiveReportingStep }

func SelectIssueDetails(s State) IssueDetails { return s.IssueDetails }

func SelectCompletedTasks(s State) []string { return s.CompletedTasks }

func SelectSearchParameters(s State) SearchParameters { return s.SearchParameters }

func SelectIssueSearch(s State) IssueSearch { return s.IssueSearch }

func SelectReportingConfig(s State) *reportingconfig.Config { return s.ReportingConfig.Config }

func SelectAvailableRepos(s State) []string { return s.AvailableRepos.Repos }

// SelectRepoAccepted reports whether repo may be used as a search filter: it
// must be in the loaded repository list, or look like "org/repo" while the
// list is unknown.
func SelectRepoAccepted(s State, repo string) bool { return referenceOf(s).acceptsRepo(repo) }

// SelectReferenceLoaded reports whether both reference loads have finished,
// successfully or not.
func SelectReferenceLoaded(s State) bool {
	done := func(status RequestStatus) bool {
		return status == RequestSucceeded || status == RequestFailed
	}
	return done(s.ReportingConfig.Status) && done(s.AvailableRepos.Status)
}

// SelectRelevantTaskIDs resolves the tasks for the selected feature and issue type.
func SelectRelevantTaskIDs(s State) []string {
	return tasks.RelevantTaskIDs(s.IssueDetails.FeatureID, s.IssueDetails.IssueType, s.ReportingConfig.Config)
}

// SelectTrackedState returns the URL-tracked slices as plain values keyed by
// TrackedKeys.
func SelectTrackedState(s State) map[string]any {
	var featureID any
	if s.IssueDetails.FeatureID != nil {
		featureID = *s.IssueDetails.FeatureID
	}
	return map[string]any{
		KeyActivePage:          string(s.ActivePage),
		KeyActiveReportingStep: string(s.ActiveReportingStep),
		KeyIssueDetails: map[string]any{
			"featureId":  featureID,
			"issueType":  string(s.IssueDetails.IssueType),
			"issueTitle": s.IssueDetails.IssueTitle,
		},
		KeyCompletedTasks: stringsToValues(s.CompletedTasks),
		KeySearchParameters: map[string]any{
			"searchTerm": s.SearchParameters.SearchTerm,
			"repos":      stringsToValues(s.SearchParameters.Repos),
			"status":     string(s.SearchParameters.Status),
			"sort":       string(s.SearchParameters.Sort),
		},
	}
}
