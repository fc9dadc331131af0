package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bugomattic/api/internal/assistant"
	"bugomattic/api/internal/reportingconfig"
	"bugomattic/api/internal/search"
	"bugomattic/api/internal/state"
)

// ActionInput is a user operation as posted to a session.
type ActionInput struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type sessionAction func(ctx context.Context, a *assistant.Assistant) error

type pagePayload struct {
	Page state.ActivePage `json:"page"`
}

type stepPayload struct {
	Step state.ReportingStep `json:"step"`
}

type issueTypePayload struct {
	IssueType reportingconfig.IssueType `json:"issueType"`
}

type featurePayload struct {
	FeatureID *string `json:"featureId"`
}

type titlePayload struct {
	Title string `json:"title"`
}

type taskPayload struct {
	TaskID string `json:"taskId"`
}

type filtersPayload struct {
	Repos  []string      `json:"repos"`
	Status search.Status `json:"status"`
	Sort   search.Sort   `json:"sort"`
}

type searchPayload struct {
	Term string `json:"term"`
}

func parseAction(input ActionInput) (sessionAction, error) {
	switch input.Type {
	case "goToPage":
		var p pagePayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		if !p.Page.Valid() {
			return nil, validationError("page must be duplicateSearch or reportingFlow", map[string]any{"page": p.Page})
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			a.GoToPage(p.Page)
			return nil
		}, nil
	case "goToStep":
		var p stepPayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		if !p.Step.Valid() {
			return nil, validationError("step must be issueType, feature or nextSteps", map[string]any{"step": p.Step})
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			a.GoToStep(p.Step)
			return nil
		}, nil
	case "selectIssueType":
		var p issueTypePayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		if !p.IssueType.Valid() {
			return nil, validationError("unknown issue type", map[string]any{"issueType": p.IssueType})
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			a.SelectIssueType(p.IssueType)
			return nil
		}, nil
	case "selectFeature":
		var p featurePayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			if p.FeatureID != nil {
				cfg := state.SelectReportingConfig(a.State())
				if !cfg.HasFeature(*p.FeatureID) {
					return validationError("unknown feature", map[string]any{"featureId": *p.FeatureID})
				}
			}
			a.SelectFeature(p.FeatureID)
			return nil
		}, nil
	case "setIssueTitle":
		var p titlePayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			a.SetIssueTitle(p.Title)
			return nil
		}, nil
	case "completeTask", "uncompleteTask":
		var p taskPayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.TaskID) == "" {
			return nil, validationError("taskId is required", nil)
		}
		if input.Type == "uncompleteTask" {
			return func(_ context.Context, a *assistant.Assistant) error {
				a.UncompleteTask(p.TaskID)
				return nil
			}, nil
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			if !state.SelectReportingConfig(a.State()).HasTask(p.TaskID) {
				return validationError("unknown task", map[string]any{"taskId": p.TaskID})
			}
			a.CompleteTask(p.TaskID)
			return nil
		}, nil
	case "setSearchFilters":
		var p filtersPayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		if p.Status != "" && !p.Status.Valid() {
			return nil, validationError("status must be one of all, open, closed", map[string]any{"status": p.Status})
		}
		if p.Sort != "" && !p.Sort.Valid() {
			return nil, validationError("sort must be one of relevance, date-created", map[string]any{"sort": p.Sort})
		}
		return func(_ context.Context, a *assistant.Assistant) error {
			current := a.State()
			for _, repo := range p.Repos {
				if !state.SelectRepoAccepted(current, repo) {
					return validationError("unknown repo", map[string]any{"repo": repo})
				}
			}
			a.SetSearchFilters(p.Repos, p.Status, p.Sort)
			return nil
		}, nil
	case "search":
		var p searchPayload
		if err := decodePayload(input, &p); err != nil {
			return nil, err
		}
		return func(ctx context.Context, a *assistant.Assistant) error {
			a.Search(ctx, p.Term)
			return nil
		}, nil
	case "startOver":
		return func(_ context.Context, a *assistant.Assistant) error {
			a.StartOver()
			return nil
		}, nil
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "UNKNOWN_ACTION", "Unknown action type", map[string]any{"type": input.Type})
	}
}

func decodePayload(input ActionInput, dst any) error {
	if len(input.Payload) == 0 || string(input.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(input.Payload, dst); err != nil {
		return validationError("invalid payload", map[string]any{"type": input.Type, "reason": err.Error()})
	}
	return nil
}
