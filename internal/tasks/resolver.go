// Package tasks resolves which reporting tasks apply to a selected feature and
// issue type.
package tasks

import (
	"encoding/json"
	"strings"

	"golang.org/x/crypto/blake2b"

	"bugomattic/api/internal/reportingconfig"
)

// RelevantTaskIDs collects the tasks for issueType from the feature, its
// feature group (if any) and its product, then drops duplicates. Earlier
// levels win: a task is dropped when an already admitted task has the same
// title, details and link, or when both are GitHub links into the same
// repository. Without a feature or issue type the result is empty.
func RelevantTaskIDs(featureID *string, issueType reportingconfig.IssueType, cfg *reportingconfig.Config) []string {
	result := []string{}
	if cfg == nil || featureID == nil || !issueType.HasTasks() {
		return result
	}
	feature, ok := cfg.Features[*featureID]
	if !ok {
		return result
	}

	levels := [][]string{feature.TaskMapping.For(issueType)}
	productID := feature.ParentID
	if feature.ParentType == reportingconfig.ParentFeatureGroup {
		productID = ""
		if group, ok := cfg.FeatureGroups[feature.ParentID]; ok {
			levels = append(levels, group.TaskMapping.For(issueType))
			productID = group.ProductID
		}
	}
	if product, ok := cfg.Products[productID]; ok {
		levels = append(levels, product.TaskMapping.For(issueType))
	}

	seen := newDedupe()
	for _, level := range levels {
		for _, id := range level {
			task, ok := cfg.Tasks[id]
			if !ok {
				continue
			}
			if seen.admit(task) {
				result = append(result, id)
			}
		}
	}
	return result
}

type dedupe struct {
	fingerprints map[[blake2b.Size256]byte]struct{}
	repositories map[string]struct{}
}

func newDedupe() *dedupe {
	return &dedupe{
		fingerprints: map[[blake2b.Size256]byte]struct{}{},
		repositories: map[string]struct{}{},
	}
}

func (d *dedupe) admit(task reportingconfig.Task) bool {
	fingerprint := Fingerprint(task)
	if _, dup := d.fingerprints[fingerprint]; dup {
		return false
	}
	repo, isGitHub := task.Link.GitHubRepository()
	repoKey := strings.ToLower(strings.TrimSpace(repo))
	if isGitHub {
		if _, dup := d.repositories[repoKey]; dup {
			return false
		}
	}
	d.fingerprints[fingerprint] = struct{}{}
	if isGitHub {
		d.repositories[repoKey] = struct{}{}
	}
	return true
}

// canonicalTask fixes field order so equal tasks always encode identically.
type canonicalTask struct {
	Title   string         `json:"title"`
	Details string         `json:"details"`
	Link    *canonicalLink `json:"link"`
}

type canonicalLink struct {
	Type       string   `json:"type"`
	Repository string   `json:"repository"`
	Template   string   `json:"template"`
	Labels     []string `json:"labels"`
	Projects   []string `json:"projects"`
	Href       string   `json:"href"`
}

// Fingerprint hashes the title, details and link of a task. IDs and parents
// are not part of the fingerprint.
func Fingerprint(task reportingconfig.Task) [blake2b.Size256]byte {
	canonical := canonicalTask{Title: task.Title, Details: task.Details}
	if task.Link != nil {
		canonical.Link = &canonicalLink{
			Type:       string(task.Link.Type),
			Repository: task.Link.Repository,
			Template:   task.Link.Template,
			Labels:     nonNilStrings(task.Link.Labels),
			Projects:   nonNilStrings(task.Link.Projects),
			Href:       task.Link.Href,
		}
	}
	// Marshalling plain strings and slices cannot fail.
	encoded, _ := json.Marshal(canonical)
	return blake2b.Sum256(encoded)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
