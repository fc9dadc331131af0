package tasks

import (
	"encoding/json"
	"reflect"
	"testing"

	"bugomattic/api/internal/reportingconfig"
)

func normalize(t *testing.T, raw string) *reportingconfig.Config {
	t.Helper()
	cfg, err := reportingconfig.Normalize(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return cfg
}

func ptr(s string) *string { return &s }

const sameTaskEverywhere = `{
	"Widgets": {
		"tasks": {"bug": [{"title": "Report it", "details": "Use the form", "link": {"type": "general", "href": "https://example.com/form"}}]},
		"featureGroups": {
			"Gears": {
				"tasks": {"bug": [{"title": "Report it", "details": "Use the form", "link": {"type": "general", "href": "https://example.com/form"}}]},
				"features": {
					"Cog": {"tasks": {"bug": [{"title": "Report it", "details": "Use the form", "link": {"type": "general", "href": "https://example.com/form"}}]}}
				}
			}
		}
	}
}`

func TestRelevantTaskIDsEmptyWithoutSelection(t *testing.T) {
	cfg := normalize(t, sameTaskEverywhere)

	tests := []struct {
		name      string
		featureID *string
		issueType reportingconfig.IssueType
		cfg       *reportingconfig.Config
	}{
		{name: "no feature", featureID: nil, issueType: reportingconfig.IssueTypeBug, cfg: cfg},
		{name: "unset type", featureID: ptr("Widgets__Gears__Cog"), issueType: reportingconfig.IssueTypeUnset, cfg: cfg},
		{name: "unknown type", featureID: ptr("Widgets__Gears__Cog"), issueType: "question", cfg: cfg},
		{name: "unknown feature", featureID: ptr("Widgets__Nope"), issueType: reportingconfig.IssueTypeBug, cfg: cfg},
		{name: "no config", featureID: ptr("Widgets__Gears__Cog"), issueType: reportingconfig.IssueTypeBug, cfg: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelevantTaskIDs(tt.featureID, tt.issueType, tt.cfg)
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", got)
			}
		})
	}
}

func TestRelevantTaskIDsFeatureLevelWins(t *testing.T) {
	cfg := normalize(t, sameTaskEverywhere)
	got := RelevantTaskIDs(ptr("Widgets__Gears__Cog"), reportingconfig.IssueTypeBug, cfg)
	want := []string{"Widgets__Gears__Cog__bug__0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantTaskIDs() = %v, want %v", got, want)
	}
}

func TestRelevantTaskIDsGitHubRepositoryCollision(t *testing.T) {
	cfg := normalize(t, `{
		"Widgets": {
			"tasks": {"bug": [{"title": "File a product bug", "link": {"type": "github", "repository": "Acme/Widgets", "labels": ["product"], "template": "product.md"}}]},
			"features": {
				"Sprocket": {"tasks": {"bug": [{"title": "File a sprocket bug", "link": {"type": "github", "repository": "acme/widgets", "labels": ["sprocket"]}}]}}
			}
		}
	}`)
	got := RelevantTaskIDs(ptr("Widgets__Sprocket"), reportingconfig.IssueTypeBug, cfg)
	want := []string{"Widgets__Sprocket__bug__0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantTaskIDs() = %v, want %v", got, want)
	}
}

func TestRelevantTaskIDsGeneralLinksDedupeOnlyStructurally(t *testing.T) {
	cfg := normalize(t, `{
		"Widgets": {
			"tasks": {"bug": [{"title": "Ask in chat", "link": {"href": "https://chat.example.com/widgets"}}]},
			"features": {
				"Sprocket": {"tasks": {"bug": [{"title": "Ask in chat", "link": {"href": "https://chat.example.com/sprocket"}}]}}
			}
		}
	}`)
	got := RelevantTaskIDs(ptr("Widgets__Sprocket"), reportingconfig.IssueTypeBug, cfg)
	want := []string{"Widgets__Sprocket__bug__0", "Widgets__bug__0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantTaskIDs() = %v, want %v", got, want)
	}
}

func TestRelevantTaskIDsOrdering(t *testing.T) {
	cfg := normalize(t, `{
		"Widgets": {
			"tasks": {"urgent": [{"title": "Page the product on-call"}]},
			"featureGroups": {
				"Gears": {
					"tasks": {"urgent": [{"title": "Page the gears team"}]},
					"features": {
						"Cog": {"tasks": {"urgent": [{"title": "Page the cog owner"}, {"title": "Open an incident"}]}}
					}
				}
			}
		}
	}`)
	got := RelevantTaskIDs(ptr("Widgets__Gears__Cog"), reportingconfig.IssueTypeUrgent, cfg)
	want := []string{
		"Widgets__Gears__Cog__urgent__0",
		"Widgets__Gears__Cog__urgent__1",
		"Widgets__Gears__urgent__0",
		"Widgets__urgent__0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantTaskIDs() = %v, want %v", got, want)
	}

	if got := RelevantTaskIDs(ptr("Widgets__Gears__Cog"), reportingconfig.IssueTypeBug, cfg); len(got) != 0 {
		t.Fatalf("expected no bug tasks, got %v", got)
	}
}

func TestRelevantTaskIDsDedupesWithinLevel(t *testing.T) {
	cfg := normalize(t, `{
		"Widgets": {
			"features": {
				"Sprocket": {"tasks": {"featureRequest": [
					{"title": "Vote", "link": {"type": "github", "repository": "acme/ideas", "labels": ["a"]}},
					{"title": "Vote again", "link": {"type": "github", "repository": "acme/ideas", "labels": ["b"]}},
					{"title": "Vote"}
				]}}
			}
		}
	}`)
	got := RelevantTaskIDs(ptr("Widgets__Sprocket"), reportingconfig.IssueTypeFeatureRequest, cfg)
	want := []string{"Widgets__Sprocket__featureRequest__0", "Widgets__Sprocket__featureRequest__2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RelevantTaskIDs() = %v, want %v", got, want)
	}
}

func TestFingerprintIgnoresIdentityAndNilSlices(t *testing.T) {
	a := reportingconfig.Task{ID: "a", Title: "T", Link: &reportingconfig.Link{Type: reportingconfig.LinkGitHub, Repository: "acme/x"}}
	b := reportingconfig.Task{ID: "b", ParentID: "other", Title: "T", Link: &reportingconfig.Link{Type: reportingconfig.LinkGitHub, Repository: "acme/x", Labels: []string{}}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("expected equal fingerprints")
	}
	b.Details = "more"
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("expected different fingerprints")
	}
}
