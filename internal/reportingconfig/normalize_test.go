package reportingconfig

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const widgetsConfig = `{
	"Widgets": {
		"features": {
			"Sprocket": {
				"tasks": {
					"bug": [{"title": "File it"}],
					"featureRequest": [],
					"urgent": []
				}
			}
		}
	}
}`

const nestedConfig = `{
	"Widgets": {
		"description": "All widgets",
		"tasks": {
			"bug": [{"title": "Product bug", "link": {"type": "github", "repository": "acme/widgets", "labels": ["bug"]}}]
		},
		"featureGroups": {
			"Gears": {
				"tasks": {"bug": [{"title": "Group bug", "details": "Check gear docs"}]},
				"features": {
					"Cog": {
						"keywords": ["tooth", "spin"],
						"tasks": {"bug": [{"title": "Cog bug"}, {"title": "Second cog bug", "link": {"href": "https://example.com"}}]}
					},
					"Axle": {}
				}
			}
		},
		"features": {
			"Sprocket": {"description": "Sprockets"}
		}
	},
	"Gadgets": {}
}`

func TestNormalizeConcreteExample(t *testing.T) {
	cfg, err := Normalize(json.RawMessage(widgetsConfig))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	product, ok := cfg.Products["Widgets"]
	if !ok {
		t.Fatalf("expected product Widgets, got %v", cfg.ProductIDs)
	}
	if !reflect.DeepEqual(product.FeatureIDs, []string{"Widgets__Sprocket"}) {
		t.Fatalf("product feature ids = %v", product.FeatureIDs)
	}

	feature, ok := cfg.Features["Widgets__Sprocket"]
	if !ok {
		t.Fatalf("expected feature Widgets__Sprocket, got %v", cfg.FeatureIDs)
	}
	if feature.ParentType != ParentProduct || feature.ParentID != "Widgets" {
		t.Fatalf("feature parent = %s/%s", feature.ParentType, feature.ParentID)
	}
	bugTasks := feature.TaskMapping.For(IssueTypeBug)
	if len(bugTasks) != 1 {
		t.Fatalf("expected one bug task, got %v", bugTasks)
	}
	if len(cfg.Tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(cfg.Tasks))
	}
	task := cfg.Tasks[bugTasks[0]]
	if task.Title != "File it" || task.ParentType != ParentFeature || task.ParentID != "Widgets__Sprocket" {
		t.Fatalf("unexpected task %+v", task)
	}
	if got := feature.TaskMapping.For(IssueTypeFeatureRequest); got == nil || len(got) != 0 {
		t.Fatalf("expected empty featureRequest mapping, got %#v", got)
	}
}

func TestNormalizeNestedHierarchy(t *testing.T) {
	cfg, err := Normalize(json.RawMessage(nestedConfig))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.ProductIDs, []string{"Widgets", "Gadgets"}) {
		t.Fatalf("product order = %v", cfg.ProductIDs)
	}
	if !reflect.DeepEqual(cfg.FeatureIDs, []string{"Widgets__Gears__Cog", "Widgets__Gears__Axle", "Widgets__Sprocket"}) {
		t.Fatalf("feature order = %v", cfg.FeatureIDs)
	}

	widgets := cfg.Products["Widgets"]
	if widgets.Description != "All widgets" {
		t.Fatalf("description = %q", widgets.Description)
	}
	if !reflect.DeepEqual(widgets.FeatureGroupIDs, []string{"Widgets__Gears"}) {
		t.Fatalf("feature groups = %v", widgets.FeatureGroupIDs)
	}
	if !reflect.DeepEqual(widgets.FeatureIDs, []string{"Widgets__Sprocket"}) {
		t.Fatalf("direct features = %v", widgets.FeatureIDs)
	}

	gears := cfg.FeatureGroups["Widgets__Gears"]
	if gears.ProductID != "Widgets" {
		t.Fatalf("group product = %q", gears.ProductID)
	}
	if !reflect.DeepEqual(gears.FeatureIDs, []string{"Widgets__Gears__Cog", "Widgets__Gears__Axle"}) {
		t.Fatalf("group features = %v", gears.FeatureIDs)
	}

	cog := cfg.Features["Widgets__Gears__Cog"]
	if cog.ParentType != ParentFeatureGroup || cog.ParentID != "Widgets__Gears" {
		t.Fatalf("cog parent = %s/%s", cog.ParentType, cog.ParentID)
	}
	cogBugs := cog.TaskMapping.For(IssueTypeBug)
	if !reflect.DeepEqual(cogBugs, []string{"Widgets__Gears__Cog__bug__0", "Widgets__Gears__Cog__bug__1"}) {
		t.Fatalf("cog bug tasks = %v", cogBugs)
	}
	if link := cfg.Tasks[cogBugs[1]].Link; link == nil || link.Type != LinkGeneral {
		t.Fatalf("expected inferred general link, got %+v", link)
	}

	productTask := cfg.Tasks[widgets.TaskMapping.For(IssueTypeBug)[0]]
	if repo, ok := productTask.Link.GitHubRepository(); !ok || repo != "acme/widgets" {
		t.Fatalf("product task repository = %q, %v", repo, ok)
	}

	if cfg.Features["Widgets__Gears__Axle"].TaskMapping != nil {
		t.Fatal("expected nil mapping for feature without tasks")
	}

	for _, id := range cfg.FeatureIDs {
		feature := cfg.Features[id]
		for _, issueType := range TaskIssueTypes {
			for _, taskID := range feature.TaskMapping.For(issueType) {
				if !cfg.HasTask(taskID) {
					t.Fatalf("feature %s references missing task %s", id, taskID)
				}
			}
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	first, err := Normalize(json.RawMessage(nestedConfig))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := Normalize(json.RawMessage(nestedConfig))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical normalization results")
	}
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		entity   string
		path     string
		contains string
	}{
		{name: "string root", raw: `"not a config"`, entity: "reporting config", path: ""},
		{name: "array root", raw: `[]`, entity: "reporting config", path: ""},
		{name: "invalid json", raw: `{"Widgets":`, entity: "reporting config", path: ""},
		{name: "product not object", raw: `{"Widgets": 3}`, entity: "product", path: "Widgets"},
		{name: "feature groups not object", raw: `{"Widgets": {"featureGroups": []}}`, entity: "feature group container", path: "Widgets.featureGroups"},
		{name: "features not object", raw: `{"Widgets": {"features": "Sprocket"}}`, entity: "feature container", path: "Widgets.features"},
		{name: "feature group not object", raw: `{"Widgets": {"featureGroups": {"Gears": null}}}`, entity: "feature group", path: "Widgets.featureGroups.Gears"},
		{name: "nested feature not object", raw: `{"Widgets": {"featureGroups": {"Gears": {"features": {"Cog": true}}}}}`, entity: "feature", path: "Widgets.featureGroups.Gears.features.Cog"},
		{name: "tasks not object", raw: `{"Widgets": {"tasks": []}}`, entity: "task container", path: "Widgets.tasks"},
		{name: "task bucket not array", raw: `{"Widgets": {"features": {"Sprocket": {"tasks": {"bug": {}}}}}}`, entity: "task list", path: "Widgets.features.Sprocket.tasks.bug"},
		{name: "task not object", raw: `{"Widgets": {"tasks": {"urgent": [{"title": "ok"}, "call someone"]}}}`, entity: "task", path: "Widgets.tasks.urgent[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(tt.raw))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if validationErr.Entity != tt.entity {
				t.Errorf("entity = %q, want %q", validationErr.Entity, tt.entity)
			}
			if validationErr.Path != tt.path {
				t.Errorf("path = %q, want %q", validationErr.Path, tt.path)
			}
			if tt.path != "" && !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error %q does not name path %q", err.Error(), tt.path)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestNormalizeToleratesMistypedFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "numeric description", raw: `{"P": {"description": 5}}`},
		{name: "keywords not a list", raw: `{"P": {"features": {"F": {"keywords": "x"}}}}`},
		{name: "mixed keywords", raw: `{"P": {"features": {"F": {"keywords": ["x", 3]}}}}`},
		{name: "learn more links not a list", raw: `{"P": {"learnMoreLinks": {"text": "docs"}}}`},
		{name: "null tasks", raw: `{"P": {"tasks": null}}`},
		{name: "null features", raw: `{"P": {"features": null, "featureGroups": null}}`},
		{name: "null bucket", raw: `{"P": {"tasks": {"bug": null}}}`},
		{name: "numeric task title", raw: `{"P": {"tasks": {"bug": [{"title": 7}]}}}`},
		{name: "string link", raw: `{"P": {"tasks": {"bug": [{"title": "t", "link": "https://x"}]}}}`},
		{name: "mistyped link field", raw: `{"P": {"tasks": {"bug": [{"title": "t", "link": {"repository": 1, "labels": "bug"}}]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(json.RawMessage(tt.raw)); err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
		})
	}
}

func TestNormalizeMistypedFieldsAreLeftEmpty(t *testing.T) {
	raw := `{"P": {
		"description": 5,
		"tasks": null,
		"features": {"F": {"keywords": ["x", 3], "tasks": {"bug": [{"title": 7, "details": "d", "link": "https://x"}]}}}
	}}`
	cfg, err := Normalize(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	product := cfg.Products["P"]
	if product.Description != "" || product.TaskMapping != nil {
		t.Fatalf("unexpected product %+v", product)
	}
	feature := cfg.Features["P__F"]
	if !reflect.DeepEqual(feature.Keywords, []string{"x"}) {
		t.Fatalf("keywords = %v, want [x]", feature.Keywords)
	}
	task := cfg.Tasks["P__F__bug__0"]
	if task.Title != "" || task.Details != "d" || task.Link != nil {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestNormalizeIgnoresUnknownBuckets(t *testing.T) {
	cfg, err := Normalize(json.RawMessage(`{"Widgets": {"tasks": {"question": "anything", "bug": []}}}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	mapping := cfg.Products["Widgets"].TaskMapping
	if mapping == nil || len(mapping.Bug) != 0 || len(cfg.Tasks) != 0 {
		t.Fatalf("unexpected mapping %+v", mapping)
	}
}

func TestMatchFeaturesAndBreadcrumb(t *testing.T) {
	cfg, err := Normalize(json.RawMessage(nestedConfig))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := cfg.MatchFeatures("TOOTH"); !reflect.DeepEqual(got, []string{"Widgets__Gears__Cog"}) {
		t.Fatalf("keyword match = %v", got)
	}
	if got := cfg.MatchFeatures("a"); !reflect.DeepEqual(got, []string{"Widgets__Gears__Axle"}) {
		t.Fatalf("name match = %v", got)
	}
	if got := cfg.MatchFeatures(""); len(got) != 3 {
		t.Fatalf("empty term should match all, got %v", got)
	}

	if got := cfg.FeatureBreadcrumb("Widgets__Gears__Cog"); !reflect.DeepEqual(got, []string{"Widgets", "Gears", "Cog"}) {
		t.Fatalf("breadcrumb = %v", got)
	}
	if got := cfg.FeatureBreadcrumb("Widgets__Sprocket"); !reflect.DeepEqual(got, []string{"Widgets", "Sprocket"}) {
		t.Fatalf("breadcrumb = %v", got)
	}
	if got := cfg.FeatureBreadcrumb("missing"); got != nil {
		t.Fatalf("expected nil breadcrumb, got %v", got)
	}
}
