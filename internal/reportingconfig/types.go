// Package reportingconfig flattens the nested reporting configuration served
// by the API into ID-indexed entities with parent back-references.
package reportingconfig

// IssueType is the kind of report a user is filing.
type IssueType string

const (
	IssueTypeUnset          IssueType = "unset"
	IssueTypeBug            IssueType = "bug"
	IssueTypeFeatureRequest IssueType = "featureRequest"
	IssueTypeUrgent         IssueType = "urgent"
)

// TaskIssueTypes lists the issue types that carry task buckets, in source order.
var TaskIssueTypes = []IssueType{IssueTypeBug, IssueTypeFeatureRequest, IssueTypeUrgent}

// Valid reports whether t is one of the known issue types, including unset.
func (t IssueType) Valid() bool {
	return t == IssueTypeUnset || t.HasTasks()
}

// HasTasks reports whether t selects a task bucket.
func (t IssueType) HasTasks() bool {
	switch t {
	case IssueTypeBug, IssueTypeFeatureRequest, IssueTypeUrgent:
		return true
	default:
		return false
	}
}

// ParentType names the kind of entity a feature or task hangs off.
type ParentType string

const (
	ParentProduct      ParentType = "product"
	ParentFeatureGroup ParentType = "featureGroup"
	ParentFeature      ParentType = "feature"
)

// TaskMapping holds the ordered task IDs that apply to an entity per issue type.
type TaskMapping struct {
	Bug            []string `json:"bug"`
	FeatureRequest []string `json:"featureRequest"`
	Urgent         []string `json:"urgent"`
}

// For returns the task IDs for issueType. A nil mapping has no tasks.
func (m *TaskMapping) For(issueType IssueType) []string {
	if m == nil {
		return nil
	}
	switch issueType {
	case IssueTypeBug:
		return m.Bug
	case IssueTypeFeatureRequest:
		return m.FeatureRequest
	case IssueTypeUrgent:
		return m.Urgent
	default:
		return nil
	}
}

func (m *TaskMapping) set(issueType IssueType, ids []string) {
	switch issueType {
	case IssueTypeBug:
		m.Bug = ids
	case IssueTypeFeatureRequest:
		m.FeatureRequest = ids
	case IssueTypeUrgent:
		m.Urgent = ids
	}
}

// LearnMoreLink is a documentation link shown next to an entity.
type LearnMoreLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// LinkType selects how a task Link is rendered.
type LinkType string

const (
	LinkGitHub  LinkType = "github"
	LinkGeneral LinkType = "general"
)

// Link is where a task sends the reporter. GitHub links target a repository
// ("org/repo") with optional issue template, labels and projects; general
// links target an arbitrary href.
type Link struct {
	Type       LinkType `json:"type"`
	Repository string   `json:"repository,omitempty"`
	Template   string   `json:"template,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Projects   []string `json:"projects,omitempty"`
	Href       string   `json:"href,omitempty"`
}

// GitHubRepository returns the repository a GitHub link files into.
func (l *Link) GitHubRepository() (string, bool) {
	if l == nil || l.Type != LinkGitHub || l.Repository == "" {
		return "", false
	}
	return l.Repository, true
}

// Product is a top-level entity of the configuration.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	LearnMoreLinks  []LearnMoreLink `json:"learnMoreLinks,omitempty"`
	TaskMapping     *TaskMapping    `json:"taskMapping,omitempty"`
	FeatureGroupIDs []string        `json:"featureGroupIds"`
	FeatureIDs      []string        `json:"featureIds"`
}

// FeatureGroup groups features under a product.
type FeatureGroup struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	LearnMoreLinks []LearnMoreLink `json:"learnMoreLinks,omitempty"`
	TaskMapping    *TaskMapping    `json:"taskMapping,omitempty"`
	ProductID      string          `json:"productId"`
	FeatureIDs     []string        `json:"featureIds"`
}

// Feature is the selectable leaf of the hierarchy. Its parent is a product
// or a feature group.
type Feature struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Keywords       []string        `json:"keywords,omitempty"`
	Description    string          `json:"description,omitempty"`
	LearnMoreLinks []LearnMoreLink `json:"learnMoreLinks,omitempty"`
	TaskMapping    *TaskMapping    `json:"taskMapping,omitempty"`
	ParentType     ParentType      `json:"parentType"`
	ParentID       string          `json:"parentId"`
}

// Task is one next step offered to the reporter. ID encodes its parent
// entity, issue type and position in the bucket.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Details    string     `json:"details,omitempty"`
	Link       *Link      `json:"link,omitempty"`
	ParentType ParentType `json:"parentType"`
	ParentID   string     `json:"parentId"`
}

// Config is the normalized reporting configuration. Every map has a companion
// ID list giving the order entities appeared in the source.
type Config struct {
	Products        map[string]Product      `json:"products"`
	ProductIDs      []string                `json:"productIds"`
	FeatureGroups   map[string]FeatureGroup `json:"featureGroups"`
	FeatureGroupIDs []string                `json:"featureGroupIds"`
	Features        map[string]Feature      `json:"features"`
	FeatureIDs      []string                `json:"featureIds"`
	Tasks           map[string]Task         `json:"tasks"`
	TaskIDs         []string                `json:"taskIds"`
}

func newConfig() *Config {
	return &Config{
		Products:        map[string]Product{},
		ProductIDs:      []string{},
		FeatureGroups:   map[string]FeatureGroup{},
		FeatureGroupIDs: []string{},
		Features:        map[string]Feature{},
		FeatureIDs:      []string{},
		Tasks:           map[string]Task{},
		TaskIDs:         []string{},
	}
}

// HasFeature reports whether id names a feature. A nil config has none.
func (c *Config) HasFeature(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Features[id]
	return ok
}

// HasTask reports whether id names a task. A nil config has none.
func (c *Config) HasTask(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Tasks[id]
	return ok
}
