package reportingconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IDSeparator joins ancestor names into entity IDs.
const IDSeparator = "__"

// ValidationError reports a structural defect in the raw reporting config.
type ValidationError struct {
	Entity  string
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("invalid %s at %q: %s", e.Entity, e.Path, e.Message)
}

func invalid(entity, path, message string) *ValidationError {
	return &ValidationError{Entity: entity, Path: path, Message: message}
}

// Normalize converts the raw nested reporting config into a flat Config.
// Products may nest features directly or through feature groups; tasks under
// any entity's "tasks.<issueType>" arrays are lifted into Config.Tasks.
func Normalize(raw json.RawMessage) (*Config, error) {
	products, ok := readObject(raw)
	if !ok {
		return nil, invalid("reporting config", "", "expected an object")
	}
	cfg := newConfig()
	for _, p := range products {
		if err := cfg.addProduct(p.key, p.value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// entityFields are the descriptive fields shared by products, groups and
// features. They are decoded leniently: a mistyped value is left empty.
type entityFields struct {
	Description    string
	LearnMoreLinks []LearnMoreLink
	Keywords       []string
}

func decodeEntity(entity, path string, raw json.RawMessage) (map[string]json.RawMessage, entityFields, error) {
	fields, ok := readFields(raw)
	if !ok {
		return nil, entityFields{}, invalid(entity, path, "expected an object")
	}
	meta := entityFields{
		Description:    stringField(fields, "description"),
		LearnMoreLinks: learnMoreLinks(fields["learnMoreLinks"]),
		Keywords:       stringList(fields["keywords"]),
	}
	return fields, meta, nil
}

func (c *Config) addProduct(name string, raw json.RawMessage) error {
	path := name
	fields, meta, err := decodeEntity("product", path, raw)
	if err != nil {
		return err
	}
	product := Product{
		ID:              name,
		Name:            name,
		Description:     meta.Description,
		LearnMoreLinks:  meta.LearnMoreLinks,
		FeatureGroupIDs: []string{},
		FeatureIDs:      []string{},
	}
	c.ProductIDs = appendUnique(c.ProductIDs, product.ID)

	if product.TaskMapping, err = c.liftTasks(fields, ParentProduct, product.ID, path); err != nil {
		return err
	}

	if rawGroups, ok := present(fields, "featureGroups"); ok {
		groupsPath := path + ".featureGroups"
		groups, ok := readObject(rawGroups)
		if !ok {
			return invalid("feature group container", groupsPath, "expected an object")
		}
		for _, g := range groups {
			groupID, err := c.addFeatureGroup(product.ID, g.key, g.value, groupsPath+"."+g.key)
			if err != nil {
				return err
			}
			product.FeatureGroupIDs = appendUnique(product.FeatureGroupIDs, groupID)
		}
	}

	featureIDs, err := c.addFeatures(fields, ParentProduct, product.ID, path)
	if err != nil {
		return err
	}
	product.FeatureIDs = featureIDs

	c.Products[product.ID] = product
	return nil
}

func (c *Config) addFeatureGroup(productID, name string, raw json.RawMessage, path string) (string, error) {
	fields, meta, err := decodeEntity("feature group", path, raw)
	if err != nil {
		return "", err
	}
	group := FeatureGroup{
		ID:             joinID(productID, name),
		Name:           name,
		Description:    meta.Description,
		LearnMoreLinks: meta.LearnMoreLinks,
		ProductID:      productID,
	}
	c.FeatureGroupIDs = appendUnique(c.FeatureGroupIDs, group.ID)

	if group.TaskMapping, err = c.liftTasks(fields, ParentFeatureGroup, group.ID, path); err != nil {
		return "", err
	}
	if group.FeatureIDs, err = c.addFeatures(fields, ParentFeatureGroup, group.ID, path); err != nil {
		return "", err
	}

	c.FeatureGroups[group.ID] = group
	return group.ID, nil
}

// addFeatures lifts the optional "features" container of a product or group.
func (c *Config) addFeatures(fields map[string]json.RawMessage, parentType ParentType, parentID, parentPath string) ([]string, error) {
	ids := []string{}
	rawFeatures, ok := present(fields, "features")
	if !ok {
		return ids, nil
	}
	featuresPath := parentPath + ".features"
	features, ok := readObject(rawFeatures)
	if !ok {
		return nil, invalid("feature container", featuresPath, "expected an object")
	}
	for _, f := range features {
		id, err := c.addFeature(parentType, parentID, f.key, f.value, featuresPath+"."+f.key)
		if err != nil {
			return nil, err
		}
		ids = appendUnique(ids, id)
	}
	return ids, nil
}

func (c *Config) addFeature(parentType ParentType, parentID, name string, raw json.RawMessage, path string) (string, error) {
	fields, meta, err := decodeEntity("feature", path, raw)
	if err != nil {
		return "", err
	}
	feature := Feature{
		ID:             joinID(parentID, name),
		Name:           name,
		Keywords:       meta.Keywords,
		Description:    meta.Description,
		LearnMoreLinks: meta.LearnMoreLinks,
		ParentType:     parentType,
		ParentID:       parentID,
	}
	c.FeatureIDs = appendUnique(c.FeatureIDs, feature.ID)
	if feature.TaskMapping, err = c.liftTasks(fields, ParentFeature, feature.ID, path); err != nil {
		return "", err
	}
	c.Features[feature.ID] = feature
	return feature.ID, nil
}

// liftTasks moves the tasks embedded under an entity into c.Tasks and returns
// the entity's mapping. Entities with an absent or null "tasks" get a nil
// mapping.
func (c *Config) liftTasks(fields map[string]json.RawMessage, parentType ParentType, parentID, parentPath string) (*TaskMapping, error) {
	rawTasks, ok := present(fields, "tasks")
	if !ok {
		return nil, nil
	}
	tasksPath := parentPath + ".tasks"
	buckets, ok := readFields(rawTasks)
	if !ok {
		return nil, invalid("task container", tasksPath, "expected an object")
	}

	mapping := &TaskMapping{Bug: []string{}, FeatureRequest: []string{}, Urgent: []string{}}
	for _, issueType := range TaskIssueTypes {
		rawBucket, ok := present(buckets, string(issueType))
		if !ok {
			continue
		}
		bucketPath := tasksPath + "." + string(issueType)
		elements, ok := readArray(rawBucket)
		if !ok {
			return nil, invalid("task list", bucketPath, "expected an array")
		}
		ids := make([]string, 0, len(elements))
		for i, element := range elements {
			task, err := parseTask(element, fmt.Sprintf("%s[%d]", bucketPath, i))
			if err != nil {
				return nil, err
			}
			task.ID = joinID(parentID, string(issueType), strconv.Itoa(i))
			task.ParentType = parentType
			task.ParentID = parentID
			c.TaskIDs = appendUnique(c.TaskIDs, task.ID)
			c.Tasks[task.ID] = task
			ids = append(ids, task.ID)
		}
		mapping.set(issueType, ids)
	}
	return mapping, nil
}

// parseTask requires an object; its fields are decoded leniently.
func parseTask(raw json.RawMessage, path string) (Task, error) {
	fields, ok := readFields(raw)
	if !ok {
		return Task{}, invalid("task", path, "expected an object")
	}
	return Task{
		Title:   stringField(fields, "title"),
		Details: stringField(fields, "details"),
		Link:    parseLink(fields["link"]),
	}, nil
}

// parseLink returns nil unless raw is an object. Without an explicit type, a
// link with a repository is a GitHub link.
func parseLink(raw json.RawMessage) *Link {
	fields, ok := readFields(raw)
	if !ok {
		return nil
	}
	link := &Link{
		Type:       LinkType(stringField(fields, "type")),
		Repository: stringField(fields, "repository"),
		Template:   stringField(fields, "template"),
		Labels:     stringList(fields["labels"]),
		Projects:   stringList(fields["projects"]),
		Href:       stringField(fields, "href"),
	}
	if link.Type != LinkGitHub && link.Type != LinkGeneral {
		if link.Repository != "" {
			link.Type = LinkGitHub
		} else {
			link.Type = LinkGeneral
		}
	}
	return link
}

func learnMoreLinks(raw json.RawMessage) []LearnMoreLink {
	elements, ok := readArray(raw)
	if !ok {
		return nil
	}
	links := make([]LearnMoreLink, 0, len(elements))
	for _, element := range elements {
		fields, ok := readFields(element)
		if !ok {
			continue
		}
		links = append(links, LearnMoreLink{Text: stringField(fields, "text"), Href: stringField(fields, "href")})
	}
	return links
}

// stringField returns fields[key] when it is a JSON string.
func stringField(fields map[string]json.RawMessage, key string) string {
	var value string
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &value) == nil {
		return value
	}
	return ""
}

// stringList keeps the string elements of a JSON array.
func stringList(raw json.RawMessage) []string {
	elements, ok := readArray(raw)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(elements))
	for _, element := range elements {
		var value string
		if json.Unmarshal(element, &value) == nil {
			values = append(values, value)
		}
	}
	return values
}

// present looks up key, treating an explicit null like an absent member.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || leadingByte(raw) == 'n' {
		return nil, false
	}
	return raw, true
}

func joinID(parts ...string) string {
	return strings.Join(parts, IDSeparator)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

type member struct {
	key   string
	value json.RawMessage
}

// readObject decodes a JSON object keeping member order. It reports false for
// anything that is not an object, including null.
func readObject(raw json.RawMessage) ([]member, bool) {
	if !isObject(raw) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	members := []member{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	return members, true
}

// readFields is readObject as a map. Later duplicate keys win.
func readFields(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	members, ok := readObject(raw)
	if !ok {
		return nil, false
	}
	fields := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		fields[m.key] = m.value
	}
	return fields, true
}

func readArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if leadingByte(raw) != '[' {
		return nil, false
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, false
	}
	return elements, true
}

func isObject(raw json.RawMessage) bool {
	return leadingByte(raw) == '{'
}

func leadingByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
