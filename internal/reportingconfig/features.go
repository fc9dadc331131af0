package reportingconfig

import "strings"

// MatchFeatures returns the IDs of features whose name or keywords contain
// term, case-insensitively, in source order. An empty term matches everything.
func (c *Config) MatchFeatures(term string) []string {
	matches := []string{}
	if c == nil {
		return matches
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	for _, id := range c.FeatureIDs {
		feature, ok := c.Features[id]
		if !ok {
			continue
		}
		if needle == "" || featureMatches(feature, needle) {
			matches = append(matches, id)
		}
	}
	return matches
}

func featureMatches(feature Feature, needle string) bool {
	if strings.Contains(strings.ToLower(feature.Name), needle) {
		return true
	}
	for _, keyword := range feature.Keywords {
		if strings.Contains(strings.ToLower(keyword), needle) {
			return true
		}
	}
	return false
}

// FeatureBreadcrumb returns the display names from the owning product down to
// the feature. It returns nil for an unknown feature.
func (c *Config) FeatureBreadcrumb(featureID string) []string {
	if c == nil {
		return nil
	}
	feature, ok := c.Features[featureID]
	if !ok {
		return nil
	}
	productID := feature.ParentID
	var trail []string
	if feature.ParentType == ParentFeatureGroup {
		group, ok := c.FeatureGroups[feature.ParentID]
		if !ok {
			return nil
		}
		productID = group.ProductID
		trail = append(trail, group.Name)
	}
	product, ok := c.Products[productID]
	if !ok {
		return nil
	}
	return append(append([]string{product.Name}, trail...), feature.Name)
}
