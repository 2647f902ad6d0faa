package mapdata

import (
	"encoding/json"
	"sort"
	"strings"
)

// FeatureCollection is the subset of GeoJSON the search needs. Properties are
// kept as raw maps so serving a feature back preserves every field.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single store entry in the dataset.
type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

func (f Feature) title() string {
	title, _ := f.Properties["title"].(string)
	return title
}

func (f Feature) storeType() string {
	storeType, _ := f.Properties["type"].(string)
	return storeType
}

func (f Feature) tags() []string {
	raw, ok := f.Properties["storetag"].([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, entry := range raw {
		if tag, ok := entry.(string); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// SearchParams filters and ranks the dataset.
type SearchParams struct {
	Query string
	Type  string
	Tags  []string
	Limit int
}

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
	maxSuggestions     = 10
)

// SearchResult is the ranked, filtered slice of the dataset.
type SearchResult struct {
	Results []Feature `json:"results"`
	Count   int       `json:"count"`
	Total   int       `json:"total"`
}

// Search runs a brute-force scan over the dataset: relevance-ranked title
// match, then type and tag filters, then the limit.
func Search(meta *FeatureCollection, params SearchParams) SearchResult {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results := meta.Features
	if query := strings.TrimSpace(params.Query); query != "" {
		type scored struct {
			score   float64
			feature Feature
		}
		var matched []scored
		for _, feature := range meta.Features {
			if score := relevance(query, feature.title()); score > 0 {
				matched = append(matched, scored{score, feature})
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].score > matched[j].score
		})
		results = make([]Feature, len(matched))
		for i, m := range matched {
			results[i] = m.feature
		}
	}

	if params.Type != "" {
		results = filterByType(results, params.Type)
	}
	if len(params.Tags) > 0 {
		results = filterByTags(results, params.Tags)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Feature{}
	}

	return SearchResult{
		Results: results,
		Count:   len(results),
		Total:   len(meta.Features),
	}
}

// Suggestions returns up to ten store titles matching a partial query,
// prefix matches first.
func Suggestions(meta *FeatureCollection, query string) []string {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return []string{}
	}

	type scored struct {
		score float64
		title string
	}
	var matched []scored
	for _, feature := range meta.Features {
		title := feature.title()
		titleLower := strings.ToLower(title)
		if !strings.Contains(titleLower, queryLower) {
			continue
		}
		score := 1.0
		if strings.HasPrefix(titleLower, queryLower) {
			score = 2.0
		}
		matched = append(matched, scored{score, title})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})

	suggestions := make([]string, 0, maxSuggestions)
	for _, m := range matched {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, m.title)
	}
	return suggestions
}

// Types enumerates the distinct store types in the dataset, sorted.
func Types(meta *FeatureCollection) []string {
	seen := make(map[string]struct{})
	for _, feature := range meta.Features {
		if storeType := feature.storeType(); storeType != "" {
			seen[storeType] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Tags enumerates the distinct store tags in the dataset, sorted.
func Tags(meta *FeatureCollection) []string {
	seen := make(map[string]struct{})
	for _, feature := range meta.Features {
		for _, tag := range feature.tags() {
			if tag != "" {
				seen[tag] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// relevance ranks title matches: exact > prefix > substring, with earlier
// substring positions scoring higher.
func relevance(query, title string) float64 {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	titleLower := strings.ToLower(title)

	switch {
	case titleLower == queryLower:
		return 2.0
	case strings.HasPrefix(titleLower, queryLower):
		return 1.5
	}
	if position := strings.Index(titleLower, queryLower); position >= 0 {
		return 1.0 - float64(position)*0.01
	}
	return 0
}

func filterByType(features []Feature, storeType string) []Feature {
	typeLower := strings.ToLower(storeType)
	filtered := make([]Feature, 0, len(features))
	for _, feature := range features {
		if strings.ToLower(feature.storeType()) == typeLower {
			filtered = append(filtered, feature)
		}
	}
	return filtered
}

// filterByTags keeps features carrying any of the requested tags.
func filterByTags(features []Feature, tags []string) []Feature {
	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[strings.ToLower(tag)] = struct{}{}
	}

	filtered := make([]Feature, 0, len(features))
	for _, feature := range features {
		for _, tag := range feature.tags() {
			if _, ok := wanted[strings.ToLower(tag)]; ok {
				filtered = append(filtered, feature)
				break
			}
		}
	}
	return filtered
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
