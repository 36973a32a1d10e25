// Package classify assigns traffic categories to destination hostnames.
package classify

import (
	"strings"

	"netscope/internal/config"
	"netscope/internal/models"
)

// Classifier matches hostnames against an ordered keyword table.
type Classifier struct {
	categories []category
}

type category struct {
	name     string
	keywords []string
}

// New builds a Classifier from the given table. Slice order is match
// order: when a hostname matches keywords from several categories, the
// earliest category wins.
func New(table []config.Category) *Classifier {
	cats := make([]category, 0, len(table))
	for _, c := range table {
		keywords := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			keywords = append(keywords, strings.ToLower(kw))
		}
		cats = append(cats, category{name: c.Name, keywords: keywords})
	}
	return &Classifier{categories: cats}
}

// Categorize returns the category for hostname. Matching is
// case-insensitive substring containment. An empty hostname or one
// matching no keyword yields models.OtherCategory.
func (c *Classifier) Categorize(hostname string) string {
	if hostname == "" {
		return models.OtherCategory
	}
	lower := strings.ToLower(hostname)
	for _, cat := range c.categories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return models.OtherCategory
}
