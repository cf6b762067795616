// Package symptoms maps free-text problem descriptions onto a fixed
// set of diagnostic categories.
package symptoms

import (
	"fmt"
	"strings"
)

// Category groups related failure symptoms.
type Category string

const (
	CategoryInfrastructure Category = "infrastructure"
	CategoryService        Category = "service"
	CategoryTask           Category = "task"
	CategoryApplication    Category = "application"
	CategoryNetwork        Category = "network"
)

// classificationRules is evaluated top to bottom. Matching is plain
// case-insensitive containment, so every rule whose keyword occurs in
// the text fires; one description may accumulate evidence in several
// categories.
var classificationRules = []struct {
	keyword  string
	category Category
}{
	{"stack", CategoryInfrastructure},
	{"cloudformation", CategoryInfrastructure},
	{"deploy", CategoryInfrastructure},
	{"creation", CategoryInfrastructure},
	{"infrastructure", CategoryInfrastructure},
	{"rollback", CategoryInfrastructure},

	{"service", CategoryService},
	{"deployment", CategoryService},
	{"unstable", CategoryService},
	{"events", CategoryService},

	{"task", CategoryTask},
	{"container", CategoryTask},
	{"failing", CategoryTask},
	{"crash", CategoryTask},
	{"exit", CategoryTask},
	{"restart", CategoryTask},
	{"image", CategoryTask},
	{"pull", CategoryTask},

	{"error", CategoryApplication},
	{"exception", CategoryApplication},
	{"log", CategoryApplication},
	{"application", CategoryApplication},
	{"code", CategoryApplication},
	{"bug", CategoryApplication},

	{"network", CategoryNetwork},
	{"connection", CategoryNetwork},
	{"unreachable", CategoryNetwork},
	{"timeout", CategoryNetwork},
	{"load balancer", CategoryNetwork},
}

// Classify records one evidence string per matched keyword, grouped by
// category. Categories without a match are absent from the result.
func Classify(freeText string) map[Category][]string {
	lower := strings.ToLower(freeText)

	matched := make(map[Category][]string)
	for _, rule := range classificationRules {
		if strings.Contains(lower, rule.keyword) {
			matched[rule.category] = append(matched[rule.category], fmt.Sprintf("Mentioned '%s'", rule.keyword))
		}
	}
	return matched
}
