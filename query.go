package clickhouse

import (
	"regexp"
	"strings"
)

// Server side placeholders look like {name:Type}.
var placeholderPattern = regexp.MustCompile(`\{\s*(\w+)\s*:\s*([^{}]+?)\s*\}`)

type placeholder struct {
	name       string
	serverType string
}

// parsePlaceholders lists the distinct placeholders of a query in order of
// first appearance.
func parsePlaceholders(sql string) []placeholder {
	var placeholders []placeholder

	for _, match := range placeholderPattern.FindAllStringSubmatch(sql, -1) {
		if _, ok := findPlaceholder(placeholders, match[1]); ok {
			continue
		}

		placeholders = append(placeholders, placeholder{
			name:       match[1],
			serverType: strings.TrimSpace(match[2]),
		})
	}

	return placeholders
}

func findPlaceholder(placeholders []placeholder, name string) (placeholder, bool) {
	for _, p := range placeholders {
		if p.name == name {
			return p, true
		}
	}

	return placeholder{}, false
}
