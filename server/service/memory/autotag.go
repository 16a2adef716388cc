package memory

import "strings"

// safetyKeywords are the content markers that indicate a moment a caregiver
// must be able to see.
var safetyKeywords = []string{"help", "fell", "fallen", "hurt", "pain", "emergency", "bleeding"}

// safetyTags are appended when any safety keyword matches.
var safetyTags = []string{"emergency", "caregiver", "alert"}

// AppendSafetyTags scans content (case-insensitive) for safety keywords and
// appends the safety tag set when any match. Caller-supplied tags are always
// preserved; the append is deduplicated so repeated markers in one text
// never produce duplicate tags.
func AppendSafetyTags(content string, tags []string) []string {
	result := make([]string, 0, len(tags)+len(safetyTags))
	seen := make(map[string]bool, len(tags)+len(safetyTags))
	for _, tag := range tags {
		result = append(result, tag)
		seen[tag] = true
	}

	lower := strings.ToLower(content)
	for _, keyword := range safetyKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		for _, tag := range safetyTags {
			if !seen[tag] {
				result = append(result, tag)
				seen[tag] = true
			}
		}
		break
	}
	return result
}
