// Package scapeid canonicalizes scape names so aliases used in configs,
// flags, and stored records all resolve to the same registry key.
package scapeid

import "strings"

// Normalize canonicalizes scape names and reference aliases. Unknown names
// pass through in their cleaned form so the registry can reject them with
// the name the caller actually wrote.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalScapeName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

func aliasCandidates(normalized string) []string {
	candidate := strings.TrimPrefix(normalized, "scape-")
	if candidate == normalized {
		candidate = strings.TrimPrefix(candidate, "scape")
	}
	candidate = strings.Trim(candidate, "-")

	candidates := []string{normalized}
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}

	trimmedCandidate := trimSimSuffix(candidate)
	if trimmedCandidate != "" && trimmedCandidate != candidate {
		candidates = append(candidates, trimmedCandidate)
	}

	trimmedNormalized := trimSimSuffix(normalized)
	if trimmedNormalized != "" &&
		trimmedNormalized != normalized &&
		trimmedNormalized != candidate &&
		trimmedNormalized != trimmedCandidate {
		candidates = append(candidates, trimmedNormalized)
	}
	return candidates
}

func trimSimSuffix(value string) string {
	switch {
	case strings.HasSuffix(value, "-sim"):
		return strings.TrimSuffix(value, "-sim")
	case strings.HasSuffix(value, "sim") && !strings.Contains(value, "-"):
		return strings.TrimSuffix(value, "sim")
	default:
		return value
	}
}

func canonicalScapeName(alias string) (string, bool) {
	switch alias {
	case "snake", "grid-snake", "snake-scape":
		return "snake", true
	}

	switch strings.ReplaceAll(alias, "-", "") {
	case "snake", "gridsnake", "snakescape":
		return "snake", true
	default:
		return "", false
	}
}
