package normalizer

import "strings"

// highRiskIntents is the fixed vocabulary of intents that always require
// human approval before any downstream action.
var highRiskIntents = []string{"delete", "transfer", "grant_access"}

// RiskScanner detects high-risk intents in free-form content.
type RiskScanner struct {
	vocabulary []string
}

// NewRiskScanner returns a scanner over the fixed high-risk vocabulary.
func NewRiskScanner() *RiskScanner {
	return &RiskScanner{vocabulary: highRiskIntents}
}

// Scan returns the intents found in content, matched case-insensitively as
// substrings. Returns nil when nothing matches.
func (s *RiskScanner) Scan(content string) []string {
	if content == "" {
		return nil
	}

	lowered := strings.ToLower(content)

	var found []string
	for _, intent := range s.vocabulary {
		if strings.Contains(lowered, intent) {
			found = append(found, intent)
		}
	}
	return found
}
