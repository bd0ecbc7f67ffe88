// Package visualize turns the curriculum graph into a standalone vis-network HTML page
// and derives which nodes an answer should highlight.
package visualize

import "github.com/cloo-solutions/mathbot/internal/domain"

// HighlightLabels lists the concept, chapter and subject of each evidence item in
// order. Unknown and empty values are skipped. Duplicates are kept.
func HighlightLabels(evidence []domain.EvidenceItem) []string {
	out := make([]string, 0, len(evidence)*3)
	for _, item := range evidence {
		for _, label := range []string{item.Concept, item.Chapter, item.Subject} {
			if label == "" || label == domain.Unknown {
				continue
			}
			out = append(out, label)
		}
	}
	return out
}
