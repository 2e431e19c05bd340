// Package aggregate derives dashboard statistics from a snapshot.
package aggregate

import (
	"strings"

	"civicledger/internal/complaint/models"
	complaintsync "civicledger/internal/complaint/sync"
)

// Summary is computed over a single snapshot, never over the whole registry.
type Summary struct {
	Total               int     `json:"total"`
	ActiveCount         int     `json:"active_count"`
	CriticalActiveCount int     `json:"critical_active_count"`
	ResolvedCount       int     `json:"resolved_count"`
	RejectedCount       int     `json:"rejected_count"`
	DominantCategory    string  `json:"dominant_category"`
	CriticalityRate     float64 `json:"criticality_rate"`
}

// Summarize expects records newest first. Category ties go to the category
// whose last record comes latest in that order.
func Summarize(records []complaintsync.View) Summary {
	s := Summary{Total: len(records), DominantCategory: models.CategoryGeneral}
	if len(records) == 0 {
		return s
	}

	resolved := strings.ToLower(models.StatusResolved.String())
	rejected := strings.ToLower(models.StatusRejected.String())
	critical := strings.ToLower(models.UrgencyCritical.String())

	counts := make(map[string]int)
	lastSeen := make(map[string]int)
	for i, r := range records {
		status := normalize(r.Status)
		switch status {
		case resolved:
			s.ResolvedCount++
		case rejected:
			s.RejectedCount++
		default:
			s.ActiveCount++
			if normalize(r.Urgency) == critical {
				s.CriticalActiveCount++
			}
		}

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = models.CategoryGeneral
		}
		counts[category]++
		lastSeen[category] = i
	}

	best, bestAt := 0, -1
	for c, n := range counts {
		if n > best || (n == best && lastSeen[c] > bestAt) {
			best, bestAt = n, lastSeen[c]
			s.DominantCategory = c
		}
	}
	s.CriticalityRate = float64(s.CriticalActiveCount) / float64(s.Total)
	return s
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
