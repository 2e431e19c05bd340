package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	complaintsync "civicledger/internal/complaint/sync"
)

func view(id uint64, status, urgency, category string) complaintsync.View {
	return complaintsync.View{ID: id, Status: status, Urgency: urgency, Category: category}
}

func TestSummarize(t *testing.T) {
	t.Run("empty snapshot", func(t *testing.T) {
		assert.Equal(t, Summary{DominantCategory: "General"}, Summarize(nil))
	})

	t.Run("counts by status and urgency", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(5, "Submitted", "Critical", "Electricity"),
			view(4, " resolved ", "Critical", "Electricity"),
			view(3, "InProgress", "critical", "Water Supply"),
			view(2, "Rejected", "Low", "General"),
			view(1, "Verified", "High", "Water Supply"),
			view(0, "Unknown", "Unknown", ""),
		})
		assert.Equal(t, 6, s.Total)
		assert.Equal(t, 4, s.ActiveCount, "unknown statuses count as active")
		assert.Equal(t, 2, s.CriticalActiveCount, "resolved critical complaints are excluded")
		assert.Equal(t, 1, s.ResolvedCount)
		assert.Equal(t, 1, s.RejectedCount)
		assert.InDelta(t, 2.0/6.0, s.CriticalityRate, 1e-9)
	})

	t.Run("tie goes to the category whose last record comes latest", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(3, "Submitted", "Low", "Road infrastructure"),
			view(2, "Submitted", "Low", "Water Supply"),
			view(1, "Submitted", "Low", "Water Supply"),
			view(0, "Submitted", "Low", "Road infrastructure"),
		})
		assert.Equal(t, "Road infrastructure", s.DominantCategory)
	})

	t.Run("interleaved tie", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(3, "Submitted", "Low", "Road infrastructure"),
			view(2, "Submitted", "Low", "Water Supply"),
			view(1, "Submitted", "Low", "Road infrastructure"),
			view(0, "Submitted", "Low", "Water Supply"),
		})
		assert.Equal(t, "Water Supply", s.DominantCategory)
	})

	t.Run("three way tie", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(2, "Submitted", "Low", "Water Supply"),
			view(1, "Submitted", "Low", "Electricity"),
			view(0, "Submitted", "Low", "Road infrastructure"),
		})
		assert.Equal(t, "Road infrastructure", s.DominantCategory)
	})

	t.Run("clear majority wins", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(2, "Submitted", "Low", "Electricity"),
			view(1, "Submitted", "Low", "Water Supply"),
			view(0, "Submitted", "Low", "Water Supply"),
		})
		assert.Equal(t, "Water Supply", s.DominantCategory)
	})

	t.Run("blank categories count as general", func(t *testing.T) {
		s := Summarize([]complaintsync.View{
			view(1, "Submitted", "Low", " "),
			view(0, "Submitted", "Low", ""),
		})
		assert.Equal(t, "General", s.DominantCategory)
	})
}
