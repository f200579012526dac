package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRangesOverlap(t *testing.T) {
	// Shared boundary day counts as overlap: ranges are closed.
	require.True(t, RangesOverlap(day("2025-09-01"), day("2025-09-03"), day("2025-09-03"), day("2025-09-05")))
	require.True(t, RangesOverlap(day("2025-09-01"), day("2025-09-10"), day("2025-09-04"), day("2025-09-05")))
	require.False(t, RangesOverlap(day("2025-09-01"), day("2025-09-03"), day("2025-09-04"), day("2025-09-05")))
}

func TestFindDateConflictsPairwise(t *testing.T) {
	events := []models.CalendarEventDraft{
		{Title: "Fresher's Night", StartDate: day("2025-09-01"), EndDate: day("2025-09-02")},
		{Title: "Sports Meet", StartDate: day("2025-09-02"), EndDate: day("2025-09-04")},
		{Title: "Tech Fest", StartDate: day("2025-10-01"), EndDate: day("2025-10-03")},
	}
	conflicts := FindDateConflicts(events)
	require.Len(t, conflicts, 1)
	require.Equal(t, "Fresher's Night", conflicts[0].First.Title)
	require.Equal(t, "Sports Meet", conflicts[0].Second.Title)
}

func TestFindDateConflictsSkipsInvalidRanges(t *testing.T) {
	events := []models.CalendarEventDraft{
		{Title: "Broken", StartDate: day("2025-09-05"), EndDate: day("2025-09-01")},
		{Title: "Valid", StartDate: day("2025-09-01"), EndDate: day("2025-09-10")},
	}
	require.Empty(t, FindDateConflicts(events))
}

func TestOverlappingEvents(t *testing.T) {
	existing := []models.Event{
		{Title: "Cultural Week", ScheduledStartDate: day("2025-11-01"), ScheduledEndDate: day("2025-11-07")},
		{Title: "Alumni Meet", ScheduledStartDate: day("2025-12-01"), ScheduledEndDate: day("2025-12-01")},
	}
	clashes := OverlappingEvents(day("2025-11-07"), day("2025-11-09"), existing)
	require.Len(t, clashes, 1)
	require.Equal(t, "Cultural Week", clashes[0].Title)

	require.Empty(t, OverlappingEvents(day("2025-11-09"), day("2025-11-08"), existing))
}
