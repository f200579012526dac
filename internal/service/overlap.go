package service

import (
	"time"

	"github.com/noah-isme/gymkhana-api/internal/models"
)

// RangesOverlap reports whether the closed day-ranges [s1,e1] and [s2,e2]
// intersect: s1 <= e2 && s2 <= e1.
func RangesOverlap(s1, e1, s2, e2 time.Time) bool {
	s1, e1 = startOfDay(s1), startOfDay(e1)
	s2, e2 = startOfDay(s2), startOfDay(e2)
	return !s1.After(e2) && !s2.After(e1)
}

// validDraftRange excludes drafts whose range is unusable (missing dates or
// end before start) from all overlap comparisons.
func validDraftRange(e models.CalendarEventDraft) bool {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return false
	}
	return !startOfDay(e.EndDate).Before(startOfDay(e.StartDate))
}

// FindDateConflicts runs the pairwise overlap check over all embedded
// calendar events and returns every conflicting pair.
func FindDateConflicts(events []models.CalendarEventDraft) []models.DateConflict {
	var conflicts []models.DateConflict
	for i := 0; i < len(events); i++ {
		if !validDraftRange(events[i]) {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			if !validDraftRange(events[j]) {
				continue
			}
			if RangesOverlap(events[i].StartDate, events[i].EndDate, events[j].StartDate, events[j].EndDate) {
				conflicts = append(conflicts, models.DateConflict{First: events[i], Second: events[j]})
			}
		}
	}
	return conflicts
}

// OverlappingEvents checks one candidate range against a list of
// materialized events and returns those that clash.
func OverlappingEvents(start, end time.Time, existing []models.Event) []models.Event {
	if start.IsZero() || end.IsZero() || startOfDay(end).Before(startOfDay(start)) {
		return nil
	}
	var clashes []models.Event
	for _, ev := range existing {
		if ev.ScheduledStartDate.IsZero() || ev.ScheduledEndDate.IsZero() {
			continue
		}
		if startOfDay(ev.ScheduledEndDate).Before(startOfDay(ev.ScheduledStartDate)) {
			continue
		}
		if RangesOverlap(start, end, ev.ScheduledStartDate, ev.ScheduledEndDate) {
			clashes = append(clashes, ev)
		}
	}
	return clashes
}
