// Package agenda buckets calendar events into today/upcoming/past for
// display. Classification is by calendar day in the given location, not by
// raw instant, so an event at 23:59 stays in "today" for the whole day.
package agenda

import (
	"sort"
	"time"

	"hearth/src-server/model"
)

type Buckets struct {
	Today    []model.Event
	Upcoming []model.Event
	Past     []model.Event
}

// Bucket partitions events relative to "now". Every event lands in exactly
// one bucket. Today and Upcoming are sorted ascending by start time, Past
// descending; equal starts are ordered by event ID for determinism.
func Bucket(events []model.Event, now time.Time, loc *time.Location) Buckets {
	if loc == nil {
		loc = time.UTC
	}
	nowYear, nowMonth, nowDay := now.In(loc).Date()
	today := time.Date(nowYear, nowMonth, nowDay, 0, 0, 0, 0, loc)

	buckets := Buckets{
		Today:    make([]model.Event, 0),
		Upcoming: make([]model.Event, 0),
		Past:     make([]model.Event, 0),
	}
	for _, event := range events {
		year, month, day := time.Unix(event.StartTimeUnixUTC, 0).In(loc).Date()
		eventDay := time.Date(year, month, day, 0, 0, 0, 0, loc)
		switch {
		case eventDay.Equal(today):
			buckets.Today = append(buckets.Today, event)
		case eventDay.After(today):
			buckets.Upcoming = append(buckets.Upcoming, event)
		default:
			buckets.Past = append(buckets.Past, event)
		}
	}

	ascending := func(events []model.Event) func(i, j int) bool {
		return func(i, j int) bool {
			if events[i].StartTimeUnixUTC != events[j].StartTimeUnixUTC {
				return events[i].StartTimeUnixUTC < events[j].StartTimeUnixUTC
			}
			return events[i].ID < events[j].ID
		}
	}
	sort.Slice(buckets.Today, ascending(buckets.Today))
	sort.Slice(buckets.Upcoming, ascending(buckets.Upcoming))
	sort.Slice(buckets.Past, func(i, j int) bool {
		if buckets.Past[i].StartTimeUnixUTC != buckets.Past[j].StartTimeUnixUTC {
			return buckets.Past[i].StartTimeUnixUTC > buckets.Past[j].StartTimeUnixUTC
		}
		return buckets.Past[i].ID < buckets.Past[j].ID
	})

	return buckets
}

// EndOrStart returns the event's end time, substituting the start time when
// the end is missing or earlier than the start.
func EndOrStart(event model.Event) int64 {
	if event.EndTimeUnixUTC < event.StartTimeUnixUTC || event.EndTimeUnixUTC == 0 {
		return event.StartTimeUnixUTC
	}
	return event.EndTimeUnixUTC
}
